package menu

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a role's menus are served from memory.
const DefaultCacheTTL = 5 * time.Minute

// lookupTimeout bounds a shared Store lookup. It runs detached from the
// caller that started it, so it needs its own deadline.
const lookupTimeout = 10 * time.Second

// Cache resolves deduplicated menus per role through a TTL cache.
// Concurrent misses for one role share a single Store lookup.
type Cache struct {
	store Store
	items *ttlcache.Cache[string, []Entry]
	group singleflight.Group

	running atomic.Bool
}

// NewCache wraps store. A non-positive ttl disables caching but keeps
// request coalescing.
func NewCache(store Store, ttl time.Duration) *Cache {
	c := &Cache{store: store}
	if ttl > 0 {
		c.items = ttlcache.New[string, []Entry](
			ttlcache.WithTTL[string, []Entry](ttl),
			ttlcache.WithDisableTouchOnHit[string, []Entry](),
		)
	}
	return c
}

// Start runs expired-item cleanup until Stop is called.
func (c *Cache) Start() {
	if c.items != nil && c.running.CompareAndSwap(false, true) {
		go c.items.Start()
	}
}

// Stop ends the cleanup loop started by Start.
func (c *Cache) Stop() {
	if c.items != nil && c.running.CompareAndSwap(true, false) {
		c.items.Stop()
	}
}

// MenusForRole returns the deduplicated, ordered menus for role.
// The returned slice is the caller's to modify.
func (c *Cache) MenusForRole(ctx context.Context, role string) ([]Entry, error) {
	if c.items != nil {
		if it := c.items.Get(role); it != nil {
			return slices.Clone(it.Value()), nil
		}
	}

	// Waiters share the result, so one caller going away must not fail the others.
	ch := c.group.DoChan(role, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		rows, err := c.store.RowsForRole(lctx, role)
		if err != nil {
			return nil, err
		}
		entries := Dedupe(rows)
		if c.items != nil {
			c.items.Set(role, entries, ttlcache.DefaultTTL)
		}
		return entries, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]Entry)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) invalidate(role string) {
	if c.items != nil {
		c.items.Delete(role)
	}
}
