package session

import (
	"context"
	"hash/maphash"
	"strings"
	"sync"
)

const memoryShards = 64

type memoryShard struct {
	mu    sync.Mutex
	slots map[string]UserSession
}

// MemoryRegistry is an in-process Registry. Each account hashes to one shard,
// and the shard lock is held only for the read-and-swap of its slot.
type MemoryRegistry struct {
	seed   maphash.Seed
	shards [memoryShards]memoryShard
	users  UserChecker
}

// NewMemoryRegistry returns an empty MemoryRegistry. When users is non-nil,
// Supersede rejects accounts it does not know with ErrUnknownUser.
func NewMemoryRegistry(users UserChecker) *MemoryRegistry {
	r := &MemoryRegistry{seed: maphash.MakeSeed(), users: users}
	for i := range r.shards {
		r.shards[i].slots = make(map[string]UserSession)
	}
	return r
}

func (r *MemoryRegistry) shard(userID string) *memoryShard {
	return &r.shards[maphash.String(r.seed, userID)%memoryShards]
}

// Supersede implements Registry.
func (r *MemoryRegistry) Supersede(ctx context.Context, next UserSession) (UserSession, bool, error) {
	if err := ctx.Err(); err != nil {
		return UserSession{}, false, err
	}
	if strings.TrimSpace(next.UserID) == "" {
		return UserSession{}, false, ErrUnknownUser
	}

	if r.users != nil {
		ok, err := r.users.Exists(ctx, next.UserID)
		if err != nil {
			return UserSession{}, false, err
		}
		if !ok {
			return UserSession{}, false, ErrUnknownUser
		}
	}

	sh := r.shard(next.UserID)
	sh.mu.Lock()
	prev, replaced := sh.slots[next.UserID]
	sh.slots[next.UserID] = next
	sh.mu.Unlock()

	return prev, replaced, nil
}

// Current implements Registry.
func (r *MemoryRegistry) Current(ctx context.Context, userID string) (UserSession, error) {
	if err := ctx.Err(); err != nil {
		return UserSession{}, err
	}

	sh := r.shard(userID)
	sh.mu.Lock()
	cur, ok := sh.slots[userID]
	sh.mu.Unlock()

	if !ok {
		return UserSession{}, ErrNoSession
	}
	return cur, nil
}
