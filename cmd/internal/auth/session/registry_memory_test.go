package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type staticUsers map[string]bool

func (s staticUsers) Exists(_ context.Context, userID string) (bool, error) {
	return s[userID], nil
}

func TestMemoryRegistry_SupersedeReturnsPrevious(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry(nil)
	now := time.Now().UTC()

	first := UserSession{UserID: "u-1", TokenHash: "h1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	prev, replaced, err := r.Supersede(ctx, first)
	if err != nil {
		t.Fatalf("Supersede: %v", err)
	}
	if replaced || prev != (UserSession{}) {
		t.Fatalf("first install must not replace anything, got %+v replaced=%v", prev, replaced)
	}

	second := UserSession{UserID: "u-1", TokenHash: "h2", IssuedAt: now.Add(time.Second), ExpiresAt: now.Add(time.Hour)}
	prev, replaced, err = r.Supersede(ctx, second)
	if err != nil {
		t.Fatalf("Supersede: %v", err)
	}
	if !replaced || prev.TokenHash != "h1" {
		t.Fatalf("expected h1 to be replaced, got %+v replaced=%v", prev, replaced)
	}

	cur, err := r.Current(ctx, "u-1")
	if err != nil || cur.TokenHash != "h2" {
		t.Fatalf("Current=%+v err=%v", cur, err)
	}
}

func TestMemoryRegistry_CurrentEmpty(t *testing.T) {
	r := NewMemoryRegistry(nil)
	if _, err := r.Current(context.Background(), "nobody"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestMemoryRegistry_UnknownUser(t *testing.T) {
	r := NewMemoryRegistry(staticUsers{"u-1": true})

	if _, _, err := r.Supersede(context.Background(), UserSession{UserID: "u-2", TokenHash: "h"}); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	if _, _, err := r.Supersede(context.Background(), UserSession{UserID: "u-1", TokenHash: "h"}); err != nil {
		t.Fatalf("known user: %v", err)
	}
}

func TestMemoryRegistry_ConcurrentFirstLogins(t *testing.T) {
	const workers = 32

	r := NewMemoryRegistry(nil)
	var fresh atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	seen := make(chan string, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			prev, replaced, err := r.Supersede(context.Background(), UserSession{
				UserID:    "u-race",
				TokenHash: fmt.Sprintf("h%02d", i),
			})
			if err != nil {
				t.Errorf("Supersede: %v", err)
				return
			}
			if !replaced {
				fresh.Add(1)
				return
			}
			seen <- prev.TokenHash
		}(i)
	}
	close(start)
	wg.Wait()
	close(seen)

	if got := fresh.Load(); got != 1 {
		t.Fatalf("exactly one caller must see an empty slot, got %d", got)
	}

	// Every displaced hash is handed back exactly once.
	dup := map[string]bool{}
	for h := range seen {
		if dup[h] {
			t.Fatalf("hash %s returned as previous twice", h)
		}
		dup[h] = true
	}
	if len(dup) != workers-1 {
		t.Fatalf("expected %d displaced sessions, got %d", workers-1, len(dup))
	}
}

func TestMemoryRegistry_IndependentUsers(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry(nil)

	for i := range 100 {
		uid := fmt.Sprintf("u-%d", i)
		if _, replaced, err := r.Supersede(ctx, UserSession{UserID: uid, TokenHash: uid}); err != nil || replaced {
			t.Fatalf("Supersede(%s) replaced=%v err=%v", uid, replaced, err)
		}
	}
	for i := range 100 {
		uid := fmt.Sprintf("u-%d", i)
		cur, err := r.Current(ctx, uid)
		if err != nil || cur.TokenHash != uid {
			t.Fatalf("Current(%s)=%+v err=%v", uid, cur, err)
		}
	}
}
