package menu

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingStore struct {
	calls atomic.Int32
	gate  chan struct{}
	rows  []Row
	err   error
}

func (s *countingStore) RowsForRole(ctx context.Context, _ string) ([]Row, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.rows, s.err
}

func TestCache_ServesFromCache(t *testing.T) {
	defer goleak.VerifyNone(t)

	st := &countingStore{rows: []Row{{MainMenuID: 2, Order: 2}, {MainMenuID: 1, Order: 1}, {MainMenuID: 2, Order: 2}}}
	c := NewCache(st, time.Minute)
	c.Start()
	defer c.Stop()

	for range 3 {
		got, err := c.MenusForRole(context.Background(), "Student")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].MenuID)
	}
	assert.Equal(t, int32(1), st.calls.Load())

	c.invalidate("Student")
	_, err := c.MenusForRole(context.Background(), "Student")
	require.NoError(t, err)
	assert.Equal(t, int32(2), st.calls.Load())
}

func TestCache_CoalescesConcurrentMisses(t *testing.T) {
	st := &countingStore{gate: make(chan struct{}), rows: []Row{{MainMenuID: 1}}}
	c := NewCache(st, time.Minute)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.MenusForRole(context.Background(), "Teacher")
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return st.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(st.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), st.calls.Load())
}

func TestCache_CanceledCallerDoesNotFailOthers(t *testing.T) {
	st := &countingStore{gate: make(chan struct{}), rows: []Row{{MainMenuID: 7, Order: 1}}}
	c := NewCache(st, time.Minute)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.MenusForRole(ctxA, "Student")
		errA <- err
	}()
	require.Eventually(t, func() bool { return st.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		entries []Entry
		err     error
	}
	resB := make(chan result, 1)
	go func() {
		got, err := c.MenusForRole(context.Background(), "Student")
		resB <- result{got, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatalf("canceled caller did not return")
	}

	close(st.gate)
	select {
	case r := <-resB:
		require.NoError(t, r.err)
		require.Len(t, r.entries, 1)
		assert.Equal(t, 7, r.entries[0].MenuID)
	case <-time.After(time.Second):
		t.Fatalf("second caller did not return")
	}
	assert.Equal(t, int32(1), st.calls.Load())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	st := &countingStore{err: errors.New("db down")}
	c := NewCache(st, time.Minute)

	_, err := c.MenusForRole(context.Background(), "Admin")
	require.Error(t, err)
	_, err = c.MenusForRole(context.Background(), "Admin")
	require.Error(t, err)
	assert.Equal(t, int32(2), st.calls.Load())
}

func TestCache_ReturnsCopies(t *testing.T) {
	st := &countingStore{rows: []Row{{MainMenuID: 1, Text: "a"}}}
	c := NewCache(st, time.Minute)

	got, err := c.MenusForRole(context.Background(), "Student")
	require.NoError(t, err)
	got[0].Text = "mutated"

	again, err := c.MenusForRole(context.Background(), "Student")
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Text)
}

func TestCache_StopWithoutStart(t *testing.T) {
	c := NewCache(NewMemoryStore(), time.Minute)
	c.Stop()
}
