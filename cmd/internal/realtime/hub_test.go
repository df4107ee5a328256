package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	v1 "lms/shared/contracts/realtime/v1"
)

type countingMetrics struct {
	mu      sync.Mutex
	last    int
	dropped map[string]int
}

func (m *countingMetrics) ConnectionsChanged(n int) {
	m.mu.Lock()
	m.last = n
	m.mu.Unlock()
}

func (m *countingMetrics) EventDropped(reason string) {
	m.mu.Lock()
	if m.dropped == nil {
		m.dropped = map[string]int{}
	}
	m.dropped[reason]++
	m.mu.Unlock()
}

func TestHub_SendDelivers(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := &countingMetrics{}
	h := NewHub(nil, m)
	c := NewClient("u-1", "c-1", 4)
	h.Attach(c)
	assert.Equal(t, 1, m.last)

	env := ForceLogoutEnvelope("", time.Now())
	require.True(t, h.Send("c-1", env))

	got := <-c.Send
	assert.Equal(t, v1.TypeForceLogout, got.Type)
	assert.JSONEq(t, `{"reason":"Another login detected"}`, string(got.Payload))

	h.Detach("c-1")
	assert.Equal(t, 0, m.last)
	assert.Equal(t, 0, h.count())
}

func TestHub_SendNeverBlocks(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := &countingMetrics{}
	h := NewHub(nil, m)
	c := NewClient("u-1", "c-1", 1)
	h.Attach(c)

	env := NewEnvelope(v1.TypePong, nil, time.Now())
	assert.True(t, h.Send("c-1", env))

	done := make(chan bool)
	go func() { done <- h.Send("c-1", env) }()

	select {
	case ok := <-done:
		assert.False(t, ok, "full queue must drop")
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a full queue")
	}

	assert.False(t, h.Send("missing", env))

	c.Close()
	<-c.Send
	assert.False(t, h.Send("c-1", env))

	assert.Equal(t, map[string]int{DropQueueFull: 1, DropUnknownConn: 1, DropClosed: 1}, m.dropped)
}

func TestHub_DetachUnknownIsNoop(t *testing.T) {
	m := &countingMetrics{last: -1}
	h := NewHub(nil, m)
	h.Detach("nope")
	assert.Equal(t, -1, m.last)
}

func TestClient_CloseIdempotent(t *testing.T) {
	c := NewClient("u", "c", 0)
	c.Close()
	c.Close()
	select {
	case <-c.Done():
	default:
		t.Fatal("Done must be closed")
	}

	var nilClient *Client
	nilClient.Close()
	<-nilClient.Done()
}
