package realtime

import (
	"log/slog"
	"sync"

	v1 "lms/shared/contracts/realtime/v1"
)

// Drop reasons reported to Metrics.EventDropped.
const (
	DropUnknownConn = "unknown_connection"
	DropQueueFull   = "queue_full"
	DropClosed      = "closed"
)

// Metrics receives hub-level signals. A nil Metrics is replaced with a no-op.
type Metrics interface {
	ConnectionsChanged(n int)
	EventDropped(reason string)
}

type nopMetrics struct{}

func (nopMetrics) ConnectionsChanged(int) {}
func (nopMetrics) EventDropped(string)    {}

// Hub delivers envelopes to individual live connections.
//
// Send never blocks: an event for an unknown connection or a full queue is dropped.
type Hub struct {
	log     *slog.Logger
	metrics Metrics

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub constructs a Hub.
func NewHub(log *slog.Logger, metrics Metrics) *Hub {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Hub{
		log:     log,
		metrics: metrics,
		clients: make(map[string]*Client),
	}
}

// Attach makes c reachable through Send.
func (h *Hub) Attach(c *Client) {
	if c == nil || c.ConnID == "" {
		return
	}
	h.mu.Lock()
	h.clients[c.ConnID] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.ConnectionsChanged(n)
}

// Detach removes connID. Unknown ids are ignored.
func (h *Hub) Detach(connID string) {
	h.mu.Lock()
	_, ok := h.clients[connID]
	delete(h.clients, connID)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.metrics.ConnectionsChanged(n)
	}
}

// Send enqueues env for connID and reports whether it was queued.
func (h *Hub) Send(connID string, env v1.Envelope) bool {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()

	if !ok {
		h.metrics.EventDropped(DropUnknownConn)
		return false
	}

	select {
	case <-c.Done():
		h.metrics.EventDropped(DropClosed)
		return false
	default:
	}

	select {
	case c.Send <- env:
		return true
	default:
		h.metrics.EventDropped(DropQueueFull)
		h.log.Warn("realtime.send.drop", "conn_id", connID, "user_id", c.UserID, "type", env.Type)
		return false
	}
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
