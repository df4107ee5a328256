package realtime

import (
	"slices"
	"sync"
)

// ConnectionRegistry maps accounts to their live connection ids.
//
// A connection belongs to at most one account at a time; registering it
// under another account moves it. Snapshots returned by ConnectionsFor are
// copies and go stale as connections churn.
type ConnectionRegistry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]struct{}
	owner  map[string]string
}

// NewConnectionRegistry returns an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		byUser: make(map[string]map[string]struct{}),
		owner:  make(map[string]string),
	}
}

// Register records connID under userID. Repeating the same pair is a no-op.
func (r *ConnectionRegistry) Register(connID, userID string) {
	if connID == "" || userID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owner[connID]; ok {
		if prev == userID {
			return
		}
		r.removeLocked(connID, prev)
	}

	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		r.byUser[userID] = set
	}
	set[connID] = struct{}{}
	r.owner[connID] = userID
}

// Unregister forgets connID. Unknown ids are ignored.
func (r *ConnectionRegistry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID, ok := r.owner[connID]; ok {
		r.removeLocked(connID, userID)
	}
}

func (r *ConnectionRegistry) removeLocked(connID, userID string) {
	delete(r.owner, connID)
	set := r.byUser[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.byUser, userID)
	}
}

// ConnectionsFor returns a sorted copy of the connection ids registered for userID.
func (r *ConnectionRegistry) ConnectionsFor(userID string) []string {
	r.mu.RLock()
	set := r.byUser[userID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	r.mu.RUnlock()

	slices.Sort(out)
	return out
}

// ownerOf returns the account currently holding connID.
func (r *ConnectionRegistry) ownerOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.owner[connID]
	return u, ok
}

func (r *ConnectionRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owner)
}
