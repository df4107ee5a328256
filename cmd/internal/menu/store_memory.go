package menu

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore serves fixed rows per role. Used for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byRole map[string][]Row
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byRole: make(map[string][]Row)}
}

// SetRows replaces the rows served for role.
func (s *MemoryStore) SetRows(role string, rows []Row) {
	s.mu.Lock()
	s.byRole[role] = slices.Clone(rows)
	s.mu.Unlock()
}

// RowsForRole implements Store.
func (s *MemoryStore) RowsForRole(ctx context.Context, role string) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.byRole[role]), nil
}
