package identity

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used for development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]Account
	byUsername map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]Account),
		byUsername: make(map[string]string),
	}
}

// Put inserts or replaces an account. The username is normalized.
func (s *MemoryStore) Put(a Account) error {
	if strings.TrimSpace(a.UserID) == "" {
		return invalid("identity.MemoryStore.Put", "user id is required")
	}
	norm := NormalizeUsername(a.Username)
	if norm == "" {
		return invalid("identity.MemoryStore.Put", "username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byID[a.UserID]; ok {
		delete(s.byUsername, NormalizeUsername(prev.Username))
	}
	s.byID[a.UserID] = a
	s.byUsername[norm] = a.UserID
	return nil
}

// SetOverdueFees flips the overdue-fee flag of an existing account.
func (s *MemoryStore) SetOverdueFees(userID string, overdue bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[userID]
	if !ok {
		return notFound("identity.MemoryStore.SetOverdueFees", "user")
	}
	a.HasOverdueFees = overdue
	s.byID[userID] = a
	return nil
}

// LookupForLogin implements Store.
func (s *MemoryStore) LookupForLogin(ctx context.Context, username string) (Account, error) {
	const op = "identity.LookupForLogin"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[NormalizeUsername(username)]
	if !ok {
		return Account{}, notFound(op, "user")
	}
	return s.byID[id], nil
}

// CredentialHash implements Store.
func (s *MemoryStore) CredentialHash(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[userID]
	if !ok {
		return "", notFound("identity.CredentialHash", "user")
	}
	return a.PasswordHash, nil
}

// UpdateCredentialHash implements Store.
func (s *MemoryStore) UpdateCredentialHash(ctx context.Context, userID, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[userID]
	if !ok {
		return notFound("identity.UpdateCredentialHash", "user")
	}
	a.PasswordHash = hash
	s.byID[userID] = a
	return nil
}

// Exists implements Store.
func (s *MemoryStore) Exists(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byID[userID]
	return ok, nil
}
