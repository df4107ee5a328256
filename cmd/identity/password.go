package identity

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"lms/cmd/security/password"
)

// Hasher adapts cmd/security/password to the credential flows.
type Hasher struct {
	cfg       password.Config
	dummyHash string
}

// NewHasher builds a Hasher. It precomputes a throwaway hash that
// VerifyMissing checks against so unknown usernames cost as much as wrong passwords.
func NewHasher(cfg password.Config) (*Hasher, error) {
	filler := make([]byte, 24)
	if _, err := rand.Read(filler); err != nil {
		return nil, fmt.Errorf("identity: dummy password: %w", err)
	}

	// The filler must satisfy whatever policy is configured.
	probe := cfg
	probe.Policy.MinLength = 1
	probe.Policy.MaxLength = 1024
	probe.Policy.RejectVeryWeak = false

	dummy, err := probe.Hash(base64.RawURLEncoding.EncodeToString(filler))
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}
	return &Hasher{cfg: cfg, dummyHash: dummy}, nil
}

// NewHasherFromEnv builds a Hasher from LMS_PASSWORD_* and LMS_ARGON2_* settings.
func NewHasherFromEnv() (*Hasher, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	return NewHasher(cfg)
}

// Hash validates plain against the password policy and hashes it.
func (h *Hasher) Hash(plain string) (string, error) {
	return h.cfg.Hash(plain)
}

// Verify reports whether plain matches encoded.
// Malformed hashes are reported as a mismatch plus password.ErrInvalidHash.
func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	return h.cfg.Verify(encoded, plain)
}

// VerifyMissing burns the same work as Verify for a username that does not exist.
func (h *Hasher) VerifyMissing(plain string) {
	_, _ = h.cfg.Verify(h.dummyHash, plain)
}

// NeedsRehash reports legacy or under-cost hashes.
func (h *Hasher) NeedsRehash(encoded string) bool {
	return h.cfg.NeedsRehash(encoded)
}
