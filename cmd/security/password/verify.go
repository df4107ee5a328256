package password

import "strings"

// Verify checks whether password matches encoded.
// Returns (true, nil) for a match, (false, nil) for a mismatch,
// and (false, ErrInvalidHash) for malformed or unsupported hashes.
func (c Config) Verify(encoded, password string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, argon2idPrefix):
		return c.verifyArgon2id(encoded, password)
	case IsBcryptHash(encoded):
		return verifyBcrypt(encoded, password)
	default:
		return false, ErrInvalidHash
	}
}

// NeedsRehash reports whether encoded should be replaced by a fresh Argon2id hash
// built with the current parameters.
func (c Config) NeedsRehash(encoded string) bool {
	if !strings.HasPrefix(encoded, argon2idPrefix) {
		return true
	}
	h, err := parsePHC(encoded)
	if err != nil {
		return true
	}
	p := h.params
	return p.MemoryKiB < c.Params.MemoryKiB || p.Iterations < c.Params.Iterations
}
