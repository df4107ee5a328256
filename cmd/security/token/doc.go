// Package token derives storage fingerprints for bearer tokens.
//
// The session registry never stores issued tokens in plaintext. It stores
// a fingerprint:
//   - HMAC-SHA256(token, key) when LMS_TOKEN_HMAC_KEY is set.
//   - SHA-256(token) otherwise (development only).
//
// Fingerprints are always 64 lowercase hex characters and must be compared
// with Equal, which runs in constant time.
package token
