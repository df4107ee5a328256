// Package session implements the single-active-session model for LMS accounts.
//
// Every account owns at most one session slot. A login mints a signed token
// (PASETO v4.public by default, HS256 JWT when configured) and installs its
// fingerprint into the slot with Registry.Supersede, which atomically replaces
// and returns whatever was there before. Validate accepts a token only while its
// fingerprint is still the one stored in the slot.
//
// Slots live in Postgres (lms.user_sessions) or, for development and tests, in memory.
// Tokens are never stored in plaintext: the slot holds an HMAC-SHA256 fingerprint
// when LMS_TOKEN_HMAC_KEY is set, otherwise a SHA-256 digest.
package session
