// Package identity is the LMS credential store.
//
// It resolves a username to the account data needed at login (id, role,
// credential hash, overdue-fee flag) in a single read, and lets the password
// change flow read and replace a credential hash. Passwords themselves are
// hashed by cmd/security/password through Hasher.
package identity
