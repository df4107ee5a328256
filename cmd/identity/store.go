package identity

import "context"

// RoleStudent is the only role subject to the overdue-fee gate.
const RoleStudent = "Student"

// Account is the login view of a user.
type Account struct {
	UserID       string
	Username     string
	DisplayName  string
	PasswordHash string
	Role         string

	// HasOverdueFees is computed in the same read as the credential row.
	HasOverdueFees bool
}

// IsStudent reports whether the account is fee-gated.
func (a Account) IsStudent() bool { return a.Role == RoleStudent }

// Store is the credential persistence boundary.
type Store interface {
	// LookupForLogin resolves a username (case-insensitive) in one consistent read.
	// Missing accounts yield ErrNotFound.
	LookupForLogin(ctx context.Context, username string) (Account, error)

	// CredentialHash returns the stored hash for userID or ErrNotFound.
	CredentialHash(ctx context.Context, userID string) (string, error)

	// UpdateCredentialHash replaces the stored hash for userID or returns ErrNotFound.
	UpdateCredentialHash(ctx context.Context, userID, hash string) error

	// Exists reports whether userID names an account.
	Exists(ctx context.Context, userID string) (bool, error)
}
