package account

import "errors"

var (
	// ErrInvalidInput is returned for requests missing required fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is returned for an unknown username or a wrong password.
	// The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrFeesOverdue is returned when a student with overdue fees tries to log in.
	ErrFeesOverdue = errors.New("fees overdue")

	// ErrNotFound is returned when a password change names an unknown account.
	ErrNotFound = errors.New("user not found")

	// ErrUnauthorized is returned when the old password does not match.
	ErrUnauthorized = errors.New("old password is incorrect")

	// ErrInvalidPassword is returned when the new password violates the password policy.
	ErrInvalidPassword = errors.New("invalid password")
)
