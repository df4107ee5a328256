package password

import "errors"

// Policy violations returned by Validate. Callers map all three to one
// client-facing "invalid password" answer.
var (
	ErrPasswordTooShort = errors.New("password: below minimum length")
	ErrPasswordTooLong  = errors.New("password: above maximum length")
	ErrWeakPassword     = errors.New("password: rejected as very weak")
)

// ErrInvalidHash reports a stored hash that is malformed, uses an unknown
// scheme, or carries parameters outside the accepted bounds.
var ErrInvalidHash = errors.New("password: invalid stored hash")
