package session

import "errors"

var (
	// ErrInvalidToken is returned when a token fails signature, issuer or expiry checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrNoSession is returned when the account has no session slot yet.
	ErrNoSession = errors.New("no active session")

	// ErrSessionSuperseded is returned when a valid token is no longer the latest one for its account.
	ErrSessionSuperseded = errors.New("session superseded")

	// ErrUnknownUser is returned when a session is installed for an account that does not exist.
	ErrUnknownUser = errors.New("unknown user")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
