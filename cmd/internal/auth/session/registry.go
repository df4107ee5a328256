package session

import (
	"context"
	"time"
)

// UserSession is the content of an account's single session slot.
// TokenHash is a fingerprint of the token, never the token itself.
type UserSession struct {
	UserID    string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Registry keeps exactly one current session per account.
type Registry interface {
	// Supersede stores next as the account's session and returns what it replaced.
	// replaced is false when the slot was empty. Calls for the same account are
	// linearizable: among concurrent first logins exactly one observes replaced == false.
	Supersede(ctx context.Context, next UserSession) (previous UserSession, replaced bool, err error)

	// Current returns the session stored for userID or ErrNoSession.
	Current(ctx context.Context, userID string) (UserSession, error)
}

// UserChecker reports whether an account exists. identity.Store satisfies it.
type UserChecker interface {
	Exists(ctx context.Context, userID string) (bool, error)
}
