package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"lms/cmd/security/token"
)

// Service ties token issuance to the per-account session slot.
type Service struct {
	tokens      TokenIssuer
	registry    Registry
	fingerprint func(string) string
}

// Issued is a freshly minted token that has not been installed yet.
type Issued struct {
	Token  string
	Claims Claims
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithFingerprint overrides how tokens are reduced before storage.
// The default is token.Fingerprint (HMAC when LMS_TOKEN_HMAC_KEY is set).
func WithFingerprint(fn func(string) string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.fingerprint = fn
		}
	}
}

// NewService constructs a Service.
func NewService(tokens TokenIssuer, registry Registry, opts ...ServiceOption) *Service {
	s := &Service{tokens: tokens, registry: registry, fingerprint: token.Fingerprint}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Issue mints a token for sub. It does not touch the registry.
func (s *Service) Issue(sub Subject, now time.Time) (Issued, error) {
	tok, exp, err := s.tokens.Issue(sub, now)
	if err != nil {
		return Issued{}, err
	}
	return Issued{
		Token: tok,
		Claims: Claims{
			UserID:      sub.UserID,
			Role:        sub.Role,
			DisplayName: sub.DisplayName,
			IssuedAt:    now,
			ExpiresAt:   exp,
		},
	}, nil
}

// Install makes iss the account's current session and reports the fingerprint
// of the session it replaced, if any.
func (s *Service) Install(ctx context.Context, iss Issued) (previousHash string, hadPrevious bool, err error) {
	prev, replaced, err := s.registry.Supersede(ctx, UserSession{
		UserID:    iss.Claims.UserID,
		TokenHash: s.fingerprint(iss.Token),
		IssuedAt:  iss.Claims.IssuedAt,
		ExpiresAt: iss.Claims.ExpiresAt,
	})
	if err != nil {
		return "", false, err
	}
	if !replaced {
		return "", false, nil
	}
	return prev.TokenHash, true, nil
}

// Validate verifies tok and checks that it is still the latest session of its account.
//
// Expiry is enforced by the token itself; slots are never swept.
func (s *Service) Validate(ctx context.Context, tok string, now time.Time) (Claims, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" || len(tok) > 8192 {
		return Claims{}, ErrInvalidToken
	}

	claims, err := s.tokens.Verify(tok, now)
	if err != nil {
		return Claims{}, err
	}

	cur, err := s.registry.Current(ctx, claims.UserID)
	if err != nil {
		return Claims{}, err
	}
	if !token.Equal(cur.TokenHash, s.fingerprint(tok)) {
		return Claims{}, ErrSessionSuperseded
	}
	return claims, nil
}

// IsAuthFailure reports errors that should surface as 401 to a client.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrNoSession) ||
		errors.Is(err, ErrSessionSuperseded)
}
