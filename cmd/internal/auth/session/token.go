package session

import (
	"time"
)

// Subject is the identity a token is minted for.
type Subject struct {
	UserID      string
	Role        string
	DisplayName string
}

// Claims is the verified content of a token.
type Claims struct {
	UserID      string
	Role        string
	DisplayName string
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Issuer      string
}

// TokenIssuer mints and verifies signed bearer tokens.
//
// Issue never touches session state; two calls for the same subject
// always produce different tokens because each carries a fresh ULID jti.
type TokenIssuer interface {
	Issue(sub Subject, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (Claims, error)
}

// NewTokenIssuer builds the TokenIssuer selected by cfg.Format.
func NewTokenIssuer(cfg Config) (TokenIssuer, error) {
	if cfg.TokenTTL <= 0 || cfg.Issuer == "" {
		return nil, ErrConfig
	}
	switch cfg.Format {
	case FormatPASETO, "":
		return NewPasetoV4PublicIssuer(cfg)
	case FormatJWT:
		return NewJWTIssuer(cfg)
	default:
		return nil, ErrConfig
	}
}
