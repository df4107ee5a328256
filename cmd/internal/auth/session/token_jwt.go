package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lms/cmd/identity/ids"
)

// jwtClaims mirrors the claim set LMS front-ends already read: sub, role, name.
type jwtClaims struct {
	Role string `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type jwtIssuer struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	key       []byte
}

// NewJWTIssuer builds an HS256 TokenIssuer.
func NewJWTIssuer(cfg Config) (TokenIssuer, error) {
	if len(cfg.JWTSigningKey) < MinJWTKeyBytes {
		return nil, ErrConfig
	}
	key := make([]byte, len(cfg.JWTSigningKey))
	copy(key, cfg.JWTSigningKey)

	return &jwtIssuer{
		issuer:    cfg.Issuer,
		ttl:       cfg.TokenTTL,
		clockSkew: cfg.ClockSkew,
		key:       key,
	}, nil
}

func (m *jwtIssuer) Issue(sub Subject, now time.Time) (string, time.Time, error) {
	if strings.TrimSpace(sub.UserID) == "" {
		return "", time.Time{}, ErrInvalidToken
	}

	jti, err := ids.NewULID(now)
	if err != nil {
		return "", time.Time{}, err
	}

	// NumericDate has second precision; report the expiry the token actually carries.
	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(now.Add(m.ttl))

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Role: sub.Role,
		Name: sub.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   sub.UserID,
			ID:        jti,
			IssuedAt:  iat,
			NotBefore: iat,
			ExpiresAt: exp,
		},
	})

	signed, err := tok.SignedString(m.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp.Time, nil
}

func (m *jwtIssuer) Verify(token string, now time.Time) (Claims, error) {
	var c jwtClaims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return m.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	if c.Subject == "" || c.ID == "" {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{
		UserID:      c.Subject,
		Role:        c.Role,
		DisplayName: c.Name,
		TokenID:     c.ID,
		Issuer:      c.Issuer,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}
