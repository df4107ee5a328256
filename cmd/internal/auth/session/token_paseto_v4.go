package session

import (
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"

	"lms/cmd/identity/ids"
)

type pasetoV4PublicIssuer struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration

	secret paseto.V4AsymmetricSecretKey
	public paseto.V4AsymmetricPublicKey
}

// NewPasetoV4PublicIssuer builds a TokenIssuer based on PASETO v4.public.
//
// It uses an Ed25519 asymmetric keypair and enforces issuer and expiration rules.
// Clock skew is applied during verification via ValidAt to tolerate minor clock differences.
func NewPasetoV4PublicIssuer(cfg Config) (TokenIssuer, error) {
	secret, err := paseto.NewV4AsymmetricSecretKeyFromHex(strings.TrimSpace(cfg.PasetoV4SecretKeyHex))
	if err != nil {
		return nil, ErrConfig
	}

	return &pasetoV4PublicIssuer{
		issuer:    cfg.Issuer,
		ttl:       cfg.TokenTTL,
		clockSkew: cfg.ClockSkew,
		secret:    secret,
		public:    secret.Public(),
	}, nil
}

func (m *pasetoV4PublicIssuer) Issue(sub Subject, now time.Time) (string, time.Time, error) {
	if strings.TrimSpace(sub.UserID) == "" {
		return "", time.Time{}, ErrInvalidToken
	}

	jti, err := ids.NewULID(now)
	if err != nil {
		return "", time.Time{}, err
	}
	exp := now.Add(m.ttl)

	tok := paseto.NewToken()
	tok.SetIssuer(m.issuer)
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)
	tok.SetJti(jti)

	_ = tok.Set("uid", sub.UserID)
	_ = tok.Set("role", sub.Role)
	_ = tok.Set("name", sub.DisplayName)

	return tok.V4Sign(m.secret, nil), exp, nil
}

func (m *pasetoV4PublicIssuer) Verify(token string, now time.Time) (Claims, error) {
	// Validate slightly in the future so a peer clock ahead of ours does not fail "nbf".
	validNow := now.Add(m.clockSkew)

	// Fresh parser per call; rules accumulate otherwise.
	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(m.issuer))
	p.AddRule(paseto.NotExpired())
	p.AddRule(paseto.ValidAt(validNow))

	parsed, err := p.ParseV4Public(m.public, token, nil)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	uid, err := parsed.GetString("uid")
	if err != nil || uid == "" {
		return Claims{}, ErrInvalidToken
	}
	jti, err := parsed.GetJti()
	if err != nil || jti == "" {
		return Claims{}, ErrInvalidToken
	}

	iss, _ := parsed.GetIssuer()
	exp, _ := parsed.GetExpiration()
	iat, _ := parsed.GetIssuedAt()
	role, _ := parsed.GetString("role")
	name, _ := parsed.GetString("name")

	return Claims{
		UserID:      uid,
		Role:        role,
		DisplayName: name,
		TokenID:     jti,
		IssuedAt:    iat,
		ExpiresAt:   exp,
		Issuer:      iss,
	}, nil
}
