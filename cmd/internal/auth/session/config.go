package session

import (
	"os"
	"strings"
	"time"
)

// TokenFormat selects the TokenIssuer implementation.
type TokenFormat string

const (
	FormatPASETO TokenFormat = "paseto"
	FormatJWT    TokenFormat = "jwt"
)

// StoreKind selects the Registry implementation.
type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreMemory   StoreKind = "memory"
)

// MinJWTKeyBytes is the shortest HS256 signing key accepted.
const MinJWTKeyBytes = 32

// Config defines runtime configuration for token issuance and the session registry.
type Config struct {
	// Issuer is the value set in the "iss" claim.
	Issuer string

	Format TokenFormat

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	// ClockSkew is the tolerance applied during validation.
	ClockSkew time.Duration

	// PasetoV4SecretKeyHex is the hex-encoded Ed25519 secret key for v4.public tokens.
	PasetoV4SecretKeyHex string

	// JWTSigningKey is the HS256 key used when Format is FormatJWT.
	JWTSigningKey []byte

	// Store selects where session slots are kept.
	Store StoreKind
}

// DefaultConfig returns defaults matching the LMS deployment: ten-day tokens,
// PASETO format, Postgres-backed slots. Keys are never defaulted.
func DefaultConfig() Config {
	return Config{
		Issuer:    "lms",
		Format:    FormatPASETO,
		TokenTTL:  240 * time.Hour,
		ClockSkew: 30 * time.Second,
		Store:     StorePostgres,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional:
//   - LMS_AUTH_ISSUER
//   - LMS_AUTH_TOKEN_FORMAT (paseto|jwt)
//   - LMS_AUTH_TOKEN_TTL, LMS_AUTH_CLOCK_SKEW (Go durations)
//   - LMS_SESSION_STORE (postgres|memory)
//
// Required depending on the format:
//   - LMS_PASETO_V4_SECRET_KEY_HEX (paseto)
//   - LMS_JWT_SIGNING_KEY (jwt, at least 32 bytes)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("LMS_AUTH_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := strings.TrimSpace(os.Getenv("LMS_AUTH_TOKEN_FORMAT")); v != "" {
		switch f := TokenFormat(strings.ToLower(v)); f {
		case FormatPASETO, FormatJWT:
			cfg.Format = f
		default:
			return Config{}, ErrConfig
		}
	}

	if v := os.Getenv("LMS_AUTH_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TokenTTL = d
	}

	if v := os.Getenv("LMS_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	if v := strings.TrimSpace(os.Getenv("LMS_SESSION_STORE")); v != "" {
		switch k := StoreKind(strings.ToLower(v)); k {
		case StorePostgres, StoreMemory:
			cfg.Store = k
		default:
			return Config{}, ErrConfig
		}
	}

	switch cfg.Format {
	case FormatPASETO:
		cfg.PasetoV4SecretKeyHex = strings.TrimSpace(os.Getenv("LMS_PASETO_V4_SECRET_KEY_HEX"))
		if cfg.PasetoV4SecretKeyHex == "" {
			return Config{}, ErrConfig
		}
	case FormatJWT:
		key := os.Getenv("LMS_JWT_SIGNING_KEY")
		if len(key) < MinJWTKeyBytes {
			return Config{}, ErrConfig
		}
		cfg.JWTSigningKey = []byte(key)
	}

	return cfg, nil
}
