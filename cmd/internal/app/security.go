package app

import (
	"errors"

	"lms/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy.
// Under LMS_REQUIRE_TOKEN_HMAC the process refuses to start rather than fall
// back to unkeyed SHA-256 session fingerprints.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: LMS_REQUIRE_TOKEN_HMAC=true but LMS_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: LMS_REQUIRE_TOKEN_HMAC=true but LMS_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: LMS_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}
	return nil
}
