package token

import "errors"

// Startup policy errors for LMS_TOKEN_HMAC_KEY (see HMACKeyFromEnv).
var (
	ErrHMACKeyMissing  = errors.New("token: fingerprint HMAC key not set")
	ErrHMACKeyTooShort = errors.New("token: fingerprint HMAC key below minimum length")
)
