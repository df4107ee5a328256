package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and abuse limits.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	LoginIPMax    int
	LoginIPWindow time.Duration

	LockoutWindow          time.Duration
	LockoutShortThreshold  int
	LockoutShortDuration   time.Duration
	LockoutLongThreshold   int
	LockoutLongDuration    time.Duration
	LockoutSevereThreshold int
	LockoutSevereDuration  time.Duration

	// ThrottleMaxKeys caps the IPs and subjects tracked by the login throttle.
	ThrottleMaxKeys int
}

// DefaultConfig returns the limits used when no env overrides are set.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:           64 << 10,
		LoginIPMax:             20,
		LoginIPWindow:          5 * time.Minute,
		LockoutWindow:          time.Hour,
		LockoutShortThreshold:  5,
		LockoutShortDuration:   5 * time.Minute,
		LockoutLongThreshold:   10,
		LockoutLongDuration:    30 * time.Minute,
		LockoutSevereThreshold: 20,
		LockoutSevereDuration:  2 * time.Hour,
		ThrottleMaxKeys:        100_000,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	d := DefaultConfig()
	return Config{
		TrustProxy:             envBool("LMS_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:           envInt64("LMS_AUTH_MAX_BODY_BYTES", d.MaxBodyBytes),
		LoginIPMax:             envInt("LMS_AUTH_LOGIN_IP_MAX", d.LoginIPMax),
		LoginIPWindow:          envDuration("LMS_AUTH_LOGIN_IP_WINDOW", d.LoginIPWindow),
		LockoutWindow:          envDuration("LMS_AUTH_LOCKOUT_WINDOW", d.LockoutWindow),
		LockoutShortThreshold:  envInt("LMS_AUTH_LOCKOUT_SHORT_THRESHOLD", d.LockoutShortThreshold),
		LockoutShortDuration:   envDuration("LMS_AUTH_LOCKOUT_SHORT_DURATION", d.LockoutShortDuration),
		LockoutLongThreshold:   envInt("LMS_AUTH_LOCKOUT_LONG_THRESHOLD", d.LockoutLongThreshold),
		LockoutLongDuration:    envDuration("LMS_AUTH_LOCKOUT_LONG_DURATION", d.LockoutLongDuration),
		LockoutSevereThreshold: envInt("LMS_AUTH_LOCKOUT_SEVERE_THRESHOLD", d.LockoutSevereThreshold),
		LockoutSevereDuration:  envDuration("LMS_AUTH_LOCKOUT_SEVERE_DURATION", d.LockoutSevereDuration),
		ThrottleMaxKeys:        envInt("LMS_AUTH_THROTTLE_MAX_KEYS", d.ThrottleMaxKeys),
	}
}

func (c Config) lockoutTiers() []lockoutTier {
	return []lockoutTier{
		{Threshold: c.LockoutSevereThreshold, Duration: c.LockoutSevereDuration},
		{Threshold: c.LockoutLongThreshold, Duration: c.LockoutLongDuration},
		{Threshold: c.LockoutShortThreshold, Duration: c.LockoutShortDuration},
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
