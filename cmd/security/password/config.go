package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	MaxLength int
	// RejectVeryWeak enables a minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns the baseline used for LMS accounts.
func DefaultConfig() Config {
	// Parallelism follows the CPU count, clamped to [1..4] for containers.
	threads := min(max(runtime.NumCPU(), 1), 4)

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength:      8,
			MaxLength:      256,
			RejectVeryWeak: false,
		},
	}
}

// envSetting binds one environment variable to a field of Config.
type envSetting struct {
	key   string
	apply func(cfg *Config, raw string) error
}

var envSettings = []envSetting{
	{"LMS_PASSWORD_MIN_LEN", func(c *Config, v string) (err error) {
		c.Policy.MinLength, err = parseIntRange(v, 1, 1024)
		return err
	}},
	{"LMS_PASSWORD_MAX_LEN", func(c *Config, v string) (err error) {
		c.Policy.MaxLength, err = parseIntRange(v, 1, 4096)
		return err
	}},
	{"LMS_PASSWORD_REJECT_VERY_WEAK", func(c *Config, v string) (err error) {
		c.Policy.RejectVeryWeak, err = parseBool(v)
		return err
	}},
	{"LMS_ARGON2_MEMORY_KIB", func(c *Config, v string) (err error) {
		c.Params.MemoryKiB, err = parseU32Range(v, 8*1024, 1024*1024)
		return err
	}},
	{"LMS_ARGON2_ITERATIONS", func(c *Config, v string) (err error) {
		c.Params.Iterations, err = parseU32Range(v, 1, 20)
		return err
	}},
	{"LMS_ARGON2_PARALLELISM", func(c *Config, v string) error {
		u, err := parseU32Range(v, 1, math.MaxUint8)
		if err != nil {
			return err
		}
		c.Params.Parallelism = uint8(u) // #nosec G115 -- bounded by parseU32Range.
		return nil
	}},
	{"LMS_ARGON2_SALT_LEN", func(c *Config, v string) (err error) {
		c.Params.SaltLength, err = parseU32Range(v, 8, 64)
		return err
	}},
	{"LMS_ARGON2_KEY_LEN", func(c *Config, v string) (err error) {
		c.Params.KeyLength, err = parseU32Range(v, 16, 64)
		return err
	}},
}

// FromEnv loads config from environment variables on top of DefaultConfig.
//
// Env surface:
//   - LMS_PASSWORD_MIN_LEN, LMS_PASSWORD_MAX_LEN
//   - LMS_PASSWORD_REJECT_VERY_WEAK (true/false)
//   - LMS_ARGON2_MEMORY_KIB, LMS_ARGON2_ITERATIONS, LMS_ARGON2_PARALLELISM
//   - LMS_ARGON2_SALT_LEN, LMS_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	for _, s := range envSettings {
		raw, ok := os.LookupEnv(s.key)
		if !ok {
			continue
		}
		if err := s.apply(&cfg, raw); err != nil {
			return Config{}, fmt.Errorf("%s: %w", s.key, err)
		}
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func parseIntRange(s string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("out of range [%d..%d]", lo, hi)
	}
	return n, nil
}

func parseU32Range(s string, lo, hi uint32) (uint32, error) {
	u64, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	u := uint32(u64)
	if u < lo || u > hi {
		return 0, fmt.Errorf("out of range [%d..%d]", lo, hi)
	}
	return u, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean")
	}
}
