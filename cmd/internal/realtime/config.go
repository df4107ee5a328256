package realtime

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	wsDefaultSendQueueSize = 32
	wsMinSendQueueSize     = 8

	wsDefaultWriteTimeout = 5 * time.Second
	wsDefaultReadIdle     = 2 * time.Minute

	wsDefaultAllowedOrigins = "http://localhost,http://127.0.0.1"
)

// Config controls the websocket gateway.
type Config struct {
	// DevInsecure disables websocket.Accept origin verification entirely.
	DevInsecure bool

	OriginRequired bool
	AllowedOrigins []string

	// AllowQueryToken accepts ?access_token= for browsers that cannot set headers on upgrade.
	AllowQueryToken bool

	WriteTimeout    time.Duration
	ReadIdleTimeout time.Duration
	SendQueueSize   int

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	RateEvents int
	RateWindow time.Duration
}

// DefaultConfig returns a secure default configuration suitable for development.
func DefaultConfig() Config {
	return Config{
		OriginRequired:    true,
		AllowedOrigins:    splitCSV(wsDefaultAllowedOrigins),
		AllowQueryToken:   true,
		WriteTimeout:      wsDefaultWriteTimeout,
		ReadIdleTimeout:   wsDefaultReadIdle,
		SendQueueSize:     wsDefaultSendQueueSize,
		HeartbeatInterval: heartbeatInterval,
		HeartbeatTimeout:  heartbeatTimeout,
		RateEvents:        rateLimitEvents,
		RateWindow:        rateLimitWindow,
	}
}

// ConfigFromEnv overlays LMS_WS_* variables on DefaultConfig.
// Invalid values fall back to the default.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.DevInsecure = envBoolWS("LMS_WS_DEV_INSECURE", cfg.DevInsecure)
	cfg.OriginRequired = envBoolWS("LMS_WS_ORIGIN_REQUIRED", cfg.OriginRequired)
	if v := strings.TrimSpace(os.Getenv("LMS_WS_ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	cfg.AllowQueryToken = envBoolWS("LMS_WS_ALLOW_QUERY_TOKEN", cfg.AllowQueryToken)

	cfg.WriteTimeout = envDurationWS("LMS_WS_WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.ReadIdleTimeout = envDurationWS("LMS_WS_READ_IDLE_TIMEOUT", cfg.ReadIdleTimeout)
	cfg.SendQueueSize = envIntWS("LMS_WS_SEND_QUEUE", cfg.SendQueueSize)

	cfg.HeartbeatInterval = envDurationWS("LMS_WS_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval)
	cfg.HeartbeatTimeout = envDurationWS("LMS_WS_HEARTBEAT_TIMEOUT", cfg.HeartbeatTimeout)

	cfg.RateEvents = envIntWS("LMS_WS_RATE_EVENTS", cfg.RateEvents)
	cfg.RateWindow = envDurationWS("LMS_WS_RATE_WINDOW", cfg.RateWindow)

	return cfg
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ReadIdleTimeout <= 0 {
		c.ReadIdleTimeout = d.ReadIdleTimeout
	}
	if c.SendQueueSize < wsMinSendQueueSize {
		c.SendQueueSize = wsMinSendQueueSize
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = d.HeartbeatTimeout
	}
	return c
}

func envBoolWS(key string, def bool) bool {
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

func envIntWS(key string, def int) int {
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

func envDurationWS(key string, def time.Duration) time.Duration {
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

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
