package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL      string
	DBMaxConns       int32
	DBMinConns       int32
	DBConnectRetries int
	DBConnectBackoff time.Duration

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool

	// If true, LMS_TOKEN_HMAC_KEY must be set (>= 32 bytes) so session
	// fingerprints are keyed.
	RequireTokenHMAC bool

	MetricsEnabled bool
	MenuCacheTTL   time.Duration

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("LMS_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("LMS_LOG_LEVEL", "info"),
		LogFormat: EnvString("LMS_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("LMS_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("LMS_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("LMS_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("LMS_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("LMS_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:      EnvString("LMS_DATABASE_URL", ""),
		DBMaxConns:       EnvInt32("LMS_DB_MAX_CONNS", 10),
		DBMinConns:       EnvInt32("LMS_DB_MIN_CONNS", 0),
		DBConnectRetries: EnvInt("LMS_DB_CONNECT_RETRIES", 5),
		DBConnectBackoff: EnvDuration("LMS_DB_CONNECT_BACKOFF", 250*time.Millisecond),

		ReadinessRequireDB: EnvBool("LMS_READINESS_REQUIRE_DB", false),
		RequireTokenHMAC:   EnvBool("LMS_REQUIRE_TOKEN_HMAC", false),

		MetricsEnabled: EnvBool("LMS_METRICS_ENABLED", true),
		MenuCacheTTL:   EnvDuration("LMS_MENU_CACHE_TTL", 5*time.Minute),

		CORSAllowedOrigins:   EnvCSV("LMS_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("LMS_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("LMS_CORS_MAX_AGE_SECONDS", 600),
	}
}
