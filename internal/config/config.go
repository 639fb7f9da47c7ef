package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	RedisAddr     string
	ClickHouseDSN string
	PostgresDSN   string
	ServiceName   string

	// Upload limits
	UploadMaxBytes int64

	// Count result caching
	CountCacheTTL time.Duration

	// Postgres connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// ClickHouse connection pooling configuration
	CHMaxOpenConns    int
	CHMaxIdleConns    int
	CHConnMaxLifetime time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.Port = getenv("PORT", "8686")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 10*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 30*time.Second)
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000/default")
	cfg.PostgresDSN = getenv("POSTGRES_DSN", "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable")
	cfg.ServiceName = getenv("SERVICE_NAME", "clinserve")

	// Clinical files can run to hundreds of thousands of rows; the cap is
	// on the whole multipart body, not individual rows.
	cfg.UploadMaxBytes = envInt64("UPLOAD_MAX_BYTES", 256<<20)

	cfg.CountCacheTTL = envDuration("COUNT_CACHE_TTL", 60*time.Second)

	// Postgres connection pooling configuration
	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)

	// ClickHouse connection pooling configuration
	// Higher than Postgres because bulk loads fan out concurrent inserts
	cfg.CHMaxOpenConns = envInt("CH_MAX_OPEN_CONNS", 50)
	cfg.CHMaxIdleConns = envInt("CH_MAX_IDLE_CONNS", 10)
	cfg.CHConnMaxLifetime = envDuration("CH_CONN_MAX_LIFETIME", 5*time.Minute)

	// Tracing configuration
	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.OTLPEndpoint = getenv("OTLP_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envInt64 parses a 64-bit integer environment variable. When unset or invalid, def is returned.
func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}
