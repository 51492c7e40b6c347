// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Media    MediaConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response.
	// Synchronous imports push rows to the CMS one at a time, so this
	// needs headroom well beyond a normal API call (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// DatabaseConfig holds audit database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RedisConfig holds job queue connection settings. An empty Addr
// disables the queue; every import then runs synchronously.
type RedisConfig struct {
	// Addr is the Redis host:port. Empty disables background jobs.
	Addr string `env:"REDIS_ADDR"`

	// Password is the Redis AUTH password, if any
	Password string `env:"REDIS_PASSWORD"`

	// DB is the Redis database number (default: 0)
	DB int `env:"REDIS_DB" default:"0"`
}

// CatalogConfig holds CMS backend settings.
type CatalogConfig struct {
	// URL is the CMS base URL (required)
	URL string `env:"CATALOG_URL" required:"true"`

	// Timeout bounds each individual CMS request (default: 30s)
	Timeout time.Duration `env:"CATALOG_TIMEOUT" default:"30s"`
}

// MediaConfig holds object storage settings for pre-signed upload URLs.
// An empty Endpoint leaves the media endpoints disabled.
type MediaConfig struct {
	// Endpoint is the object storage host:port
	Endpoint string `env:"MEDIA_ENDPOINT"`

	// AccessKey is the storage access key
	AccessKey string `env:"MEDIA_ACCESS_KEY"`

	// SecretKey is the storage secret key
	SecretKey string `env:"MEDIA_SECRET_KEY"`

	// Bucket is the bucket uploads land in (default: product-media)
	Bucket string `env:"MEDIA_BUCKET" default:"product-media"`

	// UseSSL controls TLS to object storage (default: false)
	UseSSL bool `env:"MEDIA_USE_SSL" default:"false"`

	// URLExpiry is how long issued upload URLs stay valid (default: 15m)
	URLExpiry time.Duration `env:"MEDIA_URL_EXPIRY" default:"15m"`
}

// ImportConfig holds import job retry settings. The synchronous row
// cutoff is a fixed pipeline constant, not configuration.
type ImportConfig struct {
	// RetryAttempts is how many times a crashed batch job runs in total (default: 3)
	RetryAttempts int `env:"IMPORT_RETRY_ATTEMPTS" default:"3"`

	// RetryBackoff is the delay before the first batch retry; it
	// doubles per subsequent retry (default: 5s)
	RetryBackoff time.Duration `env:"IMPORT_RETRY_BACKOFF" default:"5s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
