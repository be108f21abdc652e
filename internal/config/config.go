// Package config provides centralized configuration management for the tracker.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Store backends accepted by STORE_BACKEND.
const (
	BackendFile     = "file"
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Sheets   SheetsConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Stats    StatsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 5050)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"5050"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// StaticDir holds a built dashboard served for non-API paths. Empty disables it.
	StaticDir string `env:"SERVER_STATIC_DIR"`
}

// StoreConfig selects and tunes the application store.
type StoreConfig struct {
	// Backend is one of file, sheets, postgres, memory (default: file)
	Backend string `env:"STORE_BACKEND" default:"file"`

	// DataDir holds applications.json and settings.json (default: ./data)
	DataDir string `env:"STORE_DATA_DIR" default:"./data"`

	// CacheTTL bounds how stale a cached snapshot may get (default: 5m)
	CacheTTL time.Duration `env:"STORE_CACHE_TTL" default:"5m"`

	// WarmInterval refreshes the cache in the background. Zero disables it.
	WarmInterval time.Duration `env:"STORE_WARM_INTERVAL" default:"0s"`

	// MaxConcurrentWrites bounds parallel remote mutations (default: 1)
	MaxConcurrentWrites int `env:"STORE_MAX_CONCURRENT_WRITES" default:"1"`

	// MaxWriteWait is how long a mutation waits for a write slot (default: 30s)
	MaxWriteWait time.Duration `env:"STORE_MAX_WRITE_WAIT" default:"30s"`
}

// SheetsConfig holds Google Sheets settings for the sheets backend.
type SheetsConfig struct {
	// SpreadsheetID is the document id from the sheet URL
	SpreadsheetID string `env:"SHEETS_SPREADSHEET_ID" envAlt:"SPREADSHEET_ID"`

	// SheetName is the worksheet holding one application per row (default: Jobs)
	SheetName string `env:"SHEETS_SHEET_NAME" default:"Jobs"`

	// CredentialsFile is a service-account JSON key
	CredentialsFile string `env:"SHEETS_CREDENTIALS_FILE" envAlt:"GOOGLE_APPLICATION_CREDENTIALS"`
}

// DatabaseConfig holds database connection settings for the postgres backend.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// AuthConfig holds admin login settings.
type AuthConfig struct {
	// AdminPassword is the plain admin password
	AdminPassword string `env:"AUTH_ADMIN_PASSWORD" envAlt:"ADMIN_PASSWORD"`

	// AdminPasswordHash is a bcrypt hash; takes precedence over AdminPassword
	AdminPasswordHash string `env:"AUTH_ADMIN_PASSWORD_HASH"`

	// JWTSecret signs session tokens. Falls back to AdminPassword when unset.
	JWTSecret string `env:"AUTH_JWT_SECRET" envAlt:"JWT_SECRET"`

	// Issuer is the token issuer claim (default: jobtrack)
	Issuer string `env:"AUTH_ISSUER" default:"jobtrack"`

	// TokenTTL is the session length (default: 24h)
	TokenTTL time.Duration `env:"AUTH_TOKEN_TTL" default:"24h"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// LoginLimit is requests per minute for the login endpoint (default: 10)
	LoginLimit int `env:"RATE_LIMIT_LOGIN" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// CORSOrigins is a comma-separated list of allowed origins; "*" allows any
	CORSOrigins []string `env:"CORS_ORIGINS" default:"*"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// StatsConfig tunes the dashboard statistics.
type StatsConfig struct {
	// GhostAfter flags Applied records with no interview after this long (default: 504h, 21 days)
	GhostAfter time.Duration `env:"STATS_GHOST_AFTER" default:"504h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// TokenSecret returns the key used to sign session tokens.
func (c *AuthConfig) TokenSecret() string {
	if c.JWTSecret != "" {
		return c.JWTSecret
	}
	return c.AdminPassword
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
