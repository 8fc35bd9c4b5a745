package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Scheduling    SchedulingConfig    `mapstructure:"scheduling"`
	Confirmations ConfirmationsConfig `mapstructure:"confirmations"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	MCP           MCPConfig           `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig represents the PostgreSQL connection used for checklist snapshots
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents checklist cache configuration. An empty RedisURL disables the Redis tier.
type CacheConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	MemoryMaxItems int           `mapstructure:"memory_max_items"`
	DefaultTTL     time.Duration `mapstructure:"default_ttl"`
	RedisURL       string        `mapstructure:"redis_url"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	PoolSize       int           `mapstructure:"pool_size"`
}

// CatalogConfig selects the guideline table. An empty Path uses the built-in table.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// SchedulingConfig maps screening categories to booking location ids
type SchedulingConfig struct {
	Locations map[string]string `mapstructure:"locations"`
}

// ConfirmationsConfig selects the recency confirmation store
type ConfirmationsConfig struct {
	Driver      string `mapstructure:"driver"` // "sqlite", "postgres" or "none"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresURL string `mapstructure:"postgres_url"`
}

// RateLimitConfig represents per-client request limits
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
