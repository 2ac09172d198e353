// Package config provides configuration management for the paper search gateway.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the paper search gateway.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Retrieval contains settings for the remote retrieval service.
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	// Stats contains settings for the database-statistics service.
	Stats StatsConfig `mapstructure:"stats"`
	// Cache contains file-backed result cache settings.
	Cache CacheConfig `mapstructure:"cache"`
	// Enrichment contains result-enrichment settings.
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	// Samples contains fallback sample data settings.
	Samples SamplesConfig `mapstructure:"samples"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 12312).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response.
	// Deep-search requests wait on the retrieval service, so this must
	// comfortably exceed retrieval.deep_search_timeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the maximum duration to keep idle connections open.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// ConfigDocumentPath is the path to the static JSON document served by /api/config.
	ConfigDocumentPath string `mapstructure:"config_document_path"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 20).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// RetrievalConfig holds settings for the remote retrieval service.
type RetrievalConfig struct {
	// BaseURL is the base URL of the retrieval API.
	BaseURL string `mapstructure:"base_url"`
	// TopK is the number of results requested per plain search (default: 50).
	TopK int `mapstructure:"top_k"`
	// SearchTimeout is the wall-clock timeout for /api/search retrieval calls.
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
	// DeepSearchTimeout is the wall-clock timeout for /api/deep_search retrieval calls.
	DeepSearchTimeout time.Duration `mapstructure:"deep_search_timeout"`
	// RateLimit is the maximum outbound requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the maximum burst of outbound requests allowed.
	BurstSize int `mapstructure:"burst_size"`
	// MaxRetries is the maximum number of retry attempts on 429/5xx responses.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// StatsConfig holds settings for the database-statistics service.
type StatsConfig struct {
	// URL is the full URL of the statistics endpoint.
	URL string `mapstructure:"url"`
	// Timeout is the timeout for statistics calls.
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds file-backed result cache settings.
type CacheConfig struct {
	// Path is the location of the JSON cache file.
	Path string `mapstructure:"path"`
}

// EnrichmentConfig holds result-enrichment settings.
type EnrichmentConfig struct {
	// MaxConcurrentLookups caps simultaneous database lookups across all
	// in-flight enrichment work, protecting the connection pool from
	// unbounded fan-out over large result sets.
	MaxConcurrentLookups int64 `mapstructure:"max_concurrent_lookups"`
}

// SamplesConfig holds fallback sample data settings.
type SamplesConfig struct {
	// Path is the location of the sample result JSON file.
	Path string `mapstructure:"path"`
	// Repeat is how many times the sample list is repeated in a fallback response.
	Repeat int `mapstructure:"repeat"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("SEARCHGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-search-gateway")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 12312)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "4m")
	v.SetDefault("server.idle_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.config_document_path", "data/config.json")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "searchgw")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "paper_search_gateway")
	// Default to "require" for production security. Use SEARCHGW_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Retrieval defaults
	v.SetDefault("retrieval.base_url", "http://localhost:25620/api/api")
	v.SetDefault("retrieval.top_k", 50)
	v.SetDefault("retrieval.search_timeout", "120s")
	v.SetDefault("retrieval.deep_search_timeout", "180s")
	v.SetDefault("retrieval.rate_limit", 10.0)
	v.SetDefault("retrieval.burst_size", 10)
	v.SetDefault("retrieval.max_retries", 2)
	v.SetDefault("retrieval.retry_delay", "1s")

	// Stats defaults
	v.SetDefault("stats.url", "")
	v.SetDefault("stats.timeout", "30s")

	// Cache defaults
	v.SetDefault("cache.path", "data/deep_search_cache.json")

	// Enrichment defaults
	v.SetDefault("enrichment.max_concurrent_lookups", 10)

	// Samples defaults
	v.SetDefault("samples.path", "data/test_data.json")
	v.SetDefault("samples.repeat", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate retrieval config
	if c.Retrieval.BaseURL == "" {
		return fmt.Errorf("retrieval base URL is required")
	}
	if _, err := url.Parse(c.Retrieval.BaseURL); err != nil {
		return fmt.Errorf("invalid retrieval base URL: %w", err)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive")
	}
	if c.Retrieval.SearchTimeout <= 0 || c.Retrieval.DeepSearchTimeout <= 0 {
		return fmt.Errorf("retrieval timeouts must be positive")
	}

	// Validate enrichment config
	if c.Enrichment.MaxConcurrentLookups <= 0 {
		return fmt.Errorf("enrichment max_concurrent_lookups must be positive")
	}

	// Validate cache config
	if c.Cache.Path == "" {
		return fmt.Errorf("cache path is required")
	}

	// Validate samples config
	if c.Samples.Repeat <= 0 {
		return fmt.Errorf("samples repeat must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}
