// Package config provides configuration management for the paper search gateway.
package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	clearEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 12312, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, "data/config.json", cfg.Server.ConfigDocumentPath)

	// Database defaults
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "searchgw", cfg.Database.User)
	assert.Equal(t, "paper_search_gateway", cfg.Database.Name)
	assert.Equal(t, SSLModeRequire, cfg.Database.SSLMode)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, int32(2), cfg.Database.MinConns)

	// Retrieval defaults
	assert.Equal(t, "http://localhost:25620/api/api", cfg.Retrieval.BaseURL)
	assert.Equal(t, 50, cfg.Retrieval.TopK)
	assert.Equal(t, 120*time.Second, cfg.Retrieval.SearchTimeout)
	assert.Equal(t, 180*time.Second, cfg.Retrieval.DeepSearchTimeout)
	assert.Equal(t, 2, cfg.Retrieval.MaxRetries)

	// Cache, enrichment and samples defaults
	assert.Equal(t, "data/deep_search_cache.json", cfg.Cache.Path)
	assert.Equal(t, int64(10), cfg.Enrichment.MaxConcurrentLookups)
	assert.Equal(t, "data/test_data.json", cfg.Samples.Path)
	assert.Equal(t, 5, cfg.Samples.Repeat)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)

	// Set environment variables with SEARCHGW prefix
	t.Setenv("SEARCHGW_SERVER_HTTP_PORT", "8888")
	t.Setenv("SEARCHGW_DATABASE_HOST", "db.example.com")
	t.Setenv("SEARCHGW_DATABASE_PORT", "5433")
	t.Setenv("SEARCHGW_DATABASE_USER", "testuser")
	t.Setenv("SEARCHGW_DATABASE_PASSWORD", "testpass")
	t.Setenv("SEARCHGW_DATABASE_NAME", "testdb")
	t.Setenv("SEARCHGW_DATABASE_SSL_MODE", "disable")
	t.Setenv("SEARCHGW_RETRIEVAL_BASE_URL", "http://retrieval.internal:9000/api")
	t.Setenv("SEARCHGW_RETRIEVAL_TOP_K", "25")
	t.Setenv("SEARCHGW_STATS_URL", "http://stats.internal/update_time")
	t.Setenv("SEARCHGW_CACHE_PATH", "/var/cache/searchgw/deep_search.json")
	t.Setenv("SEARCHGW_ENRICHMENT_MAX_CONCURRENT_LOOKUPS", "4")
	t.Setenv("SEARCHGW_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "testuser", cfg.Database.User)
	assert.Equal(t, "testpass", cfg.Database.Password)
	assert.Equal(t, "testdb", cfg.Database.Name)
	assert.Equal(t, SSLModeDisable, cfg.Database.SSLMode)
	assert.Equal(t, "http://retrieval.internal:9000/api", cfg.Retrieval.BaseURL)
	assert.Equal(t, 25, cfg.Retrieval.TopK)
	assert.Equal(t, "http://stats.internal/update_time", cfg.Stats.URL)
	assert.Equal(t, "/var/cache/searchgw/deep_search.json", cfg.Cache.Path)
	assert.Equal(t, int64(4), cfg.Enrichment.MaxConcurrentLookups)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name: "HTTP port zero",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 0
			},
			expectedErr: "invalid HTTP port: 0",
		},
		{
			name: "HTTP port negative",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = -1
			},
			expectedErr: "invalid HTTP port: -1",
		},
		{
			name: "HTTP port too high",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 70000
			},
			expectedErr: "invalid HTTP port: 70000",
		},
		{
			name: "metrics port invalid",
			modifyFunc: func(c *Config) {
				c.Server.MetricsPort = -5
			},
			expectedErr: "invalid metrics port: -5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_DatabaseConfig(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name: "empty database host",
			modifyFunc: func(c *Config) {
				c.Database.Host = ""
			},
			expectedErr: "database host is required",
		},
		{
			name: "empty database name",
			modifyFunc: func(c *Config) {
				c.Database.Name = ""
			},
			expectedErr: "database name is required",
		},
		{
			name: "max_conns less than min_conns",
			modifyFunc: func(c *Config) {
				c.Database.MaxConns = 5
				c.Database.MinConns = 10
			},
			expectedErr: "max_conns (5) must be >= min_conns (10)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_RetrievalConfig(t *testing.T) {
	t.Run("empty base URL", func(t *testing.T) {
		cfg := validConfig()
		cfg.Retrieval.BaseURL = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retrieval base URL is required")
	})

	t.Run("non-positive top_k", func(t *testing.T) {
		cfg := validConfig()
		cfg.Retrieval.TopK = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retrieval top_k must be positive")
	})

	t.Run("non-positive timeouts", func(t *testing.T) {
		cfg := validConfig()
		cfg.Retrieval.SearchTimeout = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retrieval timeouts must be positive")
	})
}

func TestValidate_EnrichmentAndCache(t *testing.T) {
	t.Run("non-positive lookup limit", func(t *testing.T) {
		cfg := validConfig()
		cfg.Enrichment.MaxConcurrentLookups = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_concurrent_lookups must be positive")
	})

	t.Run("empty cache path", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cache.Path = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache path is required")
	})

	t.Run("non-positive samples repeat", func(t *testing.T) {
		cfg := validConfig()
		cfg.Samples.Repeat = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "samples repeat must be positive")
	})
}

func TestValidate_LogLevel(t *testing.T) {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}
	for _, level := range validLevels {
		t.Run("valid_"+level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logging.Level = level
			err := cfg.Validate()
			assert.NoError(t, err)
		})
	}

	t.Run("invalid log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Level = "invalid"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level: invalid")
	})
}

func TestDatabaseConfig_DSN_Escaping(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user@domain",
		Password: "p@ss:word/1",
		Name:     "paper_search_gateway",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "user%40domain")
	assert.Contains(t, dsn, "p%40ss%3Aword%2F1")
	assert.Contains(t, dsn, "sslmode=disable")
}

// clearEnvVars unsets every SEARCHGW_-prefixed environment variable.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "SEARCHGW_") {
			key, _, _ := strings.Cut(env, "=")
			os.Unsetenv(key)
		}
	}
}

// validConfig returns a valid configuration for testing
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    12312,
			MetricsPort: 9091,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "searchgw",
			Name:     "paper_search_gateway",
			SSLMode:  SSLModeRequire,
			MaxConns: 20,
			MinConns: 2,
		},
		Retrieval: RetrievalConfig{
			BaseURL:           "http://localhost:25620/api/api",
			TopK:              50,
			SearchTimeout:     120 * time.Second,
			DeepSearchTimeout: 180 * time.Second,
		},
		Cache: CacheConfig{
			Path: "data/deep_search_cache.json",
		},
		Enrichment: EnrichmentConfig{
			MaxConcurrentLookups: 10,
		},
		Samples: SamplesConfig{
			Repeat: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
