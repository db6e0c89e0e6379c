// Package config provides unified configuration for the docchat CLI and
// the mock backend.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. .env file in the working directory
//  3. YAML config file (discovered or explicitly specified)
//  4. Environment variable overrides (DOCCHAT_ prefix)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import "time"

// Config holds all configuration for docchat.
type Config struct {
	Backend       BackendConfig       `yaml:"backend"`
	Storage       StorageConfig       `yaml:"storage"`
	MockBackend   MockBackendConfig   `yaml:"mock_backend"`
	MCP           MCPConfig           `yaml:"mcp"`
	Log           LogConfig           `yaml:"log"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// BackendConfig describes the document chat backend the client talks to.
type BackendConfig struct {
	URL            string        `yaml:"url"`              // default: "http://localhost:8080"
	APIKey         string        `yaml:"api_key"`          // optional bearer key
	APIKeyFile     string        `yaml:"api_key_file"`     // _file variant for api_key
	Timeout        time.Duration `yaml:"timeout"`          // non-streaming calls, default: 120s
	ReadBufferSize int           `yaml:"read_buffer_size"` // default: 32768
	UserAgent      string        `yaml:"user_agent"`
}

// StorageConfig holds local transcript storage settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "none", "memory" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // threads kept by the memory store, default: 1000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// MockBackendConfig configures the local mock backend server.
type MockBackendConfig struct {
	Port          int           `yaml:"port"`           // default: 8080
	ReadTimeout   time.Duration `yaml:"read_timeout"`   // default: 30s
	WriteTimeout  time.Duration `yaml:"write_timeout"`  // default: 0 (streaming)
	RateLimitRPM  int           `yaml:"rate_limit_rpm"` // 0 disables limiting
	FragmentSize  int           `yaml:"fragment_size"`  // bytes per streamed fragment, default: 8
	FragmentDelay time.Duration `yaml:"fragment_delay"` // default: 20ms
	APIKey        string        `yaml:"api_key"`        // required bearer key if set
}

// MCPConfig holds settings for the MCP tool server.
type MCPConfig struct {
	HTTPAddr string `yaml:"http_addr"` // empty serves over stdio
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error", default: "info"
	Debug string `yaml:"debug"` // comma-separated debug categories, e.g. "client,stream"
}

// ObservabilityConfig holds monitoring settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			URL:            "http://localhost:8080",
			Timeout:        120 * time.Second,
			ReadBufferSize: 32 * 1024,
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 1000,
			Postgres: PostgresConfig{
				MaxConns:       10,
				MigrateOnStart: true,
			},
		},
		MockBackend: MockBackendConfig{
			Port:          8080,
			ReadTimeout:   30 * time.Second,
			FragmentSize:  8,
			FragmentDelay: 20 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
