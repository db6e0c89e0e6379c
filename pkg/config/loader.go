package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of all docchat environment variables.
const EnvPrefix = "DOCCHAT_"

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. .env file in the working directory (never overrides the real environment)
//  3. YAML config file (explicit path, DOCCHAT_CONFIG env, ./docchat.yaml,
//     $XDG_CONFIG_HOME/docchat/config.yaml)
//  4. DOCCHAT_* environment variable overrides
//  5. File reference resolution (_file suffix)
//  6. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports variables from a .env file. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. DOCCHAT_CONFIG environment variable
// 3. ./docchat.yaml in the current directory
// 4. $XDG_CONFIG_HOME/docchat/config.yaml (or ~/.config/docchat/config.yaml)
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(EnvPrefix + "CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{"docchat.yaml"}
	if dir := userConfigDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "docchat", "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// userConfigDir prefers XDG_CONFIG_HOME on every platform.
func userConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return dir
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps DOCCHAT_* environment variables to config fields.
// Malformed numeric or duration values are reported together.
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("BACKEND_URL", &cfg.Backend.URL)
	str("API_KEY", &cfg.Backend.APIKey)
	str("API_KEY_FILE", &cfg.Backend.APIKeyFile)
	dur("BACKEND_TIMEOUT", &cfg.Backend.Timeout)
	str("STORAGE", &cfg.Storage.Type)
	num("STORAGE_SIZE", &cfg.Storage.MaxSize)
	str("POSTGRES_DSN", &cfg.Storage.Postgres.DSN)
	str("POSTGRES_DSN_FILE", &cfg.Storage.Postgres.DSNFile)
	num("MOCK_PORT", &cfg.MockBackend.Port)
	num("MOCK_RATE_LIMIT_RPM", &cfg.MockBackend.RateLimitRPM)
	num("MOCK_FRAGMENT_SIZE", &cfg.MockBackend.FragmentSize)
	dur("MOCK_FRAGMENT_DELAY", &cfg.MockBackend.FragmentDelay)
	str("MOCK_API_KEY", &cfg.MockBackend.APIKey)
	str("MCP_HTTP_ADDR", &cfg.MCP.HTTPAddr)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("DEBUG", &cfg.Log.Debug)

	if v := os.Getenv(EnvPrefix + "METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMETRICS_ENABLED: %w", EnvPrefix, err))
		} else {
			cfg.Observability.Metrics.Enabled = b
		}
	}

	return errors.Join(errs...)
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields when those are empty.
func resolveFileReferences(cfg *Config) error {
	if cfg.Backend.APIKeyFile != "" && cfg.Backend.APIKey == "" {
		val, err := readSecretFile(cfg.Backend.APIKeyFile)
		if err != nil {
			return fmt.Errorf("backend.api_key_file: %w", err)
		}
		cfg.Backend.APIKey = val
	}

	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
