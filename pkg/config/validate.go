package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported at once, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Backend.URL == "" {
		errs = append(errs, fmt.Errorf("backend.url is required"))
	} else if u, err := url.Parse(c.Backend.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.url must be an absolute http(s) URL, got %q", c.Backend.URL))
	}

	if c.Backend.Timeout < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout must be >= 0, got %v", c.Backend.Timeout))
	}
	if c.Backend.ReadBufferSize < 0 {
		errs = append(errs, fmt.Errorf("backend.read_buffer_size must be >= 0, got %d", c.Backend.ReadBufferSize))
	}

	switch c.Storage.Type {
	case "none", "memory", "postgres":
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"none\", \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}
	if c.Storage.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("storage.max_size must be >= 0, got %d", c.Storage.MaxSize))
	}
	if c.Storage.Type == "postgres" && c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
		errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
	}

	if c.MockBackend.Port <= 0 || c.MockBackend.Port > 65535 {
		errs = append(errs, fmt.Errorf("mock_backend.port must be in 1..65535, got %d", c.MockBackend.Port))
	}
	if c.MockBackend.RateLimitRPM < 0 {
		errs = append(errs, fmt.Errorf("mock_backend.rate_limit_rpm must be >= 0, got %d", c.MockBackend.RateLimitRPM))
	}
	if c.MockBackend.FragmentSize <= 0 {
		errs = append(errs, fmt.Errorf("mock_backend.fragment_size must be > 0, got %d", c.MockBackend.FragmentSize))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}
