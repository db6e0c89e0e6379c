package client

import (
	"net/http"
	"time"
)

// Config holds configuration for the backend client.
type Config struct {
	// BaseURL is the backend address (e.g., "http://localhost:9090").
	BaseURL string

	// APIKey is sent as a bearer token when set (optional).
	APIKey string

	// Timeout for non-streaming requests. Defaults to 120s. Message
	// streams are bounded by the caller's context only.
	Timeout time.Duration

	// ReadBufferSize is the size of a single body read while streaming.
	// Defaults to 32 KiB.
	ReadBufferSize int

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Transport replaces http.DefaultTransport (optional).
	Transport http.RoundTripper
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		Timeout:        120 * time.Second,
		ReadBufferSize: 32 * 1024,
	}
}
