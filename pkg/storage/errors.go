package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a chat thread has no stored turns.
	ErrNotFound = errors.New("thread not found")

	// ErrInvalidThread is returned when a thread ID is empty.
	ErrInvalidThread = errors.New("thread ID is required")
)
