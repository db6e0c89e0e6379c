package storage

import (
	"context"
	"time"

	"github.com/rhuss/docchat/pkg/api"
)

// TranscriptStore persists the question/answer turns of chat threads.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type TranscriptStore interface {
	// AppendTurn adds a completed turn to the end of a thread, creating
	// the thread on first use.
	AppendTurn(ctx context.Context, threadID string, turn api.Turn) error

	// ListTurns returns the turns of a thread, oldest first. Returns
	// ErrNotFound when the thread has none.
	ListTurns(ctx context.Context, threadID string) ([]api.Turn, error)

	// ListThreads returns a summary of every stored thread, most recently
	// updated first.
	ListThreads(ctx context.Context) ([]ThreadSummary, error)

	// DeleteThread removes a thread and all its turns. Returns ErrNotFound
	// when the thread does not exist.
	DeleteThread(ctx context.Context, threadID string) error

	// HealthCheck verifies the backing storage is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ThreadSummary describes one stored thread.
type ThreadSummary struct {
	ThreadID  string
	Turns     int
	UpdatedAt time.Time
}
