// Package postgres provides a PostgreSQL implementation of storage.TranscriptStore
// using pgx/v5 connection pooling. Each turn is one row in chat_turns, and
// chat_threads tracks per-thread timestamps.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/docchat/pkg/api"
	"github.com/rhuss/docchat/pkg/storage"
)

// Store is a PostgreSQL-backed TranscriptStore.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.TranscriptStore = (*Store)(nil)

// New creates a PostgreSQL store. If MigrateOnStart is set, pending schema
// migrations are applied before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// AppendTurn inserts a turn and bumps the thread's updated_at.
func (s *Store) AppendTurn(ctx context.Context, threadID string, turn api.Turn) error {
	if threadID == "" {
		return storage.ErrInvalidThread
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat_threads (thread_id) VALUES ($1)
			ON CONFLICT (thread_id) DO UPDATE SET updated_at = now()
		`, threadID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO chat_turns (thread_id, user_message, agent_response)
			VALUES ($1, $2, $3)
		`, threadID, turn.UserMessage, turn.AgentResponse)
		return err
	})
	if err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}
	return nil
}

// ListTurns returns the thread's turns in insertion order.
func (s *Store) ListTurns(ctx context.Context, threadID string) ([]api.Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_message, agent_response
		FROM chat_turns
		WHERE thread_id = $1
		ORDER BY id
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}

	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (api.Turn, error) {
		var t api.Turn
		err := row.Scan(&t.UserMessage, &t.AgentResponse)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning turns: %w", err)
	}
	if len(turns) == 0 {
		return nil, storage.ErrNotFound
	}
	return turns, nil
}

// ListThreads returns all threads, most recently updated first.
func (s *Store) ListThreads(ctx context.Context) ([]storage.ThreadSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.thread_id, COUNT(c.id), t.updated_at
		FROM chat_threads t
		LEFT JOIN chat_turns c ON c.thread_id = t.thread_id
		GROUP BY t.thread_id, t.updated_at
		ORDER BY t.updated_at DESC, t.thread_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying threads: %w", err)
	}

	threads, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.ThreadSummary, error) {
		var (
			ts      storage.ThreadSummary
			count   int64
			updated time.Time
		)
		err := row.Scan(&ts.ThreadID, &count, &updated)
		ts.Turns = int(count)
		ts.UpdatedAt = updated
		return ts, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning threads: %w", err)
	}
	return threads, nil
}

// DeleteThread removes a thread and its turns.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	var deleted int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM chat_turns WHERE thread_id = $1", threadID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, "DELETE FROM chat_threads WHERE thread_id = $1", threadID)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting thread: %w", err)
	}
	if deleted == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
