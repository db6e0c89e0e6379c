// Package chat holds the state of one document chat: the processed asset,
// the backend thread, the completed turns and the response currently being
// streamed. A Session serializes sends on its thread.
package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rhuss/docchat/pkg/api"
	"github.com/rhuss/docchat/pkg/client"
	"github.com/rhuss/docchat/pkg/storage"
)

// ErrBusy is returned by Send while another send is in flight.
var ErrBusy = errors.New("a message is already being sent")

// Backend is the subset of the backend client a Session needs.
// *client.Client implements it.
type Backend interface {
	ProcessDocument(ctx context.Context, filename string, content io.Reader) (string, error)
	StartSession(ctx context.Context, assetID string) (string, error)
	SendMessage(ctx context.Context, chatThreadID, query string, onChunk client.ChunkFunc) (string, error)
	History(ctx context.Context, chatThreadID string) ([]api.Turn, error)
}

var _ Backend = (*client.Client)(nil)

// Option configures a Session.
type Option func(*Session)

// WithStore records every completed turn in the given transcript store.
func WithStore(store storage.TranscriptStore) Option {
	return func(s *Session) { s.store = store }
}

// WithLogger sets the logger used for non-fatal problems.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// Session is safe for concurrent use.
type Session struct {
	backend Backend
	store   storage.TranscriptStore
	logger  *slog.Logger

	mu       sync.Mutex
	assetID  string
	threadID string
	messages []api.Turn
	busy     bool
	partial  strings.Builder
	lastErr  error
}

// NewSession creates an empty session bound to a backend.
func NewSession(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start uploads a document and opens a new chat thread for it. Messages
// from any previous thread are discarded.
func (s *Session) Start(ctx context.Context, filename string, content io.Reader) error {
	assetID, err := s.backend.ProcessDocument(ctx, filename, content)
	if err != nil {
		s.setError(err)
		return err
	}
	threadID, err := s.backend.StartSession(ctx, assetID)
	if err != nil {
		s.setError(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.assetID = assetID
	s.threadID = threadID
	s.messages = nil
	s.partial.Reset()
	s.lastErr = nil
	return nil
}

// Attach binds the session to an existing thread without contacting the
// backend. Call Restore to load its history.
func (s *Session) Attach(threadID string) error {
	if err := api.ValidateThreadID(threadID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assetID = ""
	s.threadID = threadID
	s.messages = nil
	s.partial.Reset()
	s.lastErr = nil
	return nil
}

// Send streams one query on the current thread. Each decoded fragment is
// appended to Partial before onChunk is called. On success the turn is
// appended to Messages and, when configured, to the transcript store. On
// failure the error becomes LastError and the partial response stays
// available. Once Start, Attach or Reset moves the session to another
// thread, the send no longer touches Partial, Messages or LastError.
func (s *Session) Send(ctx context.Context, query string, onChunk client.ChunkFunc) (string, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return "", ErrBusy
	}
	req := &api.SendMessageRequest{ChatThreadID: s.threadID, Query: query}
	if verr := api.ValidateSendMessage(req); verr != nil {
		s.mu.Unlock()
		return "", verr
	}
	threadID := s.threadID
	s.busy = true
	s.partial.Reset()
	s.lastErr = nil
	s.mu.Unlock()

	full, err := s.backend.SendMessage(ctx, threadID, query, func(chunk string) {
		s.mu.Lock()
		// Fragments of a send that outlived its thread are not shown.
		if s.threadID == threadID {
			s.partial.WriteString(chunk)
		}
		s.mu.Unlock()
		if onChunk != nil {
			onChunk(chunk)
		}
	})

	s.mu.Lock()
	s.busy = false
	if err != nil {
		if s.threadID == threadID {
			s.lastErr = err
		}
		s.mu.Unlock()
		return "", err
	}
	turn := api.Turn{UserMessage: query, AgentResponse: full}
	// A concurrent Start, Attach or Reset moved the session elsewhere.
	if s.threadID == threadID {
		s.messages = append(s.messages, turn)
		s.partial.Reset()
	}
	s.mu.Unlock()

	if s.store != nil {
		if serr := s.store.AppendTurn(ctx, threadID, turn); serr != nil {
			s.logger.Warn("failed to record turn", "thread", threadID, "error", serr)
		}
	}
	return full, nil
}

// Restore replaces the session's messages with the thread history from
// the backend when that history is non-empty. If the backend call fails
// and the transcript store holds turns for the thread, those are used
// instead and the backend error is kept as LastError.
func (s *Session) Restore(ctx context.Context) ([]api.Turn, error) {
	threadID := s.ThreadID()
	if err := api.ValidateThreadID(threadID); err != nil {
		return nil, err
	}

	history, err := s.backend.History(ctx, threadID)
	if err != nil {
		s.setError(err)
		if local, ok := s.localTurns(ctx, threadID); ok {
			s.logger.Warn("backend history unavailable, using local transcript",
				"thread", threadID, "turns", len(local), "error", err)
			s.replaceMessages(threadID, local)
			return cloneTurns(local), nil
		}
		return nil, err
	}

	if len(history) > 0 {
		s.replaceMessages(threadID, history)
	}
	return cloneTurns(history), nil
}

// Reset clears the asset, thread, messages and errors.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assetID = ""
	s.threadID = ""
	s.messages = nil
	s.partial.Reset()
	s.lastErr = nil
}

// AssetID returns the processed document's asset ID.
func (s *Session) AssetID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assetID
}

// ThreadID returns the current chat thread ID.
func (s *Session) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// Messages returns a copy of the completed turns.
func (s *Session) Messages() []api.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTurns(s.messages)
}

// Busy reports whether a send is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Partial returns the text streamed so far for the current or last failed send.
func (s *Session) Partial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partial.String()
}

// LastError returns the error of the most recent failed operation, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

func (s *Session) replaceMessages(threadID string, turns []api.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.threadID == threadID {
		s.messages = cloneTurns(turns)
	}
}

func (s *Session) localTurns(ctx context.Context, threadID string) ([]api.Turn, bool) {
	if s.store == nil {
		return nil, false
	}
	turns, err := s.store.ListTurns(ctx, threadID)
	if err != nil || len(turns) == 0 {
		return nil, false
	}
	return turns, true
}

func cloneTurns(in []api.Turn) []api.Turn {
	if in == nil {
		return nil
	}
	out := make([]api.Turn, len(in))
	copy(out, in)
	return out
}
