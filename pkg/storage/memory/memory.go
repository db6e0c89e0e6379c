// Package memory provides an in-memory implementation of storage.TranscriptStore
// for testing and single-process use. Turns are lost when the process exits.
// Optional LRU eviction limits the number of threads kept.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rhuss/docchat/pkg/api"
	"github.com/rhuss/docchat/pkg/storage"
)

// thread holds the turns of one chat thread and its metadata.
type thread struct {
	id        string
	turns     []api.Turn
	updatedAt time.Time
	lruElem   *list.Element // position in LRU list
}

// Store is an in-memory TranscriptStore with optional LRU eviction of
// whole threads.
type Store struct {
	mu      sync.Mutex
	threads map[string]*thread
	lruList *list.List // front = most recently used, back = least recently used
	maxSize int        // 0 = unlimited
	now     func() time.Time
}

var _ storage.TranscriptStore = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the least recently used thread is evicted
// when a new thread would exceed the limit.
func New(maxSize int) *Store {
	return &Store{
		threads: make(map[string]*thread),
		lruList: list.New(),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// AppendTurn adds a turn to the end of a thread.
func (s *Store) AppendTurn(_ context.Context, threadID string, turn api.Turn) error {
	if threadID == "" {
		return storage.ErrInvalidThread
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	th, ok := s.threads[threadID]
	if !ok {
		if s.maxSize > 0 && len(s.threads) >= s.maxSize {
			s.evictOldest()
		}
		th = &thread{id: threadID}
		th.lruElem = s.lruList.PushFront(threadID)
		s.threads[threadID] = th
	} else {
		s.lruList.MoveToFront(th.lruElem)
	}

	th.turns = append(th.turns, turn)
	th.updatedAt = s.now()
	return nil
}

// ListTurns returns a copy of the thread's turns, oldest first.
func (s *Store) ListTurns(_ context.Context, threadID string) ([]api.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	th, ok := s.threads[threadID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	s.lruList.MoveToFront(th.lruElem)

	out := make([]api.Turn, len(th.turns))
	copy(out, th.turns)
	return out, nil
}

// ListThreads returns all threads, most recently updated first.
func (s *Store) ListThreads(_ context.Context) ([]storage.ThreadSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]storage.ThreadSummary, 0, len(s.threads))
	for _, th := range s.threads {
		out = append(out, storage.ThreadSummary{
			ThreadID:  th.id,
			Turns:     len(th.turns),
			UpdatedAt: th.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ThreadID < out[j].ThreadID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// DeleteThread removes a thread.
func (s *Store) DeleteThread(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	th, ok := s.threads[threadID]
	if !ok {
		return storage.ErrNotFound
	}
	s.lruList.Remove(th.lruElem)
	delete(s.threads, threadID)
	return nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored threads.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

// evictOldest removes the least recently used thread. Must be called with mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}
	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.threads, id)
}
