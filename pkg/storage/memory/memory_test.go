package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/docchat/pkg/api"
	"github.com/rhuss/docchat/pkg/storage"
)

func turn(n int) api.Turn {
	return api.Turn{
		UserMessage:   fmt.Sprintf("question %d", n),
		AgentResponse: fmt.Sprintf("answer %d", n),
	}
}

func TestAppendAndList(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := s.AppendTurn(ctx, "thread_a", turn(i)); err != nil {
			t.Fatalf("AppendTurn(%d) failed: %v", i, err)
		}
	}

	got, err := s.ListTurns(ctx, "thread_a")
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(turns) = %d, want 3", len(got))
	}
	for i, tr := range got {
		if tr != turn(i+1) {
			t.Errorf("turns[%d] = %+v, want %+v", i, tr, turn(i+1))
		}
	}
}

func TestListReturnsCopy(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	_ = s.AppendTurn(ctx, "thread_a", turn(1))

	got, _ := s.ListTurns(ctx, "thread_a")
	got[0].AgentResponse = "mutated"

	again, _ := s.ListTurns(ctx, "thread_a")
	if again[0].AgentResponse != "answer 1" {
		t.Errorf("stored turn was mutated through returned slice: %q", again[0].AgentResponse)
	}
}

func TestListNotFound(t *testing.T) {
	s := New(0)
	_, err := s.ListTurns(context.Background(), "thread_missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendEmptyThreadID(t *testing.T) {
	s := New(0)
	err := s.AppendTurn(context.Background(), "", turn(1))
	if !errors.Is(err, storage.ErrInvalidThread) {
		t.Errorf("expected ErrInvalidThread, got %v", err)
	}
}

func TestDeleteThread(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	_ = s.AppendTurn(ctx, "thread_a", turn(1))

	if err := s.DeleteThread(ctx, "thread_a"); err != nil {
		t.Fatalf("DeleteThread failed: %v", err)
	}
	if _, err := s.ListTurns(ctx, "thread_a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteThread(ctx, "thread_a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestLRUEviction(t *testing.T) {
	s := New(2)
	ctx := context.Background()

	_ = s.AppendTurn(ctx, "thread_1", turn(1))
	_ = s.AppendTurn(ctx, "thread_2", turn(1))

	// Touch thread_1 so thread_2 becomes the eviction candidate.
	if _, err := s.ListTurns(ctx, "thread_1"); err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}

	_ = s.AppendTurn(ctx, "thread_3", turn(1))

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if _, err := s.ListTurns(ctx, "thread_2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("thread_2 should have been evicted, got %v", err)
	}
	if _, err := s.ListTurns(ctx, "thread_1"); err != nil {
		t.Errorf("thread_1 should survive: %v", err)
	}
	if _, err := s.ListTurns(ctx, "thread_3"); err != nil {
		t.Errorf("thread_3 should survive: %v", err)
	}
}

func TestAppendToExistingDoesNotEvict(t *testing.T) {
	s := New(1)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_ = s.AppendTurn(ctx, "thread_1", turn(i))
	}

	got, err := s.ListTurns(ctx, "thread_1")
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("len(turns) = %d, want 5", len(got))
	}
}

func TestListThreadsOrdering(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	_ = s.AppendTurn(ctx, "thread_old", turn(1))
	_ = s.AppendTurn(ctx, "thread_new", turn(1))
	_ = s.AppendTurn(ctx, "thread_old", turn(2))

	threads, err := s.ListThreads(ctx)
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("len(threads) = %d, want 2", len(threads))
	}
	if threads[0].ThreadID != "thread_old" || threads[0].Turns != 2 {
		t.Errorf("threads[0] = %+v, want thread_old with 2 turns", threads[0])
	}
	if threads[1].ThreadID != "thread_new" || threads[1].Turns != 1 {
		t.Errorf("threads[1] = %+v, want thread_new with 1 turn", threads[1])
	}
}

func TestConcurrentAppend(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.AppendTurn(ctx, "thread_shared", turn(n))
		}(i)
	}
	wg.Wait()

	got, err := s.ListTurns(ctx, "thread_shared")
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(got) != 50 {
		t.Errorf("len(turns) = %d, want 50", len(got))
	}
}
