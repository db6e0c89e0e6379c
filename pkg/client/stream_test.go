package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/docchat/pkg/api"
)

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// fragmentBody returns exactly one fragment per Read call, so tests control
// chunk boundaries precisely.
type fragmentBody struct {
	mu     sync.Mutex
	frags  [][]byte
	next   int
	reads  int
	closed bool
	err    error // returned after all fragments instead of io.EOF
}

func newFragmentBody(frags ...string) *fragmentBody {
	b := &fragmentBody{}
	for _, f := range frags {
		b.frags = append(b.frags, []byte(f))
	}
	return b
}

func (b *fragmentBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads++
	if b.next >= len(b.frags) {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.frags[b.next])
	b.next++
	return n, nil
}

func (b *fragmentBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fragmentBody) readCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads
}

// newFakeClient returns a client whose transport answers every request
// with the given status and body.
func newFakeClient(t *testing.T, status int, header http.Header, body io.ReadCloser) (*Client, *[]*http.Request) {
	t.Helper()
	var requests []*http.Request
	c, err := New(Config{
		BaseURL: "http://backend.test",
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Body != nil {
				raw, _ := io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(raw))
			}
			requests = append(requests, r)
			if header == nil {
				header = http.Header{}
			}
			return &http.Response{
				StatusCode: status,
				Header:     header,
				Body:       body,
				Request:    r,
			}, nil
		}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, &requests
}

// collector records fragments passed to onChunk.
type collector struct {
	mu     sync.Mutex
	chunks []string
}

func (c *collector) onChunk(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, s)
}

func (c *collector) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.chunks...)
}

func assertChunks(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("onChunk called %d times with %q, want %d times with %q", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func assertErrorType(t *testing.T, err error, want api.ErrorType) *api.APIError {
	t.Helper()
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.APIError, got %T: %v", err, err)
	}
	if apiErr.Type != want {
		t.Fatalf("error type = %q, want %q (%v)", apiErr.Type, want, err)
	}
	return apiErr
}

func TestSendMessage_ConcreteScenario(t *testing.T) {
	body := newFragmentBody("The main", " point is", " X.")
	c, reqs := newFakeClient(t, http.StatusOK, nil, body)

	var col collector
	full, err := c.SendMessage(context.Background(), "thread-abc", "What's the main point?", col.onChunk)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if full != "The main point is X." {
		t.Errorf("full = %q", full)
	}
	assertChunks(t, col.get(), []string{"The main", " point is", " X."})

	if len(*reqs) != 1 {
		t.Fatalf("expected exactly one request, got %d", len(*reqs))
	}
	r := (*reqs)[0]
	if r.Method != http.MethodPost || r.URL.Path != PathSendMessage {
		t.Errorf("request = %s %s", r.Method, r.URL.Path)
	}
	if ct := r.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var sent api.SendMessageRequest
	raw, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(raw, &sent); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if sent.ChatThreadID != "thread-abc" || sent.Query != "What's the main point?" {
		t.Errorf("payload = %+v", sent)
	}
	if !strings.Contains(string(raw), `"chatThreadId"`) {
		t.Errorf("payload must use chatThreadId key: %s", raw)
	}
	if !body.closed {
		t.Error("response body was not closed")
	}
}

func TestSendMessage_ConcatenationProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []string{"a", "b", " ", "é", "€", "😀", "\n", "X."}

	for round := 0; round < 50; round++ {
		n := rng.Intn(12)
		frags := make([]string, n)
		for i := range frags {
			var sb strings.Builder
			for j := 0; j <= rng.Intn(6); j++ {
				sb.WriteString(alphabet[rng.Intn(len(alphabet))])
			}
			frags[i] = sb.String()
		}

		c, _ := newFakeClient(t, http.StatusOK, nil, newFragmentBody(frags...))
		var col collector
		full, err := c.SendMessage(context.Background(), "t1", "q", col.onChunk)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if want := strings.Join(frags, ""); full != want {
			t.Fatalf("round %d: full = %q, want %q", round, full, want)
		}
		assertChunks(t, col.get(), frags)
	}
}

func TestSendMessage_SplitMultiByteAcrossFragments(t *testing.T) {
	euro := "€" // 3 bytes
	body := newFragmentBody("costs 5"+euro[:2], euro[2:]+" total")
	c, _ := newFakeClient(t, http.StatusOK, nil, body)

	var col collector
	full, err := c.SendMessage(context.Background(), "t1", "price?", col.onChunk)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if full != "costs 5€ total" {
		t.Errorf("full = %q", full)
	}
	if strings.ContainsRune(full, '�') {
		t.Error("split character decoded as replacement")
	}
	assertChunks(t, col.get(), []string{"costs 5", "€ total"})
}

func TestSendMessage_FragmentHoldingOnlyPartialCharacter(t *testing.T) {
	euro := "€"
	body := newFragmentBody(euro[:1], euro[1:2], euro[2:])
	c, _ := newFakeClient(t, http.StatusOK, nil, body)

	var col collector
	full, err := c.SendMessage(context.Background(), "t1", "q", col.onChunk)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if full != "€" {
		t.Errorf("full = %q", full)
	}
	assertChunks(t, col.get(), []string{"€"})
}

func TestSendMessage_EmptyStream(t *testing.T) {
	for name, body := range map[string]io.ReadCloser{
		"no fragments": newFragmentBody(),
		"http.NoBody":  http.NoBody,
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newFakeClient(t, http.StatusOK, nil, body)
			var col collector
			full, err := c.SendMessage(context.Background(), "t1", "q", col.onChunk)
			if err != nil {
				t.Fatalf("SendMessage: %v", err)
			}
			if full != "" {
				t.Errorf("full = %q, want empty", full)
			}
			assertChunks(t, col.get(), nil)
		})
	}
}

func TestSendMessage_NilCallback(t *testing.T) {
	c, _ := newFakeClient(t, http.StatusOK, nil, newFragmentBody("a", "b"))
	full, err := c.SendMessage(context.Background(), "t1", "q", nil)
	if err != nil || full != "ab" {
		t.Errorf("got %q, %v", full, err)
	}
}

func TestSendMessage_RateLimited(t *testing.T) {
	body := newFragmentBody("should", "not", "be", "read")
	header := http.Header{"Retry-After": []string{"7"}}
	c, _ := newFakeClient(t, http.StatusTooManyRequests, header, body)

	var col collector
	full, err := c.SendMessage(context.Background(), "t1", "q", col.onChunk)
	apiErr := assertErrorType(t, err, api.ErrorTypeRateLimited)

	if full != "" {
		t.Errorf("full = %q, want empty", full)
	}
	if apiErr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", apiErr.RetryAfter)
	}
	assertChunks(t, col.get(), nil)
	if body.readCount() != 0 {
		t.Errorf("body read %d times on error status", body.readCount())
	}
	if !api.IsRateLimited(err) {
		t.Error("api.IsRateLimited = false")
	}
}

func TestSendMessage_ErrorStatuses(t *testing.T) {
	for _, status := range []int{400, 401, 404, 500, 502, 503} {
		t.Run(fmt.Sprintf("HTTP %d", status), func(t *testing.T) {
			body := newFragmentBody(`{"error":"detail"}`)
			c, _ := newFakeClient(t, status, nil, body)

			var col collector
			full, err := c.SendMessage(context.Background(), "t1", "q", col.onChunk)
			apiErr := assertErrorType(t, err, api.ErrorTypeTransport)

			if full != "" {
				t.Errorf("full = %q", full)
			}
			if apiErr.StatusCode != status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, status)
			}
			want := fmt.Sprintf("failed to send chat message (HTTP %d)", status)
			if apiErr.Message != want {
				t.Errorf("Message = %q, want %q", apiErr.Message, want)
			}
			assertChunks(t, col.get(), nil)
			if body.readCount() != 0 {
				t.Error("error body must not be read")
			}
		})
	}
}

func TestSendMessage_NetworkFailure(t *testing.T) {
	c, err := New(Config{
		BaseURL: "http://backend.test",
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.SendMessage(context.Background(), "t1", "q", nil)
	apiErr := assertErrorType(t, err, api.ErrorTypeTransport)
	if apiErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Message, "connection refused") {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestSendMessage_ReadErrorIsAllOrNothing(t *testing.T) {
	body := newFragmentBody("partial ", "answer")
	body.err = errors.New("connection reset by peer")
	c, _ := newFakeClient(t, http.StatusOK, nil, body)

	var col collector
	full, err := c.SendMessage(context.Background(), "t1", "q", col.onChunk)
	assertErrorType(t, err, api.ErrorTypeTransport)

	if full != "" {
		t.Errorf("full = %q, want empty on failure", full)
	}
	// Fragments delivered before the failure stay with the caller.
	assertChunks(t, col.get(), []string{"partial ", "answer"})
}

func TestSendMessage_CancelAfterKFragments(t *testing.T) {
	frags := []string{"one ", "two ", "three ", "four"}

	for k := 0; k <= len(frags); k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			c, _ := newFakeClient(t, http.StatusOK, nil, newFragmentBody(frags...))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var col collector
			onChunk := func(s string) {
				col.onChunk(s)
				if len(col.get()) == k {
					cancel()
				}
			}
			if k == 0 {
				cancel()
			}

			full, err := c.SendMessage(ctx, "t1", "q", onChunk)
			assertErrorType(t, err, api.ErrorTypeCancelled)

			if !errors.Is(err, context.Canceled) {
				t.Error("cancelled error should wrap context.Canceled")
			}
			if full != "" {
				t.Errorf("full = %q, want empty", full)
			}
			assertChunks(t, col.get(), frags[:k])
		})
	}
}

func TestSendMessage_CancelWhileBlockedOnRead(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("first"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()

	c, err := New(DefaultConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var col collector
	onChunk := func(s string) {
		col.onChunk(s)
		time.AfterFunc(20*time.Millisecond, cancel)
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.SendMessage(ctx, "t1", "q", onChunk)
		done <- err
	}()

	select {
	case err := <-done:
		assertErrorType(t, err, api.ErrorTypeCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("SendMessage did not return after cancellation")
	}
	assertChunks(t, col.get(), []string{"first"})
}

func TestSendMessage_DeadlineExceeded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	// Runs before srv.Close so the handler cannot keep Close waiting.
	defer close(release)

	c, err := New(DefaultConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.SendMessage(ctx, "t1", "q", nil)
	assertErrorType(t, err, api.ErrorTypeCancelled)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded cause, got %v", err)
	}
}

func TestSendMessage_Validation(t *testing.T) {
	called := false
	c, err := New(Config{
		BaseURL: "http://backend.test",
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			called = true
			return nil, errors.New("unreachable")
		}),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.SendMessage(context.Background(), "", "q", nil)
	assertErrorType(t, err, api.ErrorTypeInvalidRequest)
	_, err = c.SendMessage(context.Background(), "t1", "  ", nil)
	assertErrorType(t, err, api.ErrorTypeInvalidRequest)

	if called {
		t.Error("no request must be sent for invalid input")
	}
}

func TestSendMessage_Charset(t *testing.T) {
	header := http.Header{"Content-Type": []string{"text/plain; charset=iso-8859-1"}}
	c, _ := newFakeClient(t, http.StatusOK, header, newFragmentBody("r\xe9sum\xe9"))

	full, err := c.SendMessage(context.Background(), "t1", "q", nil)
	if err != nil {
		t.Fatal(err)
	}
	if full != "résumé" {
		t.Errorf("full = %q", full)
	}
}

func TestSendMessage_DanglingBytesAtEnd(t *testing.T) {
	c, _ := newFakeClient(t, http.StatusOK, nil, newFragmentBody("done\xe2\x82"))

	var col collector
	full, err := c.SendMessage(context.Background(), "t1", "q", col.onChunk)
	if err != nil {
		t.Fatal(err)
	}
	assertChunks(t, col.get(), []string{"done", "�"})
	if full != "done�" {
		t.Errorf("full = %q", full)
	}
}

func TestSendMessage_HTTPStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathSendMessage {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, part := range []string{"Streaming ", "over ", "HTTP"} {
			w.Write([]byte(part))
			w.(http.Flusher).Flush()
		}
	}))
	defer srv.Close()

	c, err := New(DefaultConfig(srv.URL + "/"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var col collector
	full, err := c.SendMessage(context.Background(), "t1", "q", col.onChunk)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if full != "Streaming over HTTP" {
		t.Errorf("full = %q", full)
	}
	// Network reads may merge writes; the concatenation must still match.
	if got := strings.Join(col.get(), ""); got != full {
		t.Errorf("joined chunks = %q, want %q", got, full)
	}
}

func TestSendMessage_ConcurrentCallsAreIndependent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.SendMessageRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Write([]byte("answer to " + req.Query))
	}))
	defer srv.Close()

	c, err := New(DefaultConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := fmt.Sprintf("q%d", i)
			full, err := c.SendMessage(context.Background(), "same-thread", q, nil)
			if err != nil {
				errs <- err
				return
			}
			if full != "answer to "+q {
				errs <- fmt.Errorf("got %q for %s", full, q)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
