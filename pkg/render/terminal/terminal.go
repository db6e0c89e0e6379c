// Package terminal renders chat turns, streamed responses and thread
// history as ANSI-styled text.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/term"

	"github.com/rhuss/docchat/pkg/api"
)

const (
	defaultWidth = 100

	// historyResponseLines is how many wrapped lines of an answer the
	// history view shows.
	historyResponseLines = 2
)

// Renderer prints chat output to a writer.
type Renderer struct {
	// Width overrides terminal width detection. Zero means auto-detect.
	Width int
}

// New creates a terminal Renderer.
func New() *Renderer {
	return &Renderer{}
}

// RenderWelcome prints the hint shown before the first question.
func (r *Renderer) RenderWelcome(w io.Writer, threadID string) {
	fmt.Fprintln(w, styleTitle.Render("Document Assistant")+"  "+styleMeta.Render(threadID))
	fmt.Fprintln(w, styleHint.Render(wrap(
		`Ask questions about your document. Try "What's the main point?" or "Summarize the key findings."`,
		r.contentWidth())))
}

// RenderTurn prints a completed question and its answer.
func (r *Renderer) RenderTurn(w io.Writer, turn api.Turn) {
	width := r.termWidth()
	writeSeparator(w, width)
	writeBlock(w, styleUserBadge.Render("YOU"), turn.UserMessage, r.contentWidth())
	if turn.AgentResponse != "" {
		writeBlock(w, styleAssistantBadge.Render("ASSISTANT"), turn.AgentResponse, r.contentWidth())
	}
}

// RenderQuestion prints only the user side of a turn, before its answer
// is streamed.
func (r *Renderer) RenderQuestion(w io.Writer, query string) {
	writeSeparator(w, r.termWidth())
	writeBlock(w, styleUserBadge.Render("YOU"), query, r.contentWidth())
}

// RenderHistory prints a numbered summary of a thread: one line of each
// question and at most two lines of each answer.
func (r *Renderer) RenderHistory(w io.Writer, turns []api.Turn) {
	width := r.contentWidth()

	fmt.Fprintln(w, styleTitle.Render("Chat History")+"  "+styleMeta.Render(pluralize(len(turns), "question")))
	if len(turns) == 0 {
		fmt.Fprintln(w, styleHint.Render("No questions asked yet."))
		return
	}

	for i, t := range turns {
		fmt.Fprintln(w)
		fmt.Fprintln(w, " "+styleMeta.Render(fmt.Sprintf("Question %d", i+1)))
		fmt.Fprintln(w, "  "+styleQuestion.Render(clamp(t.UserMessage, 1, width)))
		if t.AgentResponse != "" {
			for _, line := range strings.Split(clamp(t.AgentResponse, historyResponseLines, width), "\n") {
				fmt.Fprintln(w, "  "+styleMeta.Render(line))
			}
		}
	}
}

// RenderError prints a failed operation. Rate limits get a retry hint.
func (r *Renderer) RenderError(w io.Writer, err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	fmt.Fprintln(w, styleError.Render("Error: ")+msg)

	if apiErr != nil && apiErr.Type == api.ErrorTypeRateLimited {
		hint := "Please wait a moment before trying again."
		if apiErr.RetryAfter > 0 {
			hint = fmt.Sprintf("Retry in %s.", apiErr.RetryAfter.Round(time.Second))
		}
		fmt.Fprintln(w, styleWarn.Render(hint))
	}
}

// StreamWriter prints answer fragments as they arrive. Chunk can be passed
// directly as a streaming callback.
type StreamWriter struct {
	w       io.Writer
	mu      sync.Mutex
	started bool
	bytes   int
}

// NewStreamWriter starts an answer block on w.
func (r *Renderer) NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// Chunk writes one fragment. The assistant badge is printed before the
// first fragment.
func (s *StreamWriter) Chunk(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		fmt.Fprintln(s.w)
		fmt.Fprintln(s.w, " "+styleAssistantBadge.Render("ASSISTANT"))
		fmt.Fprint(s.w, "  ")
		s.started = true
	}
	// Keep continuation lines aligned with the block indent.
	fmt.Fprint(s.w, strings.ReplaceAll(chunk, "\n", "\n  "))
	s.bytes += len(chunk)
}

// End terminates the answer block. If the stream failed, a marker notes
// the answer is incomplete.
func (s *StreamWriter) End(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	if err != nil {
		fmt.Fprint(s.w, " "+styleWarn.Render("[incomplete]"))
	}
	fmt.Fprintln(s.w)
}

// Written returns the number of bytes of text written so far.
func (s *StreamWriter) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

func (r *Renderer) termWidth() int {
	if r.Width > 0 {
		return r.Width
	}
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

func (r *Renderer) contentWidth() int {
	return max(r.termWidth()-4, 20)
}

func writeSeparator(w io.Writer, width int) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, styleSeparator.Render(strings.Repeat("─", min(width, 72))))
}

// writeBlock prints a badge line followed by the wrapped, indented text.
func writeBlock(w io.Writer, badge, text string, width int) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, " "+badge)
	for _, line := range strings.Split(wrap(strings.TrimSpace(text), width), "\n") {
		fmt.Fprintln(w, "  "+line)
	}
}

func wrap(s string, width int) string {
	return ansi.Wrap(s, width, "")
}

// clamp wraps s to width and keeps at most n lines, marking cut text with "...".
func clamp(s string, n, width int) string {
	lines := strings.Split(wrap(strings.TrimSpace(s), width), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	lines = lines[:n]
	lines[n-1] = ellipsis(lines[n-1], width)
	return strings.Join(lines, "\n")
}

// ellipsis appends "..." to s, trimming it to fit within width.
func ellipsis(s string, width int) string {
	s = strings.TrimRight(s, " ")
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
