package mockbackend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// excerptLimit bounds the document excerpt quoted in answers.
const excerptLimit = 160

// composeAnswer builds the deterministic reply to query about doc. The
// same inputs always produce the same text.
func composeAnswer(doc *asset, query string, turn int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Answer %d about %q: ", turn, doc.filename)

	switch q := strings.ToLower(query); {
	case strings.Contains(q, "summar"), strings.Contains(q, "main point"):
		fmt.Fprintf(&b, "the document opens with “%s”", excerpt(doc.content))
	case strings.Contains(q, "size"), strings.Contains(q, "how long"):
		fmt.Fprintf(&b, "the document is %d bytes long", len(doc.content))
	default:
		fmt.Fprintf(&b, "you asked “%s”. The most relevant passage is “%s”",
			strings.TrimSpace(query), excerpt(doc.content))
	}
	b.WriteString(" ✓")
	return b.String()
}

// excerpt returns the first sentence of content, bounded by excerptLimit
// bytes without splitting a UTF-8 sequence.
func excerpt(content []byte) string {
	if !utf8.Valid(content) {
		return fmt.Sprintf("%d bytes of binary content", len(content))
	}
	s := strings.Join(strings.Fields(string(content)), " ")
	if s == "" {
		return "an empty page"
	}
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		s = s[:i+1]
	}
	if len(s) > excerptLimit {
		cut := excerptLimit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "…"
	}
	return s
}

// fragments splits text into pieces of at most size bytes. Pieces may end
// inside a multi-byte character, as a real network stream can.
func fragments(text string, size int) []string {
	if size <= 0 {
		size = len(text)
	}
	var out []string
	for len(text) > size {
		out = append(out, text[:size])
		text = text[size:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// streamText writes the fragments of text, flushing after each one and
// pausing delay between them. Returns the number of bytes written, and
// the context error if the client went away.
func streamText(ctx context.Context, w http.ResponseWriter, text string, size int, delay time.Duration) (int, error) {
	flusher, _ := w.(http.Flusher)
	written := 0
	for i, frag := range fragments(text, size) {
		if i > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return written, ctx.Err()
			case <-timer.C:
			}
		}
		n, err := w.Write([]byte(frag))
		written += n
		if err != nil {
			return written, err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return written, ctx.Err()
}
