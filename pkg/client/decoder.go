package client

import (
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const minDecodeBuffer = 256

// Decoder converts a sequence of byte chunks into text. Bytes of a
// multi-byte character split across two chunks are held back until the
// rest of the character arrives, so each call returns only complete
// characters. Invalid input decodes to U+FFFD.
//
// A Decoder is owned by a single stream and is not safe for concurrent use.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	out     []byte
}

// NewDecoder returns a Decoder for enc. A nil enc means UTF-8.
func NewDecoder(enc encoding.Encoding) *Decoder {
	if enc == nil {
		enc = unicode.UTF8
	}
	return &Decoder{
		t:   enc.NewDecoder(),
		out: make([]byte, minDecodeBuffer),
	}
}

// Decode decodes the next chunk. The result may be empty when p holds only
// the beginning of a character.
func (d *Decoder) Decode(p []byte) (string, error) {
	return d.decode(p, false)
}

// Flush decodes whatever is still held back, at end of stream. A dangling
// partial character becomes U+FFFD. The decoder is reset afterwards.
func (d *Decoder) Flush() (string, error) {
	s, err := d.decode(nil, true)
	d.t.Reset()
	d.pending = nil
	return s, err
}

// Pending reports how many bytes are held back waiting for the rest of a character.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func (d *Decoder) decode(p []byte, atEOF bool) (string, error) {
	src := p
	if len(d.pending) > 0 {
		src = append(d.pending, p...)
		d.pending = nil
	}
	if len(src) == 0 && !atEOF {
		return "", nil
	}

	var b strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(d.out, src, atEOF)
		b.Write(d.out[:nDst])
		src = src[nSrc:]

		switch err {
		case nil:
			return b.String(), nil
		case transform.ErrShortDst:
			if nDst == 0 && nSrc == 0 {
				d.out = make([]byte, 2*len(d.out))
			}
		case transform.ErrShortSrc:
			d.pending = append([]byte(nil), src...)
			return b.String(), nil
		default:
			return b.String(), fmt.Errorf("decoding response text: %w", err)
		}
	}
}

// encodingFromContentType resolves the charset parameter of a Content-Type
// header. Missing, malformed or unknown charsets fall back to UTF-8.
func encodingFromContentType(contentType string) encoding.Encoding {
	if contentType == "" {
		return unicode.UTF8
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return unicode.UTF8
	}
	charset := params["charset"]
	if charset == "" {
		return unicode.UTF8
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		slog.Warn("unknown response charset, decoding as utf-8", "charset", charset)
		return unicode.UTF8
	}
	return enc
}
