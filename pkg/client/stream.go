package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/docchat/pkg/api"
	"github.com/rhuss/docchat/pkg/debug"
	"github.com/rhuss/docchat/pkg/observability"
)

// ChunkFunc receives one decoded fragment of a streamed answer. It is
// called synchronously from the goroutine running SendMessage, in arrival
// order, and never with an empty string.
type ChunkFunc func(chunk string)

// SendMessage sends query to the chat thread and streams the answer.
//
// Every decoded fragment is passed to onChunk (which may be nil) as soon as
// it is read. The returned string is the concatenation of all fragments,
// returned once the backend closes the stream. On error the returned string
// is always empty; fragments already delivered stay with the caller.
//
// Cancelling ctx aborts the request or the body read and makes SendMessage
// fail with a cancelled APIError; onChunk is not called again once ctx is
// done. No timeout is applied to the stream itself.
func (c *Client) SendMessage(ctx context.Context, chatThreadID, query string, onChunk ChunkFunc) (full string, err error) {
	start := time.Now()
	defer func() { observability.ObserveBackendCall(observability.CallSendMessage, start, err) }()

	req := api.SendMessageRequest{ChatThreadID: chatThreadID, Query: query}
	if apiErr := api.ValidateSendMessage(&req); apiErr != nil {
		return "", apiErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", api.NewCancelledError(ctxErr)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", api.NewTransportError(fmt.Sprintf("failed to marshal request: %s", err.Error()), 0, err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, PathSendMessage, bytes.NewReader(body), "application/json")
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Accept", "text/plain")
	requestID := httpReq.Header.Get("X-Request-ID")

	slog.Debug("sending chat message", "chat_thread_id", chatThreadID, "request_id", requestID)

	httpResp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return "", mapNetworkError(ctx, "failed to send chat message", err)
	}
	defer httpResp.Body.Close()

	// Check the status before touching the body.
	if !isSuccess(httpResp.StatusCode) {
		slog.Warn("chat message rejected", "chat_thread_id", chatThreadID, "request_id", requestID, "status", httpResp.StatusCode)
		return "", mapHTTPError(httpResp, "failed to send chat message")
	}

	contentType := httpResp.Header.Get("Content-Type")
	debug.Log("client", "stream opened", "request_id", requestID, "status", httpResp.StatusCode, "content_type", contentType)
	dec := NewDecoder(encodingFromContentType(contentType))

	observability.ActiveStreams.Inc()
	defer observability.ActiveStreams.Dec()

	full, err = readStream(ctx, httpResp.Body, dec, c.cfg.ReadBufferSize, onChunk)
	if err != nil {
		slog.Warn("chat message stream failed", "chat_thread_id", chatThreadID, "request_id", requestID, "error", err.Error())
		return "", err
	}

	slog.Debug("chat message complete", "chat_thread_id", chatThreadID, "request_id", requestID,
		"bytes", len(full), "duration", time.Since(start))
	return full, nil
}

// readStream reads body until end of data, decoding each read with dec and
// delivering non-empty fragments to onChunk. The context is checked after
// every read and before every delivery.
func readStream(ctx context.Context, body io.Reader, dec *Decoder, bufSize int, onChunk ChunkFunc) (string, error) {
	var full strings.Builder
	buf := make([]byte, bufSize)

	deliver := func(fragment string) error {
		if fragment == "" {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return api.NewCancelledError(ctxErr)
		}
		full.WriteString(fragment)
		observability.StreamChunksTotal.Inc()
		debug.Log("stream", "fragment", "bytes", len(fragment), "text", debug.Truncate(fragment, 64))
		if onChunk != nil {
			onChunk(fragment)
		}
		return nil
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", api.NewCancelledError(ctxErr)
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			observability.StreamBytesTotal.Add(float64(n))
			fragment, err := dec.Decode(buf[:n])
			if err != nil {
				return "", api.NewTransportError("failed to decode response body", 0, err)
			}
			if err := deliver(fragment); err != nil {
				return "", err
			}
		}

		if errors.Is(readErr, io.EOF) {
			tail, err := dec.Flush()
			if err != nil {
				return "", api.NewTransportError("failed to decode response body", 0, err)
			}
			if err := deliver(tail); err != nil {
				return "", err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", api.NewCancelledError(ctxErr)
			}
			return full.String(), nil
		}
		if readErr != nil {
			return "", mapNetworkError(ctx, "failed to read response body", readErr)
		}
	}
}
