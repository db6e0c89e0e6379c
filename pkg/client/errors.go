package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rhuss/docchat/pkg/api"
)

// mapHTTPError converts a non-2xx response into an APIError. The body is
// never read: the backend's error payloads carry nothing the caller relies
// on. 429 is reported as rate limiting, everything else as a transport
// error carrying the call-specific message.
func mapHTTPError(resp *http.Response, message string) *api.APIError {
	if resp.StatusCode == http.StatusTooManyRequests {
		return api.NewRateLimitedError("rate limit exceeded, please try again later", parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}
	return api.NewTransportError(fmt.Sprintf("%s (HTTP %d)", message, resp.StatusCode), resp.StatusCode, nil)
}

// mapNetworkError converts an error from sending a request or reading its
// body. When the caller's context has ended the error is a cancellation,
// whatever the transport reported.
func mapNetworkError(ctx context.Context, message string, err error) *api.APIError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return api.NewCancelledError(ctxErr)
	}
	return api.NewTransportError(fmt.Sprintf("%s: %s", message, err.Error()), 0, err)
}

// parseRetryAfter reads a Retry-After header in either delay-seconds or
// HTTP-date form. Unparseable or past values yield zero.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
