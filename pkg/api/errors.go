package api

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeRateLimited is returned when the backend answered 429.
	ErrorTypeRateLimited ErrorType = "rate_limited"
	// ErrorTypeTransport covers network failures, non-2xx statuses other
	// than 429 and absent or unreadable response bodies.
	ErrorTypeTransport ErrorType = "transport_error"
	// ErrorTypeCancelled is returned when the caller's context ended
	// before the operation completed.
	ErrorTypeCancelled ErrorType = "cancelled"
	// ErrorTypeInvalidRequest is returned for requests rejected locally,
	// before anything is sent.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
)

// APIError represents a structured error with type, message and the
// backend status code when one was received.
type APIError struct {
	Type       ErrorType `json:"type"`
	Param      string    `json:"param,omitempty"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`

	// RetryAfter is the backoff hint from a Retry-After header on a
	// rate-limited response. Zero when the backend sent none.
	RetryAfter time.Duration `json:"-"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause so errors.Is can match
// context.Canceled, context.DeadlineExceeded or network errors.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewRateLimitedError creates an APIError for a 429 response.
func NewRateLimitedError(message string, retryAfter time.Duration) *APIError {
	return &APIError{
		Type:       ErrorTypeRateLimited,
		Message:    message,
		StatusCode: 429,
		RetryAfter: retryAfter,
	}
}

// NewTransportError creates an APIError for a failed exchange with the backend.
// statusCode is zero when no response was received.
func NewTransportError(message string, statusCode int, cause error) *APIError {
	return &APIError{
		Type:       ErrorTypeTransport,
		Message:    message,
		StatusCode: statusCode,
		Err:        cause,
	}
}

// NewCancelledError creates an APIError for an operation aborted by its
// context. cause is normally ctx.Err().
func NewCancelledError(cause error) *APIError {
	if cause == nil {
		cause = context.Canceled
	}
	return &APIError{
		Type:    ErrorTypeCancelled,
		Message: "operation cancelled: " + cause.Error(),
		Err:     cause,
	}
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// IsRateLimited reports whether err is a rate-limit APIError.
func IsRateLimited(err error) bool {
	return hasType(err, ErrorTypeRateLimited)
}

// IsTransport reports whether err is a transport APIError.
func IsTransport(err error) bool {
	return hasType(err, ErrorTypeTransport)
}

// IsCancelled reports whether err is a cancellation APIError.
func IsCancelled(err error) bool {
	return hasType(err, ErrorTypeCancelled)
}

// IsInvalidRequest reports whether err is a local validation APIError.
func IsInvalidRequest(err error) bool {
	return hasType(err, ErrorTypeInvalidRequest)
}

func hasType(err error, t ErrorType) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type == t
	}
	return false
}
