package mockbackend

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/rhuss/docchat/pkg/api"
)

// Server-side error types the client never produces itself.
const (
	errorTypeNotFound     api.ErrorType = "not_found"
	errorTypeUnauthorized api.ErrorType = "unauthorized"
	errorTypeServer       api.ErrorType = "server_error"
)

// httpStatusFromError maps an APIError type to its HTTP status code.
func httpStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case errorTypeNotFound:
		return http.StatusNotFound
	case errorTypeUnauthorized:
		return http.StatusUnauthorized
	case api.ErrorTypeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeAPIError writes an APIError as a JSON error body. Rate-limit errors
// carry a Retry-After header in whole seconds.
func writeAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	if apiErr.Type == api.ErrorTypeRateLimited && apiErr.RetryAfter > 0 {
		secs := int(math.Ceil(apiErr.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusFromError(apiErr))
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

func notFound(msg string) *api.APIError {
	return &api.APIError{Type: errorTypeNotFound, Message: msg, StatusCode: http.StatusNotFound}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
