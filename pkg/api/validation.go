package api

import "strings"

// ValidateSendMessage checks the locally verifiable preconditions of a
// send: both the thread ID and the query must be non-empty. Session
// existence is left to the backend.
func ValidateSendMessage(req *SendMessageRequest) *APIError {
	if req.ChatThreadID == "" {
		return NewInvalidRequestError("chatThreadId", "chat thread ID is required")
	}
	if strings.TrimSpace(req.Query) == "" {
		return NewInvalidRequestError("query", "query must not be empty")
	}
	return nil
}

// ValidateStartSession checks that an asset ID is present.
func ValidateStartSession(req *StartSessionRequest) *APIError {
	if req.AssetID == "" {
		return NewInvalidRequestError("assetId", "asset ID is required")
	}
	return nil
}

// ValidateThreadID checks a thread ID used for history lookups.
func ValidateThreadID(id string) *APIError {
	if id == "" {
		return NewInvalidRequestError("chatThreadId", "chat thread ID is required")
	}
	return nil
}
