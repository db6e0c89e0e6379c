package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	assetIDPrefix  = "asset_"
	threadIDPrefix = "thread_"
)

var (
	assetIDPattern  = regexp.MustCompile(`^asset_[0-9a-f]{32}$`)
	threadIDPattern = regexp.MustCompile(`^thread_[0-9a-f]{32}$`)
)

// NewAssetID generates an asset ID with the "asset_" prefix followed by a
// random UUID in compact hex form.
func NewAssetID() string {
	return assetIDPrefix + compactUUID()
}

// NewThreadID generates a chat thread ID with the "thread_" prefix.
func NewThreadID() string {
	return threadIDPrefix + compactUUID()
}

// NewRequestID generates a request correlation ID.
func NewRequestID() string {
	return uuid.NewString()
}

// ValidateAssetIDFormat reports whether id looks like an ID minted by NewAssetID.
// Backends are free to use other formats; the client never enforces this.
func ValidateAssetIDFormat(id string) bool {
	return assetIDPattern.MatchString(id)
}

// ValidateThreadIDFormat reports whether id looks like an ID minted by NewThreadID.
func ValidateThreadIDFormat(id string) bool {
	return threadIDPattern.MatchString(id)
}

func compactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
