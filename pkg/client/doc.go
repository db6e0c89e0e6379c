// Package client implements the HTTP client for the document-chat backend.
//
// It covers the four backend calls: document processing, session start,
// history retrieval and the streamed chat message send. SendMessage is the
// only call whose success body is an unbounded text stream; it decodes the
// body incrementally with a stateful [Decoder], hands every decoded fragment
// to a caller-supplied callback, and returns the full concatenated answer
// once the stream ends.
//
// All failures are [*api.APIError] values. The client performs no retries.
package client
