// Package mockbackend implements an in-memory document chat backend for
// local development and end-to-end tests. It serves the four endpoints the
// client calls, streams deterministic answers in small flushed fragments,
// and can enforce a per-client request-per-minute limit.
package mockbackend
