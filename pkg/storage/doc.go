// Package storage defines the transcript store used to keep chat turns
// locally, alongside the sentinel errors shared by its implementations.
//
// Implementations live in subpackages: memory (process-local, optional LRU
// eviction of whole threads) and postgres (pgx/v5).
package storage
