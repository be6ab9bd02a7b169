// Package storage provides database abstractions.
package storage

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batch accumulates writes for a single atomic Commit. Nothing staged in a
// Batch is visible to Get/Has/ForEach until Commit succeeds.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}

// Batcher is implemented by a DB that can produce a Batch. add_block's
// single commit-at-the-end-of-success-path semantics (§4.A, §4.E) require
// this: every key written during block ingestion is staged, and only
// becomes durable when the batch commits.
type Batcher interface {
	NewBatch() Batch
}
