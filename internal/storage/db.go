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
	Batcher
}

// Batch accumulates writes to be applied atomically on Commit. Puts and
// Deletes queued on a Batch are not visible to Get/Has until Commit
// succeeds.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}

// Batcher is implemented by any DB that can produce a Batch.
type Batcher interface {
	NewBatch() Batch
}

// SyncMode controls whether writes are flushed to durable storage
// synchronously. WriteBatch is the batch variant a DB may additionally
// implement to honor SyncMode per-commit; DBs that always sync (or never
// need to) may ignore it.
type SyncMode int

const (
	// SyncAsync lets the backing store batch/delay durability for
	// throughput (the default for bulk operations like reorg replay).
	SyncAsync SyncMode = iota
	// SyncImmediate forces the write to be durable before Commit returns.
	SyncImmediate
)

// WriteBatch is a Batch that also supports choosing a SyncMode for its commit.
type WriteBatch interface {
	Batch
	SetSync(mode SyncMode)
}
