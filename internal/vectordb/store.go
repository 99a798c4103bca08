package vectordb

import "context"

// InsertBatchSize is the number of documents sent to the backend per
// insertion call during ingestion.
const InsertBatchSize = 100

// Store is the single abstraction over both deployment modes of the vector
// index: a local on-disk collection and a remote networked server. Insertion
// is additive, not idempotent; a rebuild goes through Reset.
type Store interface {
	// AddBatch inserts documents in batches of InsertBatchSize, assigning
	// a fresh opaque ID to each document that has none.
	AddBatch(ctx context.Context, docs []Document) error

	// Query embeds the given text and returns the topK nearest documents
	// with similarity scores.
	Query(ctx context.Context, text string, topK int) ([]SearchResult, error)

	// GetAll returns up to limit stored documents with their metadata,
	// for stats and listing. limit <= 0 means the backend default.
	GetAll(ctx context.Context, limit int) ([]Document, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Reset deletes and recreates the collection.
	Reset(ctx context.Context) error

	// Close releases the backend connection, flushing local state.
	Close() error
}
