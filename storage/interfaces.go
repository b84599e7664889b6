package storage

import (
	"context"

	"github.com/poiesic/recall/core"
)

// ScanFunc receives one stored embedding during a VectorStore scan.
// index is the record's insertion index within the store, id the document
// identifier and vector the stored embedding. Returning an error stops the
// scan and propagates the error to the caller.
type ScanFunc func(index int, id string, vector []float32) error

// VectorStore provides durable, append-only storage of documents with
// fixed-dimension embeddings. All embeddings in one store share the
// dimensionality established by the first accepted record.
type VectorStore interface {
	// Append extends the store with the given documents in insertion order.
	// Records with a missing, non-finite or dimension-mismatched embedding
	// are rejected individually (logged, skipped); the remainder of the
	// batch is still appended. Returns the accepted documents.
	// No identifier-collision check is performed: duplicates accumulate.
	Append(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// Get retrieves a stored document by identifier.
	// Returns ErrNotFound if the identifier is absent. If the identifier
	// was appended more than once, the most recent record is returned.
	Get(ctx context.Context, id string) (*core.Document, error)

	// Scan streams every (index, id, embedding) triple in insertion order.
	// The whole scan observes one internally consistent snapshot of the
	// store: appends committed after the scan starts are not visible.
	Scan(ctx context.Context, fn ScanFunc) error

	// Len returns the number of stored records.
	Len(ctx context.Context) (int, error)

	// Dimension returns the store's established embedding dimensionality,
	// or 0 if no record has been accepted yet.
	Dimension(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// DocumentStore provides durable, append-only, identifier-keyed storage of
// full document records. It is the key-value index used to hydrate matches
// and resolve chunk-to-parent references.
type DocumentStore interface {
	// Put appends the given documents. Same append-only semantics as
	// VectorStore.Append: no collision check, duplicates accumulate, the
	// identifier index points at the most recent record.
	Put(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// Get retrieves a document by identifier.
	// Returns ErrNotFound if the identifier is absent.
	Get(ctx context.Context, id string) (*core.Document, error)

	// Scan streams every stored record in insertion order within one
	// internally consistent snapshot.
	Scan(ctx context.Context, fn func(doc *core.Document) error) error

	// Len returns the number of stored records.
	Len(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}
