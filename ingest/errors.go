package ingest

import "errors"

var (
	// ErrVectorStoreRequired indicates a nil vector store was passed to the pipeline.
	ErrVectorStoreRequired = errors.New("vector store is required")

	// ErrDocumentStoreRequired indicates a nil document store was passed to the pipeline.
	ErrDocumentStoreRequired = errors.New("document store is required")

	// ErrEmbedderRequired indicates a nil embedder was passed to the pipeline.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrSegmenterRequired indicates a nil segmenter was passed to the pipeline.
	ErrSegmenterRequired = errors.New("segmenter is required")

	// ErrInvalidMaxAttempts indicates a retry was configured with a
	// non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrEmbeddingCountMismatch indicates the embedder returned a different
	// number of vectors than texts submitted.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
)
