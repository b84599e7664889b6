package reindex

import "errors"

var (
	// ErrSourceRequired indicates a nil document store was passed.
	ErrSourceRequired = errors.New("source document store is required")

	// ErrTargetRequired indicates a nil target vector store was passed.
	ErrTargetRequired = errors.New("target vector store is required")

	// ErrEmbedderRequired indicates a nil embedder was passed.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrSegmenterRequired indicates a nil segmenter was passed.
	ErrSegmenterRequired = errors.New("segmenter is required")
)
