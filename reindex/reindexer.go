package reindex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingest"
	"github.com/poiesic/recall/segment"
	"github.com/poiesic/recall/storage"
)

const (
	// DefaultBatchSize is the default number of records embedded per batch.
	DefaultBatchSize = 100

	defaultReportInterval = 100
	defaultMaxRetries     = 3
	defaultRetryDelay     = 1 * time.Second
)

// Config holds reindexing parameters.
type Config struct {
	// BatchSize is the number of parent records embedded per batch.
	BatchSize int
	// ReportInterval is how many records pass between progress reports.
	ReportInterval int
	// MaxRetries is the maximum number of attempts per embedding call.
	MaxRetries int
	// RetryDelay is the base delay for exponential backoff between attempts.
	RetryDelay time.Duration
}

// DefaultConfig returns the default reindexing parameters.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: defaultReportInterval,
		MaxRetries:     defaultMaxRetries,
		RetryDelay:     defaultRetryDelay,
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("report interval must be positive, got %d", c.ReportInterval)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive, got %d", c.MaxRetries)
	}
	return nil
}

// Summary reports what a reindexing run produced.
type Summary struct {
	Parents int
	Chunks  int
	Elapsed time.Duration
}

// Reindexer rebuilds the two vector branches from the document store.
type Reindexer struct {
	source          storage.DocumentStore
	documentVectors storage.VectorStore
	chunkVectors    storage.VectorStore
	embedder        ai.Embedder
	segmenter       *segment.Segmenter
	config          *Config
	progressWriter  io.Writer
	logger          *slog.Logger
}

// NewReindexer creates a reindexer reading parent records from source and
// writing new embeddings into the target vector stores. progressWriter
// receives progress reports; pass io.Discard to silence them.
func NewReindexer(
	source storage.DocumentStore,
	documentVectors storage.VectorStore,
	chunkVectors storage.VectorStore,
	embedder ai.Embedder,
	segmenter *segment.Segmenter,
	config *Config,
	progressWriter io.Writer,
) (*Reindexer, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if documentVectors == nil || chunkVectors == nil {
		return nil, ErrTargetRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if segmenter == nil {
		return nil, ErrSegmenterRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if progressWriter == nil {
		progressWriter = io.Discard
	}

	return &Reindexer{
		source:          source,
		documentVectors: documentVectors,
		chunkVectors:    chunkVectors,
		embedder:        embedder,
		segmenter:       segmenter,
		config:          config,
		progressWriter:  progressWriter,
		logger:          slog.Default().With("component", "reindex"),
	}, nil
}

// Run reindexes every parent record in the document store. The source scan
// observes one consistent snapshot; records put after Run starts are not
// reindexed. Cancellation is honored between batches.
func (r *Reindexer) Run(ctx context.Context) (*Summary, error) {
	var parents []*core.Document
	err := r.source.Scan(ctx, func(doc *core.Document) error {
		parents = append(parents, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning document store: %w", err)
	}

	tracker := NewProgressTracker(r.progressWriter, len(parents), r.config.ReportInterval)
	tracker.Start()

	summary := &Summary{}
	for start := 0; start < len(parents); start += r.config.BatchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := start + r.config.BatchSize
		if end > len(parents) {
			end = len(parents)
		}
		batch := parents[start:end]

		chunks, err := r.processBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		summary.Parents += len(batch)
		summary.Chunks += chunks
		tracker.Increment(len(batch))
	}

	tracker.Finish()
	summary.Elapsed = tracker.Elapsed()
	r.logger.Info("reindexing complete",
		"parents", summary.Parents, "chunks", summary.Chunks, "elapsed", summary.Elapsed)
	return summary, nil
}

// processBatch embeds one batch of parents and their chunks and appends the
// results to the target stores. Returns the number of chunks produced.
func (r *Reindexer) processBatch(ctx context.Context, batch []*core.Document) (int, error) {
	embedded := make([]*core.Document, len(batch))
	var chunks []*core.Document
	for i, parent := range batch {
		embedded[i] = parent.Clone()
		chunks = append(chunks, r.segmenter.Segment(parent)...)
	}

	if err := r.embed(ctx, embedded); err != nil {
		return 0, err
	}
	if err := r.embed(ctx, chunks); err != nil {
		return 0, err
	}

	if _, err := r.documentVectors.Append(ctx, embedded...); err != nil {
		return 0, fmt.Errorf("appending document embeddings: %w", err)
	}
	if _, err := r.chunkVectors.Append(ctx, chunks...); err != nil {
		return 0, fmt.Errorf("appending chunk embeddings: %w", err)
	}
	return len(chunks), nil
}

// embed assigns fresh embeddings to docs in place, retrying transient
// embedder failures.
func (r *Reindexer) embed(ctx context.Context, docs []*core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	var vectors [][]float32
	err := ingest.RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = r.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("generating embeddings after %d attempts: %w", r.config.MaxRetries, err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: expected %d, got %d",
			ingest.ErrEmbeddingCountMismatch, len(docs), len(vectors))
	}

	for i, doc := range docs {
		doc.Vector = vectors[i]
	}
	return nil
}
