package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/segment"
	"github.com/poiesic/recall/storage"
)

const (
	defaultEmbedBatchSize = 10
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = 1 * time.Second
)

// Pipeline ingests parent documents: it stores their full records, segments
// them into chunks, embeds parents and chunks on a worker pool, and appends
// the embeddings to the two retrieval branches.
type Pipeline struct {
	documentVectors storage.VectorStore
	chunkVectors    storage.VectorStore
	documents       storage.DocumentStore
	embedder        ai.Embedder
	segmenter       *segment.Segmenter
	pool            *ants.Pool
	embedBatchSize  int
	maxRetries      int
	retryBaseDelay  time.Duration
	appendMu        sync.Mutex // stores are single-writer; appends go one at a time
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithEmbedBatchSize sets the number of texts submitted to the embedder per
// call. Default is 10.
func WithEmbedBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.embedBatchSize = size
		return nil
	}
}

// WithRetry configures retry of failed embedding calls.
// Default is 3 attempts with a 1s base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxRetries = maxAttempts
		p.retryBaseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline writing to the given stores.
// documentVectors receives parent embeddings, chunkVectors chunk embeddings,
// and documents the full parent records used for hydration.
func NewPipeline(
	documentVectors storage.VectorStore,
	chunkVectors storage.VectorStore,
	documents storage.DocumentStore,
	embedder ai.Embedder,
	segmenter *segment.Segmenter,
	opts ...Option,
) (*Pipeline, error) {
	if documentVectors == nil || chunkVectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if documents == nil {
		return nil, ErrDocumentStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if segmenter == nil {
		return nil, ErrSegmenterRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		documentVectors: documentVectors,
		chunkVectors:    chunkVectors,
		documents:       documents,
		embedder:        embedder,
		segmenter:       segmenter,
		pool:            pool,
		embedBatchSize:  defaultEmbedBatchSize,
		maxRetries:      defaultMaxRetries,
		retryBaseDelay:  defaultRetryBaseDelay,
		logger:          slog.Default().With("component", "ingest"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest stores and indexes a batch of parent documents. A parent with an
// empty identifier gets one derived from its text content. Parents failing
// validation are logged and skipped; the rest of the batch proceeds.
//
// Ingestion is synchronous: when Ingest returns without error, records,
// parent embeddings and chunk embeddings are all durably appended. Callers
// must not run concurrent Ingest calls against the same stores from other
// pipelines; one pipeline serializes its own appends.
func (p *Pipeline) Ingest(ctx context.Context, parents ...*core.Document) error {
	accepted := make([]*core.Document, 0, len(parents))
	for _, parent := range parents {
		if parent != nil && parent.Id == "" {
			parent.Id = core.IDFromContent(parent.Text)
		}
		if err := core.ValidateDocument(parent); err != nil {
			p.logger.Warn("skipping document", "err", err)
			continue
		}
		accepted = append(accepted, parent)
	}
	if len(accepted) == 0 {
		return nil
	}

	// Full records first: hydration must be able to resolve every parent a
	// branch search can return.
	if _, err := p.documents.Put(ctx, accepted...); err != nil {
		return fmt.Errorf("storing records: %w", err)
	}

	embedded := make([]*core.Document, len(accepted))
	var chunks []*core.Document
	for i, parent := range accepted {
		embedded[i] = parent.Clone()
		chunks = append(chunks, p.segmenter.Segment(parent)...)
	}

	jobs := append(batches(embedded, p.embedBatchSize), batches(chunks, p.embedBatchSize)...)
	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	for ji, job := range jobs {
		ji, job := ji, job
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			errs[ji] = p.embedBatch(ctx, job)
		})
		if submitErr != nil {
			wg.Done()
			errs[ji] = submitErr
		}
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return err
	}

	p.appendMu.Lock()
	defer p.appendMu.Unlock()
	if _, err := p.documentVectors.Append(ctx, embedded...); err != nil {
		return fmt.Errorf("appending document embeddings: %w", err)
	}
	if _, err := p.chunkVectors.Append(ctx, chunks...); err != nil {
		return fmt.Errorf("appending chunk embeddings: %w", err)
	}

	p.logger.Info("ingested documents", "parents", len(accepted), "chunks", len(chunks))
	return nil
}

// embedBatch embeds one batch of documents in place, retrying transient
// embedder failures with exponential backoff.
func (p *Pipeline) embedBatch(ctx context.Context, docs []*core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = p.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, p.maxRetries, p.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("generating embeddings after %d attempts: %w", p.maxRetries, err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, len(docs), len(vectors))
	}

	for i, doc := range docs {
		doc.Vector = vectors[i]
	}
	return nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// batches splits docs into consecutive slices of at most size documents.
func batches(docs []*core.Document, size int) [][]*core.Document {
	var out [][]*core.Document
	for start := 0; start < len(docs); start += size {
		end := start + size
		if end > len(docs) {
			end = len(docs)
		}
		out = append(out, docs[start:end])
	}
	return out
}
