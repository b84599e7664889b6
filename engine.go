// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package recall is an embedded semantic retrieval engine: documents with
// precomputed embeddings are stored across weighted retrieval branches,
// searched with batched cosine top-k selection, and fused into one ranked,
// deduplicated answer list per query.
package recall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingest"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/segment"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
)

// Default branch names: parent-document embeddings and sentence-chunk
// embeddings, fused with equal weight.
const (
	BranchDocuments = "documents"
	BranchChunks    = "chunks"
)

// DefaultQueryChunkSize bounds how many queries one fan-out processes, so
// caller cancellation takes effect between chunks of a large batch.
const DefaultQueryChunkSize = 32

var (
	// ErrNoBranches indicates an engine was constructed without retrieval branches.
	ErrNoBranches = errors.New("at least one retrieval branch is required")

	// ErrDuplicateBranch indicates two branches share a name.
	ErrDuplicateBranch = errors.New("duplicate branch name")

	// ErrUnknownBranch indicates a branch name the engine does not own.
	ErrUnknownBranch = errors.New("unknown branch")
)

// Branch declares one retrieval branch: a named vector store and the weight
// its matches carry during rank fusion.
type Branch struct {
	Name   string
	Weight float32
}

// DefaultBranches returns the standard two-branch layout: parent documents
// and sentence chunks, equally weighted.
func DefaultBranches() []Branch {
	return []Branch{
		{Name: BranchDocuments, Weight: 1.0},
		{Name: BranchChunks, Weight: 1.0},
	}
}

type engineBranch struct {
	name   string
	weight float32
	store  storage.VectorStore
}

// Engine owns the stores and configuration of one retrieval instance: a
// BadgerDB backend under the workspace directory, one vector store per
// branch, and the document store used to hydrate results. Construct it at
// service start and Close it at shutdown.
//
// Searches may run concurrently across requests. Appends are single-writer:
// callers must not append to a store while a search against it is in flight.
type Engine struct {
	backend  *badger.Backend
	branches []*engineBranch
	byName   map[string]*engineBranch
	docs     storage.DocumentStore
	selector *search.Selector
	pool     *ants.Pool

	branchTopK     int
	queryChunkSize int
	logger         *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	inMemory       bool
	poolSize       int
	branchTopK     int
	queryChunkSize int
	logger         *slog.Logger
}

// WithInMemory keeps all stores in memory, discarded on Close. Used in tests.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithPoolSize sets the worker pool size for branch fan-out.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) EngineOption {
	return func(o *engineOptions) {
		o.poolSize = size
	}
}

// WithBranchTopK sets the per-branch candidate count before fusion.
// Default is the request's top_k; a larger value keeps fusion supplied with
// candidates when branches disagree.
func WithBranchTopK(k int) EngineOption {
	return func(o *engineOptions) {
		o.branchTopK = k
	}
}

// WithQueryChunkSize sets how many queries one fan-out processes at a time.
// Default is DefaultQueryChunkSize.
func WithQueryChunkSize(size int) EngineOption {
	return func(o *engineOptions) {
		o.queryChunkSize = size
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine opens a retrieval engine over the workspace directory, creating
// it if absent. Each branch gets its own vector store namespace on the
// shared backend.
func NewEngine(workspace string, branches []Branch, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		queryChunkSize: DefaultQueryChunkSize,
	}
	for _, opt := range opts {
		opt(options)
	}

	if len(branches) == 0 {
		return nil, ErrNoBranches
	}
	names := make(map[string]bool, len(branches))
	for _, b := range branches {
		if b.Name == "" {
			return nil, errors.New("branch name is required")
		}
		if names[b.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateBranch, b.Name)
		}
		names[b.Name] = true
		if b.Weight <= 0 {
			return nil, fmt.Errorf("branch %q: %w: got %v", b.Name, search.ErrInvalidWeight, b.Weight)
		}
	}

	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := badger.OpenBackend(workspace, options.inMemory)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		backend:        backend,
		byName:         make(map[string]*engineBranch, len(branches)),
		selector:       search.NewSelector(),
		branchTopK:     options.branchTopK,
		queryChunkSize: options.queryChunkSize,
		logger:         logger.With("component", "engine"),
	}
	if e.queryChunkSize < 1 {
		e.queryChunkSize = DefaultQueryChunkSize
	}

	for _, b := range branches {
		store, err := badger.NewVectorStore(backend, b.Name)
		if err != nil {
			e.closeStores()
			return nil, err
		}
		eb := &engineBranch{name: b.Name, weight: b.Weight, store: store}
		e.branches = append(e.branches, eb)
		e.byName[b.Name] = eb
	}

	docs, err := badger.NewDocumentStore(backend)
	if err != nil {
		e.closeStores()
		return nil, err
	}
	e.docs = docs

	poolSize := options.poolSize
	if poolSize < 1 {
		poolSize = runtime.NumCPU() / 2
	}
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		e.closeStores()
		return nil, err
	}
	e.pool = pool

	return e, nil
}

// closeStores closes whatever stores were opened so far, then the backend.
func (e *Engine) closeStores() {
	for _, b := range e.branches {
		if err := b.store.Close(); err != nil {
			e.logger.Error("error closing vector store", "branch", b.name, "err", err)
		}
	}
	if e.docs != nil {
		if err := e.docs.Close(); err != nil {
			e.logger.Error("error closing document store", "err", err)
		}
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
	}
}

// Close releases the worker pool and closes all stores and the backend.
// The engine must not be used after Close.
func (e *Engine) Close() error {
	if e.pool != nil {
		e.pool.Release()
	}

	var firstErr error
	for _, b := range e.branches {
		if err := b.store.Close(); err != nil {
			e.logger.Error("error closing vector store", "branch", b.name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if err := e.docs.Close(); err != nil {
		e.logger.Error("error closing document store", "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// VectorStore returns the named branch's vector store.
func (e *Engine) VectorStore(name string) (storage.VectorStore, error) {
	b, ok := e.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBranch, name)
	}
	return b.store, nil
}

// DocumentStore returns the engine's document store.
func (e *Engine) DocumentStore() storage.DocumentStore {
	return e.docs
}

// NewPipeline creates an ingestion pipeline writing into the engine's
// stores: parent embeddings to docBranch, chunk embeddings to chunkBranch,
// and full records to the document store.
func (e *Engine) NewPipeline(embedder ai.Embedder, segmenter *segment.Segmenter, docBranch, chunkBranch string, opts ...ingest.Option) (*ingest.Pipeline, error) {
	documentVectors, err := e.VectorStore(docBranch)
	if err != nil {
		return nil, err
	}
	chunkVectors, err := e.VectorStore(chunkBranch)
	if err != nil {
		return nil, err
	}
	return ingest.NewPipeline(documentVectors, chunkVectors, e.docs, embedder, segmenter, opts...)
}

// Search runs the query embeddings against every branch and returns, per
// query, the fused ranked matches, at most topK each.
func (e *Engine) Search(ctx context.Context, queries [][]float32, topK int) ([][]*core.Match, error) {
	return e.SearchWithMonitor(ctx, queries, topK, nil)
}

// SearchWithMonitor runs a search and reports each stage to the monitor.
//
// Per request the engine snapshots every branch, fans branch top-k selection
// out to its worker pool, rejoins the branch rankings through weighted
// fusion, and hydrates each fused match's parent document from the document
// store. A match whose parent record is missing is logged and dropped, so a
// result list can come up short of topK rather than failing the request.
//
// Large query batches are processed in chunks so cancellation can take
// effect between chunks.
func (e *Engine) SearchWithMonitor(ctx context.Context, queries [][]float32, topK int, monitor search.SearchMonitor) ([][]*core.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", search.ErrInvalidTopK, topK)
	}
	if monitor == nil {
		monitor = &search.NoopMonitor{}
	}

	monitor.Start(len(queries))

	results := make([][]*core.Match, 0, len(queries))
	for start := 0; start < len(queries); start += e.queryChunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + e.queryChunkSize
		if end > len(queries) {
			end = len(queries)
		}

		chunk, err := e.searchChunk(ctx, queries[start:end], start, topK, monitor)
		if err != nil {
			return nil, err
		}
		results = append(results, chunk...)
	}

	monitor.Finish(results)
	return results, nil
}

// searchChunk fans one chunk of queries out across the branches and fuses
// the branch rankings per query. queryOffset positions the chunk within the
// full batch for monitor callbacks.
func (e *Engine) searchChunk(ctx context.Context, queries [][]float32, queryOffset, topK int, monitor search.SearchMonitor) ([][]*core.Match, error) {
	branchTopK := topK
	if e.branchTopK > branchTopK {
		branchTopK = e.branchTopK
	}

	// Fork: one task per branch, joined below. Branch results land in
	// per-branch slots, so no locking is needed.
	branchMatches := make([][][]*core.Match, len(e.branches))
	branchErrs := make([]error, len(e.branches))
	var wg sync.WaitGroup
	for bi, b := range e.branches {
		bi, b := bi, b
		wg.Add(1)
		submitErr := e.pool.Submit(func() {
			defer wg.Done()
			branchMatches[bi], branchErrs[bi] = e.searchBranch(ctx, b, queries, queryOffset, branchTopK, monitor)
		})
		if submitErr != nil {
			wg.Done()
			branchErrs[bi] = submitErr
		}
	}
	wg.Wait()

	for bi, err := range branchErrs {
		if err != nil {
			return nil, fmt.Errorf("branch %q: %w", e.branches[bi].name, err)
		}
	}

	results := make([][]*core.Match, len(queries))
	for qi := range queries {
		fusionBranches := make([]search.Branch, len(e.branches))
		for bi, b := range e.branches {
			fusionBranches[bi] = search.Branch{
				Name:    b.name,
				Weight:  b.weight,
				Matches: branchMatches[bi][qi],
			}
		}

		fused, err := search.Fuse(fusionBranches, topK)
		if err != nil {
			return nil, err
		}
		monitor.AfterFusion(queryOffset+qi, fused)

		hydrated, err := e.hydrate(ctx, fused, monitor)
		if err != nil {
			return nil, err
		}
		results[qi] = hydrated
	}
	return results, nil
}

// searchBranch snapshots one branch and selects its top candidates per
// query. Each hit is resolved to the stored record, which carries the tags
// needed for chunk-to-parent resolution during fusion.
func (e *Engine) searchBranch(ctx context.Context, b *engineBranch, queries [][]float32, queryOffset, branchTopK int, monitor search.SearchMonitor) ([][]*core.Match, error) {
	corpus, err := search.NewCorpus(ctx, b.store)
	if err != nil {
		return nil, err
	}

	hitsPerQuery, err := e.selector.TopK(queries, corpus, branchTopK)
	if err != nil {
		return nil, err
	}

	matches := make([][]*core.Match, len(hitsPerQuery))
	for qi, hits := range hitsPerQuery {
		monitor.AfterBranchSearch(b.name, queryOffset+qi, hits)

		ms := make([]*core.Match, 0, len(hits))
		for _, hit := range hits {
			doc, err := b.store.Get(ctx, hit.ID)
			if err != nil {
				return nil, fmt.Errorf("resolving hit %q: %w", hit.ID, err)
			}
			m := &core.Match{Document: doc, Index: hit.Index}
			m.SetScore(core.ScoreCosine, hit.Score)
			ms = append(ms, m)
		}
		matches[qi] = ms
	}
	return matches, nil
}

// hydrate replaces each fused match's document with the full parent record
// from the document store. A missing parent drops the match instead of
// failing the request; store failures propagate.
func (e *Engine) hydrate(ctx context.Context, fused []*core.Match, monitor search.SearchMonitor) ([]*core.Match, error) {
	hydrated := make([]*core.Match, 0, len(fused))
	for _, m := range fused {
		parentID := m.ParentID()
		parent, err := e.docs.Get(ctx, parentID)
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.Warn("dropping match with unresolved parent", "parent_id", parentID)
			monitor.HydrationMiss(parentID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("hydrating parent %q: %w", parentID, err)
		}
		m.Document = parent
		hydrated = append(hydrated, m)
	}
	return hydrated, nil
}
