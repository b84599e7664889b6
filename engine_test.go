package recall

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMonitor captures search stage callbacks for assertions.
type recordingMonitor struct {
	search.NoopMonitor
	misses []string
}

func (m *recordingMonitor) HydrationMiss(parentID string) {
	m.misses = append(m.misses, parentID)
}

func newTestEngine(t *testing.T, branches []Branch, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{WithInMemory(), WithPoolSize(2)}, opts...)
	e, err := NewEngine("", branches, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// seedChunk appends a chunk embedding to the branch and, unless rootID is
// empty, a parent record to the document store.
func seedChunk(t *testing.T, e *Engine, branch, id, rootID string, vector []float32) {
	t.Helper()
	store, err := e.VectorStore(branch)
	require.NoError(t, err)

	chunk := &core.Document{
		Id:     id,
		Text:   "chunk " + id,
		Vector: vector,
		Tags:   map[string]string{core.TagRootDocID: rootID},
	}
	_, err = store.Append(context.Background(), chunk)
	require.NoError(t, err)
}

func seedParent(t *testing.T, e *Engine, id, text string) {
	t.Helper()
	_, err := e.DocumentStore().Put(context.Background(), &core.Document{Id: id, Text: text})
	require.NoError(t, err)
}

func TestEngineSearchScenario(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, []Branch{{Name: BranchChunks, Weight: 1.0}})

	seedParent(t, e, "a", "exact match")
	seedParent(t, e, "b", "orthogonal")
	seedParent(t, e, "c", "diagonal")
	seedChunk(t, e, BranchChunks, "a-0", "a", []float32{1, 0})
	seedChunk(t, e, BranchChunks, "b-0", "b", []float32{0, 1})
	seedChunk(t, e, BranchChunks, "c-0", "c", []float32{0.7, 0.7})

	results, err := e.Search(ctx, [][]float32{{1, 0}}, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0], 2)

	first, second := results[0][0], results[0][1]
	assert.Equal(t, "a", first.Document.Id)
	assert.Equal(t, "exact match", first.Document.Text)
	assert.InDelta(t, 1.0, first.Score(core.ScoreRelevance), 1e-5)

	assert.Equal(t, "c", second.Document.Id)
	assert.InDelta(t, math.Sqrt2/2, second.Score(core.ScoreRelevance), 1e-5)
}

func TestEngineFusesAcrossBranches(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, DefaultBranches())

	seedParent(t, e, "p", "the parent")
	// cos(query, v) = 0.5 on both branches; fused relevance is 1.0.
	halfCosine := []float32{0.5, float32(math.Sqrt(3) / 2)}
	seedChunk(t, e, BranchDocuments, "p", "p", halfCosine)
	seedChunk(t, e, BranchChunks, "p-0", "p", halfCosine)

	results, err := e.Search(ctx, [][]float32{{1, 0}}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0], 1) // deduplicated on the shared parent

	m := results[0][0]
	assert.Equal(t, "p", m.Document.Id)
	assert.InDelta(t, 1.0, m.Score(core.ScoreRelevance), 1e-5)
}

func TestEngineRespectsBranchWeights(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, []Branch{
		{Name: BranchDocuments, Weight: 0.5},
		{Name: BranchChunks, Weight: 2.0},
	})

	seedParent(t, e, "docs-only", "weighted low")
	seedParent(t, e, "chunks-only", "weighted high")
	seedChunk(t, e, BranchDocuments, "docs-only", "docs-only", []float32{1, 0})
	seedChunk(t, e, BranchChunks, "chunks-0", "chunks-only", []float32{1, 0})

	results, err := e.Search(ctx, [][]float32{{1, 0}}, 2)
	require.NoError(t, err)
	require.Len(t, results[0], 2)

	// Both score cosine 1.0; the heavier branch wins.
	assert.Equal(t, "chunks-only", results[0][0].Document.Id)
	assert.InDelta(t, 2.0, results[0][0].Score(core.ScoreRelevance), 1e-5)
	assert.Equal(t, "docs-only", results[0][1].Document.Id)
	assert.InDelta(t, 0.5, results[0][1].Score(core.ScoreRelevance), 1e-5)
}

func TestEngineDropsUnresolvedParents(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, []Branch{{Name: BranchChunks, Weight: 1.0}})

	seedParent(t, e, "a", "resolvable")
	seedChunk(t, e, BranchChunks, "a-0", "a", []float32{1, 0})
	seedChunk(t, e, BranchChunks, "ghost-0", "ghost", []float32{0.9, 0.1})

	monitor := &recordingMonitor{}
	results, err := e.SearchWithMonitor(ctx, [][]float32{{1, 0}}, 5, monitor)
	require.NoError(t, err)
	require.Len(t, results[0], 1)
	assert.Equal(t, "a", results[0][0].Document.Id)
	assert.Equal(t, []string{"ghost"}, monitor.misses)
}

func TestEngineSearchEmptyCorpus(t *testing.T) {
	e := newTestEngine(t, DefaultBranches())

	results, err := e.Search(context.Background(), [][]float32{{1, 0}}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0])
}

func TestEngineSearchEmptyQueryBatch(t *testing.T) {
	e := newTestEngine(t, DefaultBranches())

	results, err := e.Search(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngineSearchExcludesZeroNormEntries(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, []Branch{{Name: BranchChunks, Weight: 1.0}})

	seedParent(t, e, "a", "scorable")
	seedParent(t, e, "z", "zero norm")
	seedChunk(t, e, BranchChunks, "a-0", "a", []float32{1, 0})
	seedChunk(t, e, BranchChunks, "z-0", "z", []float32{0, 0})

	results, err := e.Search(ctx, [][]float32{{1, 0}}, 5)
	require.NoError(t, err)
	require.Len(t, results[0], 1)
	assert.Equal(t, "a", results[0][0].Document.Id)
}

func TestEngineSearchDegenerateQuery(t *testing.T) {
	e := newTestEngine(t, DefaultBranches())

	_, err := e.Search(context.Background(), [][]float32{{0, 0}}, 3)
	require.ErrorIs(t, err, core.ErrDegenerateVector)

	_, err = e.Search(context.Background(), [][]float32{{float32(math.NaN()), 1}}, 3)
	require.ErrorIs(t, err, core.ErrDegenerateVector)
}

func TestEngineSearchInvalidTopK(t *testing.T) {
	e := newTestEngine(t, DefaultBranches())

	_, err := e.Search(context.Background(), [][]float32{{1, 0}}, 0)
	require.ErrorIs(t, err, search.ErrInvalidTopK)
}

func TestEngineSearchDeterminism(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, DefaultBranches())

	seedParent(t, e, "a", "first")
	seedParent(t, e, "b", "second")
	seedParent(t, e, "c", "third")
	seedChunk(t, e, BranchChunks, "a-0", "a", []float32{0.9, 0.1})
	seedChunk(t, e, BranchChunks, "b-0", "b", []float32{0.8, 0.2})
	seedChunk(t, e, BranchChunks, "c-0", "c", []float32{0.7, 0.3})
	seedChunk(t, e, BranchDocuments, "a", "a", []float32{0.6, 0.4})
	seedChunk(t, e, BranchDocuments, "b", "b", []float32{0.5, 0.5})

	queries := [][]float32{{1, 0}, {0.2, 0.8}}
	first, err := e.Search(ctx, queries, 3)
	require.NoError(t, err)
	second, err := e.Search(ctx, queries, 3)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEngineSearchChunkedQueries(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, []Branch{{Name: BranchChunks, Weight: 1.0}}, WithQueryChunkSize(2))

	seedParent(t, e, "a", "target")
	seedChunk(t, e, BranchChunks, "a-0", "a", []float32{1, 0})

	queries := make([][]float32, 5)
	for i := range queries {
		queries[i] = []float32{1, 0}
	}
	results, err := e.Search(ctx, queries, 1)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, r := range results {
		require.Len(t, r, 1)
		assert.Equal(t, "a", r[0].Document.Id)
	}
}

func TestNewEngineValidatesBranches(t *testing.T) {
	_, err := NewEngine("", nil, WithInMemory())
	require.ErrorIs(t, err, ErrNoBranches)

	_, err = NewEngine("", []Branch{{Name: "x", Weight: 0}}, WithInMemory())
	require.ErrorIs(t, err, search.ErrInvalidWeight)

	_, err = NewEngine("", []Branch{{Name: "x", Weight: 1}, {Name: "x", Weight: 1}}, WithInMemory())
	require.ErrorIs(t, err, ErrDuplicateBranch)
}

func TestEngineUnknownBranch(t *testing.T) {
	e := newTestEngine(t, DefaultBranches())

	_, err := e.VectorStore("nonexistent")
	require.ErrorIs(t, err, ErrUnknownBranch)
}

func TestEngineEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, DefaultBranches())

	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 32
	seg, err := segment.NewSegmenter(segment.WithPunctuation("!?."))
	require.NoError(t, err)

	p, err := e.NewPipeline(embedder, seg, BranchDocuments, BranchChunks)
	require.NoError(t, err)
	defer p.Release()

	alpha := &core.Document{Id: "alpha", Text: "The quick brown fox."}
	beta := &core.Document{Id: "beta", Text: "Entirely unrelated content!"}
	require.NoError(t, p.Ingest(ctx, alpha, beta))

	// The mock embedder is deterministic: an identical query text embeds to
	// the identical vector, so alpha scores cosine 1.0 on both branches.
	query, err := embedder.EmbedText(ctx, "The quick brown fox.")
	require.NoError(t, err)

	results, err := e.Search(ctx, [][]float32{query}, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotEmpty(t, results[0])

	top := results[0][0]
	assert.Equal(t, "alpha", top.Document.Id)
	assert.Equal(t, alpha.Text, top.Document.Text)
	assert.InDelta(t, 2.0, top.Score(core.ScoreRelevance), 1e-4)
}

func TestEnginePersistenceAcrossReopen(t *testing.T) {
	ctx := context.Background()
	workspace := t.TempDir()

	e, err := NewEngine(workspace, []Branch{{Name: BranchChunks, Weight: 1.0}})
	require.NoError(t, err)
	seedParent(t, e, "a", "durable")
	seedChunk(t, e, BranchChunks, "a-0", "a", []float32{1, 0})
	require.NoError(t, e.Close())

	reopened, err := NewEngine(workspace, []Branch{{Name: BranchChunks, Weight: 1.0}})
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Search(ctx, [][]float32{{1, 0}}, 1)
	require.NoError(t, err)
	require.Len(t, results[0], 1)
	assert.Equal(t, "a", results[0][0].Document.Id)
	assert.Equal(t, "durable", results[0][0].Document.Text)
}
