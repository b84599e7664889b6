package search

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_SelfSimilarity(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store, []float32{0.3, -0.2, 0.9})

	corpus, err := NewCorpus(context.Background(), store)
	require.NoError(t, err)

	hits, err := NewSelector().TopK([][]float32{{0.3, -0.2, 0.9}}, corpus, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Len(t, hits[0], 1)
	assert.InDelta(t, 1.0, hits[0][0].Score, 1e-6)
}

func TestSelector_Scenario(t *testing.T) {
	// Corpus [[1,0],[0,1],[0.7,0.7]], query [1,0], top_k=2:
	// the [1,0] record first (~1.0), then [0.7,0.7] (~0.707); [0,1] excluded.
	store := newTestStore(t)
	seedStore(t, store, []float32{1, 0}, []float32{0, 1}, []float32{0.7, 0.7})

	corpus, err := NewCorpus(context.Background(), store)
	require.NoError(t, err)

	hits, err := NewSelector().TopK([][]float32{{1, 0}}, corpus, 2)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Len(t, hits[0], 2)

	assert.Equal(t, "a", hits[0][0].ID)
	assert.InDelta(t, 1.0, hits[0][0].Score, 1e-6)
	assert.Equal(t, "c", hits[0][1].ID)
	assert.InDelta(t, 0.70710678, hits[0][1].Score, 1e-6)
}

func TestSelector_OrderingAndSize(t *testing.T) {
	store := newTestStore(t)
	vectors := make([][]float32, 50)
	rng := rand.New(rand.NewSource(7))
	for i := range vectors {
		vectors[i] = []float32{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}
	}
	docs := make([]*core.Document, len(vectors))
	for i, v := range vectors {
		docs[i] = &core.Document{Id: string(rune('A' + i)), Text: "doc", Vector: v}
	}
	_, err := store.Append(context.Background(), docs...)
	require.NoError(t, err)

	corpus, err := NewCorpus(context.Background(), store)
	require.NoError(t, err)
	selector := NewSelector()
	query := [][]float32{{0.5, -0.1, 0.8}}

	for _, topK := range []int{1, 3, 10, 49, 50, 100} {
		hits, err := selector.TopK(query, corpus, topK)
		require.NoError(t, err)
		require.Len(t, hits, 1)

		want := topK
		if want > corpus.Len() {
			want = corpus.Len()
		}
		assert.Len(t, hits[0], want, "top_k=%d", topK)

		for i := 1; i < len(hits[0]); i++ {
			assert.GreaterOrEqual(t, hits[0][i-1].Score, hits[0][i].Score,
				"top_k=%d: not sorted at position %d", topK, i)
		}
	}
}

func TestSelector_PartialSelectionMatchesFullSort(t *testing.T) {
	store := newTestStore(t)
	rng := rand.New(rand.NewSource(42))
	docs := make([]*core.Document, 200)
	for i := range docs {
		docs[i] = &core.Document{
			Id:     string(rune(1000 + i)),
			Text:   "doc",
			Vector: []float32{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1},
		}
	}
	_, err := store.Append(context.Background(), docs...)
	require.NoError(t, err)

	corpus, err := NewCorpus(context.Background(), store)
	require.NoError(t, err)
	selector := NewSelector()
	query := [][]float32{{0.1, 0.9, -0.3, 0.2}}

	// top_k >= N takes the full-sort path; a smaller top_k takes the
	// quickselect path. Their common prefix must agree.
	full, err := selector.TopK(query, corpus, corpus.Len())
	require.NoError(t, err)
	partial, err := selector.TopK(query, corpus, 17)
	require.NoError(t, err)

	assert.Equal(t, full[0][:17], partial[0])
}

func TestSelector_TieBreakByInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	// Identical embeddings score identically; insertion order must decide.
	seedStore(t, store, []float32{1, 0}, []float32{1, 0}, []float32{1, 0})

	corpus, err := NewCorpus(context.Background(), store)
	require.NoError(t, err)

	hits, err := NewSelector().TopK([][]float32{{1, 0}}, corpus, 2)
	require.NoError(t, err)
	require.Len(t, hits[0], 2)
	assert.Equal(t, "a", hits[0][0].ID)
	assert.Equal(t, "b", hits[0][1].ID)
}

func TestSelector_EmptyCorpus(t *testing.T) {
	store := newTestStore(t)
	corpus, err := NewCorpus(context.Background(), store)
	require.NoError(t, err)

	hits, err := NewSelector().TopK([][]float32{{1, 0}, {0, 1}}, corpus, 3)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Empty(t, hits[0])
	assert.Empty(t, hits[1])
}

func TestSelector_EmptyQueryBatch(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store, []float32{1, 0})
	corpus, err := NewCorpus(context.Background(), store)
	require.NoError(t, err)

	hits, err := NewSelector().TopK(nil, corpus, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSelector_InvalidParameters(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store, []float32{1, 0})
	corpus, err := NewCorpus(context.Background(), store)
	require.NoError(t, err)
	selector := NewSelector()

	t.Run("top_k zero", func(t *testing.T) {
		_, err := selector.TopK([][]float32{{1, 0}}, corpus, 0)
		assert.ErrorIs(t, err, ErrInvalidTopK)
	})

	t.Run("top_k negative", func(t *testing.T) {
		_, err := selector.TopK([][]float32{{1, 0}}, corpus, -3)
		assert.ErrorIs(t, err, ErrInvalidTopK)
	})

	t.Run("nil corpus", func(t *testing.T) {
		_, err := selector.TopK([][]float32{{1, 0}}, nil, 3)
		assert.ErrorIs(t, err, ErrCorpusRequired)
	})

	t.Run("zero-norm query", func(t *testing.T) {
		_, err := selector.TopK([][]float32{{0, 0}}, corpus, 3)
		assert.ErrorIs(t, err, core.ErrDegenerateVector)
	})

	t.Run("NaN component", func(t *testing.T) {
		_, err := selector.TopK([][]float32{{float32(math.NaN()), 1}}, corpus, 3)
		assert.ErrorIs(t, err, core.ErrDegenerateVector)
	})

	t.Run("infinite component", func(t *testing.T) {
		_, err := selector.TopK([][]float32{{1, float32(math.Inf(1))}}, corpus, 3)
		assert.ErrorIs(t, err, core.ErrDegenerateVector)
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := selector.TopK([][]float32{{}}, corpus, 3)
		assert.ErrorIs(t, err, core.ErrDegenerateVector)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := selector.TopK([][]float32{{1, 0, 0}}, corpus, 3)
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	})
}

func TestSelector_NonFiniteQueryInLaterBatchPosition(t *testing.T) {
	// A non-finite query anywhere in the batch must surface as an error
	// rather than leaking NaN scores into the hit ordering.
	store := newTestStore(t)
	seedStore(t, store, []float32{1, 0}, []float32{0, 1})
	corpus, err := NewCorpus(context.Background(), store)
	require.NoError(t, err)

	_, err = NewSelector().TopK([][]float32{{1, 0}, {float32(math.NaN()), 1}}, corpus, 2)
	require.ErrorIs(t, err, core.ErrDegenerateVector)
	assert.Contains(t, err.Error(), "query 1")
}

func TestSelector_Determinism(t *testing.T) {
	store := newTestStore(t)
	rng := rand.New(rand.NewSource(11))
	docs := make([]*core.Document, 64)
	for i := range docs {
		docs[i] = &core.Document{
			Id:     string(rune(2000 + i)),
			Text:   "doc",
			Vector: []float32{rng.Float32(), rng.Float32(), rng.Float32()},
		}
	}
	_, err := store.Append(context.Background(), docs...)
	require.NoError(t, err)

	corpus, err := NewCorpus(context.Background(), store)
	require.NoError(t, err)
	selector := NewSelector()
	queries := [][]float32{{0.2, 0.5, 0.9}, {0.9, 0.1, 0.1}}

	first, err := selector.TopK(queries, corpus, 10)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := selector.TopK(queries, corpus, 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
