package search

import (
	"fmt"
	"sort"

	"github.com/poiesic/recall/core"
)

// Hit is one top-k candidate: the stored document's identifier, its
// insertion index within the store, and the cosine similarity in [0, 1].
type Hit struct {
	ID    string
	Index int
	Score float32
}

// Selector computes batched top-k cosine similarity over a Corpus.
// A Selector is stateless and safe for concurrent use.
type Selector struct{}

// NewSelector creates a selector.
func NewSelector() *Selector {
	return &Selector{}
}

// TopK returns, for each query embedding, the topK most similar corpus
// entries ordered by descending similarity; similarity ties break on
// ascending insertion index. Similarity is the dot product of the
// unit-normalized vectors, clipped to [0, 1].
//
// An empty corpus yields an empty hit list per query; an empty query batch
// yields an empty result. A query that is empty, carries a non-finite
// component, has zero norm or mismatches the corpus dimensionality fails
// the whole call.
func (s *Selector) TopK(queries [][]float32, corpus *Corpus, topK int) ([][]Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	if corpus == nil {
		return nil, ErrCorpusRequired
	}
	if len(queries) == 0 {
		return [][]Hit{}, nil
	}

	results := make([][]Hit, len(queries))
	for qi, query := range queries {
		// A NaN or Inf component would survive normalization (the norm
		// itself goes non-finite) and poison every score downstream.
		if err := core.ValidateVector(query); err != nil {
			return nil, fmt.Errorf("query %d: %w", qi, err)
		}
		if corpus.Len() > 0 && len(query) != corpus.Dimension() {
			return nil, fmt.Errorf("query %d: %w: corpus dimension %d, query dimension %d",
				qi, core.ErrDimensionMismatch, corpus.Dimension(), len(query))
		}

		normalized, ok := NormalizeVector(query)
		if !ok {
			return nil, fmt.Errorf("query %d: %w: zero norm", qi, core.ErrDegenerateVector)
		}

		results[qi] = s.topKOne(normalized, corpus, topK)
	}
	return results, nil
}

// topKOne scores one normalized query against the whole corpus and selects
// the topK best hits.
func (s *Selector) topKOne(query []float32, corpus *Corpus, topK int) []Hit {
	n := corpus.Len()
	if n == 0 {
		return []Hit{}
	}

	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		hits[i] = Hit{
			ID:    corpus.ids[i],
			Index: corpus.indexes[i],
			Score: clipUnit(dotProduct(query, corpus.matrix[i])),
		}
	}

	if topK >= n {
		sortHits(hits)
		return hits
	}

	// Partial selection: isolate the topK best candidates in average O(N),
	// then sort only that prefix.
	quickselect(hits, topK)
	top := hits[:topK]
	sortHits(top)
	return top
}

// hitRanksBefore is the total order on hits: descending similarity, ties
// broken by ascending insertion index.
func hitRanksBefore(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Index < b.Index
}

func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		return hitRanksBefore(hits[i], hits[j])
	})
}

// quickselect partitions hits so that the k best candidates under
// hitRanksBefore occupy hits[:k], in average O(len(hits)).
func quickselect(hits []Hit, k int) {
	lo, hi := 0, len(hits)-1
	for lo < hi {
		p := partition(hits, lo, hi)
		switch {
		case p == k:
			return
		case p < k:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

// partition picks a median-of-three pivot and partitions hits[lo:hi+1]
// around it, returning the pivot's final position.
func partition(hits []Hit, lo, hi int) int {
	mid := lo + (hi-lo)/2
	if hitRanksBefore(hits[mid], hits[lo]) {
		hits[lo], hits[mid] = hits[mid], hits[lo]
	}
	if hitRanksBefore(hits[hi], hits[lo]) {
		hits[lo], hits[hi] = hits[hi], hits[lo]
	}
	if hitRanksBefore(hits[hi], hits[mid]) {
		hits[mid], hits[hi] = hits[hi], hits[mid]
	}
	hits[mid], hits[hi] = hits[hi], hits[mid]
	pivot := hits[hi]

	i := lo
	for j := lo; j < hi; j++ {
		if hitRanksBefore(hits[j], pivot) {
			hits[i], hits[j] = hits[j], hits[i]
			i++
		}
	}
	hits[i], hits[hi] = hits[hi], hits[i]
	return i
}
