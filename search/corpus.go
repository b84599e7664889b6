package search

import (
	"context"
	"log/slog"

	"github.com/poiesic/recall/storage"
)

// Corpus is an immutable similarity-search snapshot of one vector store.
// Embeddings are unit-normalized at load time; entries whose embedding has
// zero norm cannot participate in cosine scoring and are excluded (logged),
// keeping their original insertion index for the entries that remain.
type Corpus struct {
	ids     []string
	indexes []int
	matrix  [][]float32
}

// NewCorpus loads a snapshot of the store. The underlying scan runs inside
// one read transaction, so the snapshot never mixes pre- and post-append
// state.
func NewCorpus(ctx context.Context, store storage.VectorStore) (*Corpus, error) {
	logger := slog.Default().With("component", "corpus")

	c := &Corpus{}
	err := store.Scan(ctx, func(index int, id string, vector []float32) error {
		normalized, ok := NormalizeVector(vector)
		if !ok {
			logger.Warn("excluding zero-norm embedding from scoring", "id", id, "index", index)
			return nil
		}
		c.ids = append(c.ids, id)
		c.indexes = append(c.indexes, index)
		c.matrix = append(c.matrix, normalized)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Len returns the number of scorable entries in the snapshot.
func (c *Corpus) Len() int {
	return len(c.ids)
}

// Dimension returns the embedding dimensionality of the snapshot,
// or 0 for an empty corpus.
func (c *Corpus) Dimension() int {
	if len(c.matrix) == 0 {
		return 0
	}
	return len(c.matrix[0])
}
