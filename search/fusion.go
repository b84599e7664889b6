package search

import (
	"fmt"
	"sort"

	"github.com/poiesic/recall/core"
)

// Branch is one weighted, ranked match list entering fusion, as produced by
// running the selector against one vector store.
type Branch struct {
	Name    string
	Weight  float32
	Matches []*core.Match
}

// Fuse merges parallel weighted match lists for one query into a single
// deduplicated, ranked list keyed by parent document identifier.
//
// For each branch match with cosine score s and branch weight w, the parent's
// relevance accumulates s·w. The first-seen match copy keeps its other
// fields; only relevance is mutated. The fused list is ordered by descending
// relevance, ties broken by first-seen order, and truncated to topK. No
// parent identifier appears twice.
func Fuse(branches []Branch, topK int) ([]*core.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	for _, branch := range branches {
		if branch.Weight <= 0 {
			return nil, fmt.Errorf("branch %q: %w: got %v", branch.Name, ErrInvalidWeight, branch.Weight)
		}
	}

	// Ordered table keyed by parent id, preserving first-seen order.
	var fused []*core.Match
	position := make(map[string]int)

	for _, branch := range branches {
		for _, m := range branch.Matches {
			parentID := m.ParentID()
			weighted := m.Score(core.ScoreCosine) * branch.Weight

			if at, seen := position[parentID]; seen {
				existing := fused[at]
				existing.SetScore(core.ScoreRelevance, existing.Score(core.ScoreRelevance)+weighted)
				continue
			}

			entry := &core.Match{
				Document: m.Document.Clone(),
				Index:    m.Index,
				Scores:   make(map[string]float32, len(m.Scores)+1),
			}
			for name, value := range m.Scores {
				entry.Scores[name] = value
			}
			entry.SetScore(core.ScoreRelevance, weighted)

			position[parentID] = len(fused)
			fused = append(fused, entry)
		}
	}

	// Stable sort keeps first-seen order for equal relevance.
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score(core.ScoreRelevance) > fused[j].Score(core.ScoreRelevance)
	})

	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}
