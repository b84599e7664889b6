package core

//go:generate go run ../cmd/musgen

import (
	"encoding/hex"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// Score map keys attached to matches during search.
const (
	// ScoreCosine is the per-branch cosine similarity of a match.
	ScoreCosine = "cosine"
	// ScoreRelevance is the weighted, fused relevance score of a match.
	ScoreRelevance = "relevance"
)

// TagRootDocID marks a chunk with the identifier of its parent document.
const TagRootDocID = "root_doc_id"

// IDFromContent generates a deterministic identifier from text content using
// BLAKE2b hashing. Identical content produces identical identifiers.
func IDFromContent(text string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// ChunkID generates a deterministic identifier for a chunk of a parent
// document, derived from the parent identifier and the chunk's character span.
func ChunkID(rootID string, start, end int) string {
	return IDFromContent(fmt.Sprintf("%s:%d:%d", rootID, start, end))
}

// Span is a half-open [Start, End) character range within a parent text.
type Span struct {
	Start int
	End   int
}

// Document is the unit of storage and retrieval. A document carries its text,
// an optional embedding vector, free-form tags and named scores.
//
// A chunk is a Document representing a sub-span of a parent's text: Offset,
// Location and Weight are set, and Tags[TagRootDocID] names the parent.
type Document struct {
	Id       string
	Text     string
	Vector   []float32          // Embedding for semantic search (vector-store records only)
	Tags     map[string]string  // Free-form metadata (e.g. root_doc_id for chunks)
	Scores   map[string]float32 // Named scores attached during search
	Offset   int                // Chunk ordinal within the parent text
	Location Span               // Chunk character span within the parent text
	Weight   float32            // Chunk weight used during fusion
}

// ParentID returns the identifier used to resolve this document back to its
// parent: the root_doc_id tag for chunks, the document's own Id otherwise.
func (d *Document) ParentID() string {
	if d.Tags != nil {
		if root, ok := d.Tags[TagRootDocID]; ok && root != "" {
			return root
		}
	}
	return d.Id
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	if d.Vector != nil {
		c.Vector = make([]float32, len(d.Vector))
		copy(c.Vector, d.Vector)
	}
	if d.Tags != nil {
		c.Tags = make(map[string]string, len(d.Tags))
		for k, v := range d.Tags {
			c.Tags[k] = v
		}
	}
	if d.Scores != nil {
		c.Scores = make(map[string]float32, len(d.Scores))
		for k, v := range d.Scores {
			c.Scores[k] = v
		}
	}
	return &c
}

// Match associates a query with a candidate document found during search.
// Document is a query-scoped copy of the stored record, never the record
// itself. Index is the candidate's insertion index within its vector store,
// used for deterministic tie-breaking.
type Match struct {
	Document *Document
	Index    int
	Scores   map[string]float32
}

// ParentID returns the parent identifier of the matched document.
func (m *Match) ParentID() string {
	return m.Document.ParentID()
}

// SetScore adds a named score to the match. Scores are only ever added to,
// never overwritten by a different component.
func (m *Match) SetScore(name string, value float32) {
	if m.Scores == nil {
		m.Scores = make(map[string]float32, 2)
	}
	m.Scores[name] = value
}

// Score returns the named score, or zero if not set.
func (m *Match) Score(name string) float32 {
	return m.Scores[name]
}
