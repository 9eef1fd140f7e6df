package search

import "github.com/libragen/libragen/internal/store"

// DefaultK is the result count used when Query.K is unset.
const DefaultK = 10

// DefaultHybridAlpha weights vector and lexical contributions equally.
const DefaultHybridAlpha = 0.5

// Query describes a single Search call. Build with NewQuery so K and
// HybridAlpha carry their documented defaults; a zero-value Query sent
// directly to Search is treated as K=10, HybridAlpha=0 (lexical-only),
// since HybridAlpha has no unset/zero distinction once the struct exists.
type Query struct {
	Text           string
	K              int
	HybridAlpha    float64
	ContentVersion string
	ContextBefore  int
	ContextAfter   int
	Rerank         bool
	SourceGlob     string
}

// NewQuery builds a Query with the spec's documented defaults (K=10,
// HybridAlpha=0.5), ready for field overrides.
func NewQuery(text string) Query {
	return Query{Text: text, K: DefaultK, HybridAlpha: DefaultHybridAlpha}
}

func (q Query) withDefaults() Query {
	if q.K <= 0 {
		q.K = DefaultK
	}
	return q
}

// Result is a single ranked chunk with its score and expanded context.
type Result struct {
	ChunkID        int64
	Content        string
	Score          float64
	SourceFile     string
	StartLine      int
	EndLine        int
	Language       string
	ContentVersion string
	ContextBefore  []store.Chunk
	ContextAfter   []store.Chunk
}
