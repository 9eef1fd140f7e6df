// Package search implements the hybrid Searcher: vector + keyword retrieval,
// Reciprocal Rank Fusion, optional reranking, and context expansion.
package search

import "sort"

// DefaultRRFConstant is the RRF smoothing parameter k (empirically validated
// across domains; the same value used by Azure AI Search, OpenSearch, etc).
const DefaultRRFConstant = 60

// fusedResult accumulates a chunk's rank in each retrieval list before
// scoring.
type fusedResult struct {
	chunkID int64
	vecRank int // 1-indexed; 0 means absent from the vector list
	lexRank int // 1-indexed; 0 means absent from the keyword list
	score   float64
}

// fuse combines vector and keyword candidate lists with Reciprocal Rank
// Fusion weighted by alpha:
//
//	score(d) = alpha * 1/(k + rank_v(d)) + (1-alpha) * 1/(k + rank_l(d))
//
// A document absent from a list contributes exactly zero to that list's
// term — not a finite missing-rank penalty. alpha=0 degenerates to lexical
// ranking order; alpha=1 degenerates to vector ranking order.
//
// Results are sorted by score descending, ties broken by ascending chunkID.
func fuse(vec []int64, lex []int64, alpha float64, k int) []fusedResult {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	acc := make(map[int64]*fusedResult, len(vec)+len(lex))
	get := func(id int64) *fusedResult {
		r, ok := acc[id]
		if !ok {
			r = &fusedResult{chunkID: id}
			acc[id] = r
		}
		return r
	}

	for i, id := range vec {
		r := get(id)
		r.vecRank = i + 1
		r.score += alpha / float64(k+i+1)
	}
	for i, id := range lex {
		r := get(id)
		r.lexRank = i + 1
		r.score += (1 - alpha) / float64(k+i+1)
	}

	results := make([]fusedResult, 0, len(acc))
	for _, r := range acc {
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].chunkID < results[j].chunkID
	})
	return results
}
