package search

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/libragen/libragen/internal/embed"
	liberrors "github.com/libragen/libragen/internal/errors"
	"github.com/libragen/libragen/internal/store"
)

// candidateMultiplier sets M = candidateMultiplier*K in Kv = Kl = max(K, M).
const candidateMultiplier = 4

// Searcher runs hybrid (vector + lexical) search against a single pack,
// with optional reranking and neighbor-chunk context expansion.
type Searcher struct {
	pack     *store.Pack
	embedder *embed.Embedder
	reranker Reranker
}

// New builds a Searcher over pack. reranker may be nil, in which case
// Query.Rerank is ignored.
func New(pack *store.Pack, embedder *embed.Embedder, reranker Reranker) *Searcher {
	return &Searcher{pack: pack, embedder: embedder, reranker: reranker}
}

// Search runs the hybrid retrieval pipeline described in the package's
// design: candidate retrieval, RRF fusion, optional rerank, and context
// expansion.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Result, error) {
	q = q.withDefaults()
	if strings.TrimSpace(q.Text) == "" {
		return nil, nil
	}

	filters := store.SearchFilters{ContentVersion: q.ContentVersion, SourceGlob: q.SourceGlob}
	m := candidateMultiplier * q.K
	candidateK := q.K
	if m > candidateK {
		candidateK = m
	}

	vecChunks, lexChunks, err := s.retrieveCandidates(ctx, q.Text, candidateK, filters)
	if err != nil {
		return nil, err
	}

	fused := fuse(chunkIDs(vecChunks), chunkIDs(lexChunks), q.HybridAlpha, DefaultRRFConstant)
	if len(fused) > q.K {
		fused = fused[:q.K]
	}

	byID := indexChunks(vecChunks, lexChunks)

	if q.Rerank && s.reranker != nil {
		fused, err = s.applyRerank(ctx, q.Text, fused, byID)
		if err != nil {
			return nil, err
		}
	}

	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		chunk, ok := byID[f.chunkID]
		if !ok {
			continue
		}
		r := Result{
			ChunkID:        chunk.ID,
			Content:        chunk.Content,
			Score:          f.score,
			SourceFile:     chunk.SourceFile,
			StartLine:      chunk.StartLine,
			EndLine:        chunk.EndLine,
			Language:       chunk.Language,
			ContentVersion: chunk.ContentVersion,
		}
		if q.ContextBefore > 0 || q.ContextAfter > 0 {
			before, after, err := s.pack.GetNeighbors(ctx, chunk.SourceID, chunk.Ordinal, q.ContextBefore, q.ContextAfter)
			if err != nil {
				return nil, err
			}
			r.ContextBefore = before
			r.ContextAfter = after
		}
		results = append(results, r)
	}
	return results, nil
}

// retrieveCandidates runs VectorSearch and KeywordSearch concurrently,
// degrading to whichever path succeeds if one errors.
func (s *Searcher) retrieveCandidates(ctx context.Context, query string, k int, filters store.SearchFilters) (vec, lex []store.ScoredChunk, err error) {
	g, gctx := errgroup.WithContext(ctx)

	var vecErr, lexErr error
	g.Go(func() error {
		queryVec, embedErr := s.embedder.Embed(gctx, query)
		if embedErr != nil {
			vecErr = embedErr
			return nil
		}
		results, searchErr := s.pack.VectorSearch(gctx, queryVec, k, filters)
		if searchErr != nil {
			vecErr = searchErr
			return nil
		}
		vec = results
		return nil
	})
	g.Go(func() error {
		results, searchErr := s.pack.KeywordSearch(gctx, query, k, filters)
		if searchErr != nil {
			lexErr = searchErr
			return nil
		}
		lex = results
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, liberrors.Wrap(liberrors.Internal, err)
	}

	if vecErr != nil && lexErr != nil {
		return nil, nil, liberrors.New(liberrors.Internal, "both vector and keyword search failed", vecErr)
	}
	// One path degraded: the caller proceeds with the surviving list alone.
	return vec, lex, nil
}

func (s *Searcher) applyRerank(ctx context.Context, query string, fused []fusedResult, byID map[int64]store.Chunk) ([]fusedResult, error) {
	if len(fused) == 0 {
		return fused, nil
	}
	docs := make([]string, len(fused))
	for i, f := range fused {
		docs[i] = byID[f.chunkID].Content
	}

	reranked, err := s.reranker.Rerank(ctx, query, docs, 0, nil)
	if err != nil {
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}

	out := make([]fusedResult, 0, len(reranked))
	for _, rr := range reranked {
		if rr.Index < 0 || rr.Index >= len(fused) {
			continue
		}
		f := fused[rr.Index]
		f.score = rr.Score
		out = append(out, f)
	}
	return out, nil
}

// VectorSearch is the lower-level vector-only retrieval helper, exposed so
// callers can check the alpha=1 boundary equivalence directly.
func (s *Searcher) VectorSearch(ctx context.Context, query string, k int, filters store.SearchFilters) ([]store.ScoredChunk, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.pack.VectorSearch(ctx, queryVec, k, filters)
}

// KeywordSearch is the lower-level lexical-only retrieval helper, exposed
// so callers can check the alpha=0 boundary equivalence directly.
func (s *Searcher) KeywordSearch(ctx context.Context, query string, k int, filters store.SearchFilters) ([]store.ScoredChunk, error) {
	return s.pack.KeywordSearch(ctx, query, k, filters)
}

func chunkIDs(chunks []store.ScoredChunk) []int64 {
	ids := make([]int64, len(chunks))
	for i, c := range chunks {
		ids[i] = c.Chunk.ID
	}
	return ids
}

func indexChunks(lists ...[]store.ScoredChunk) map[int64]store.Chunk {
	byID := make(map[int64]store.Chunk)
	for _, list := range lists {
		for _, c := range list {
			byID[c.Chunk.ID] = c.Chunk
		}
	}
	return byID
}
