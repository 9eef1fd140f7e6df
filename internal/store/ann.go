package store

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/coder/hnsw"
)

// annIndex is a lazily-built in-memory approximate nearest-neighbor index
// layered over a Pack's exact chunk storage, used only once a pack holds
// more than hnswThreshold chunks. It is rebuilt from scratch whenever the
// underlying chunk set changes (see Pack.invalidateANN), trading rebuild
// cost for never having to reconcile coder/hnsw's own deletion quirks
// against our own delete-then-reinsert FTS5 pattern.
type annIndex struct {
	graph *hnsw.Graph[int64]
}

// vectorSearchANN attempts an ANN-backed search, building the index on
// first use. Returns ok=false when the index fails to build or the graph
// returns no neighbors, in which case the caller falls back to an exact scan.
func (p *Pack) vectorSearchANN(ctx context.Context, queryVec []float32, k int, filters SearchFilters) ([]ScoredChunk, bool) {
	idx, err := p.ensureANN(ctx)
	if err != nil || idx == nil {
		return nil, false
	}

	// The ANN graph has no notion of content_version/source_glob filters, so
	// when filters are active we over-fetch from the graph and post-filter,
	// falling back to exact scan if that still can't satisfy k.
	fetchK := k
	if filters.ContentVersion != "" || filters.SourceGlob != "" {
		fetchK = k * 8
		if fetchK < 200 {
			fetchK = 200
		}
	}

	neighbors := idx.graph.Search(queryVec, fetchK)
	if len(neighbors) == 0 {
		return nil, false
	}

	var out []ScoredChunk
	for _, n := range neighbors {
		c, err := p.GetChunk(ctx, n.Key)
		if err != nil {
			continue
		}
		if filters.ContentVersion != "" && c.ContentVersion != filters.ContentVersion {
			continue
		}
		if filters.SourceGlob != "" && !globMatch(filters.SourceGlob, c.SourceFile) {
			continue
		}
		out = append(out, ScoredChunk{Chunk: *c, Score: cosine(queryVec, c.Embedding)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, true
}

func (p *Pack) ensureANN(ctx context.Context) (*annIndex, error) {
	p.annMu.Lock()
	defer p.annMu.Unlock()

	if p.ann != nil {
		return p.ann, nil
	}
	if p.annErr != nil {
		return nil, p.annErr
	}

	graph := hnsw.NewGraph[int64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 32
	graph.EfSearch = 64

	err := p.IterateChunksAscending(ctx, func(c Chunk) error {
		graph.Add(hnsw.MakeNode(c.ID, c.Embedding))
		return nil
	})
	if err != nil {
		p.annErr = err
		return nil, err
	}

	p.ann = &annIndex{graph: graph}
	return p.ann, nil
}

func globMatch(pattern, name string) bool {
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}
