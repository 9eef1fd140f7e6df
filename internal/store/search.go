package store

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	liberrors "github.com/libragen/libragen/internal/errors"
)

// VectorSearch returns the top k chunks by cosine similarity to queryVec,
// descending. Vectors are assumed L2-normalized, so cosine similarity
// reduces to a dot product. Up to hnswThreshold chunks this always uses an
// exact scan. Above it, the ANN index is built on first use (synchronously),
// and the exact scan is used when that build fails or the graph returns no
// neighbors.
func (p *Pack) VectorSearch(ctx context.Context, queryVec []float32, k int, filters SearchFilters) ([]ScoredChunk, error) {
	count, err := p.CountChunks(ctx)
	if err != nil {
		return nil, err
	}

	if count > hnswThreshold {
		if results, ok := p.vectorSearchANN(ctx, queryVec, k, filters); ok {
			return results, nil
		}
	}
	return p.vectorSearchExact(ctx, queryVec, k, filters)
}

func (p *Pack) vectorSearchExact(ctx context.Context, queryVec []float32, k int, filters SearchFilters) ([]ScoredChunk, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	query, args := buildFilteredQuery(`
		SELECT c.id, c.source_id, c.content, c.start_line, c.end_line, c.content_version, c.ordinal, c.embedding,
		       s.relative_path, s.language
		FROM chunks c JOIN sources s ON s.id = c.source_id`, filters)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}
	defer rows.Close()

	var scored []ScoredChunk
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, err
		}
		scored = append(scored, ScoredChunk{Chunk: *c, Score: cosine(queryVec, c.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// KeywordSearch ranks chunks by BM25 over the FTS5 index. The query is
// tokenized with the same code-aware tokenizer used at index time so
// results are consistent between ingest and query.
func (p *Pack) KeywordSearch(ctx context.Context, queryStr string, k int, filters SearchFilters) ([]ScoredChunk, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if strings.TrimSpace(queryStr) == "" {
		return nil, nil
	}
	tokens := FilterStopWords(TokenizeCode(queryStr), p.stopWords)
	if len(tokens) == 0 {
		return nil, nil
	}
	matchQuery := strings.Join(tokens, " ")

	base := `
		SELECT c.id, c.source_id, c.content, c.start_line, c.end_line, c.content_version, c.ordinal, c.embedding,
		       s.relative_path, s.language, bm25(chunks_fts) as rank
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.rowid
		JOIN sources s ON s.id = c.source_id
		WHERE chunks_fts MATCH ?`
	args := []any{matchQuery}

	if filters.ContentVersion != "" {
		base += " AND c.content_version = ?"
		args = append(args, filters.ContentVersion)
	}
	if filters.SourceGlob != "" {
		base += " AND s.relative_path GLOB ?"
		args = append(args, filters.SourceGlob)
	}
	base += " ORDER BY rank LIMIT ?"
	args = append(args, k)

	rows, err := p.db.QueryContext(ctx, base, args...)
	if err != nil {
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return nil, nil
		}
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}
	defer rows.Close()

	var scored []ScoredChunk
	for rows.Next() {
		var c Chunk
		var contentVersion, sourceFile, language sql.NullString
		var blob []byte
		var rank float64
		err := rows.Scan(&c.ID, &c.SourceID, &c.Content, &c.StartLine, &c.EndLine, &contentVersion, &c.Ordinal, &blob,
			&sourceFile, &language, &rank)
		if err != nil {
			return nil, liberrors.Wrap(liberrors.Internal, err)
		}
		c.ContentVersion = contentVersion.String
		c.Embedding = decodeEmbedding(blob)
		c.SourceFile = sourceFile.String
		c.Language = language.String
		// FTS5's bm25() returns a negative value where lower is better; negate
		// so higher score means a better match, consistent with vector search.
		scored = append(scored, ScoredChunk{Chunk: c, Score: -rank})
	}
	return scored, rows.Err()
}

func buildFilteredQuery(base string, filters SearchFilters) (string, []any) {
	var conds []string
	var args []any
	if filters.ContentVersion != "" {
		conds = append(conds, "c.content_version = ?")
		args = append(args, filters.ContentVersion)
	}
	if filters.SourceGlob != "" {
		conds = append(conds, "s.relative_path GLOB ?")
		args = append(args, filters.SourceGlob)
	}
	if len(conds) > 0 {
		base += " WHERE " + strings.Join(conds, " AND ")
	}
	return base, args
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
