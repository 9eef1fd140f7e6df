package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libragen/libragen/internal/embed"
	"github.com/libragen/libragen/internal/store"
)

func newTestPack(t *testing.T, docs []string) (*store.Pack, *embed.Embedder) {
	t.Helper()
	ctx := context.Background()

	pack, err := store.Open(filepath.Join(t.TempDir(), "test.pack"), store.OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pack.Close() })
	require.NoError(t, pack.Initialize(ctx))

	sourceID, err := pack.AddSource(ctx, store.Source{
		Path: "/repo/file.go", RelativePath: "file.go", Language: "go",
		Size: 100, ModifiedAt: time.Now(),
	})
	require.NoError(t, err)

	embedder := embed.New(embed.Config{Model: "hash-trigram", Dimensions: 32})

	chunks := make([]store.Chunk, len(docs))
	for i, d := range docs {
		vec, err := embedder.Embed(ctx, d)
		require.NoError(t, err)
		chunks[i] = store.Chunk{
			SourceID: sourceID, Content: d,
			StartLine: i * 10, EndLine: i*10 + 5,
			ContentVersion: "v1", Ordinal: i, Embedding: vec,
		}
	}
	require.NoError(t, pack.AddChunks(ctx, chunks))

	return pack, embedder
}

func TestSearcher_Search_EmptyQueryReturnsNil(t *testing.T) {
	pack, embedder := newTestPack(t, []string{"func main() {}"})
	s := New(pack, embedder, nil)

	results, err := s.Search(context.Background(), NewQuery("   "))
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestSearcher_Search_ReturnsRelevantChunk(t *testing.T) {
	pack, embedder := newTestPack(t, []string{
		"func ParseConfig reads configuration from a YAML file",
		"the quick brown fox jumps over the lazy dog",
	})
	s := New(pack, embedder, nil)

	results, err := s.Search(context.Background(), NewQuery("parse configuration yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Contains(t, results[0].Content, "ParseConfig")
}

func TestSearcher_Search_AlphaZeroMatchesKeywordSearch(t *testing.T) {
	pack, embedder := newTestPack(t, []string{
		"func ParseConfig reads configuration from a YAML file",
		"the quick brown fox jumps over the lazy dog",
	})
	s := New(pack, embedder, nil)

	q := NewQuery("configuration yaml")
	q.HybridAlpha = 0
	hybrid, err := s.Search(context.Background(), q)
	require.NoError(t, err)

	lexOnly, err := s.KeywordSearch(context.Background(), "configuration yaml", q.K, store.SearchFilters{})
	require.NoError(t, err)

	require.NotEmpty(t, hybrid)
	require.NotEmpty(t, lexOnly)
	require.Equal(t, lexOnly[0].Chunk.ID, hybrid[0].ChunkID)
}

func TestSearcher_Search_ContextExpansion(t *testing.T) {
	pack, embedder := newTestPack(t, []string{"chunk zero", "chunk one target", "chunk two"})
	s := New(pack, embedder, nil)

	q := NewQuery("target")
	q.ContextBefore = 1
	q.ContextAfter = 1
	results, err := s.Search(context.Background(), q)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	var target *Result
	for i := range results {
		if results[i].Content == "chunk one target" {
			target = &results[i]
		}
	}
	require.NotNil(t, target)
	require.Len(t, target.ContextBefore, 1)
	require.Len(t, target.ContextAfter, 1)
	require.Equal(t, "chunk zero", target.ContextBefore[0].Content)
	require.Equal(t, "chunk two", target.ContextAfter[0].Content)
}

func TestSearcher_Search_RerankReordersResults(t *testing.T) {
	pack, embedder := newTestPack(t, []string{
		"alpha beta gamma delta",
		"completely unrelated text about cooking",
	})
	s := New(pack, embedder, NewLexicalReranker())

	q := NewQuery("alpha beta gamma")
	q.Rerank = true
	results, err := s.Search(context.Background(), q)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Contains(t, results[0].Content, "alpha beta gamma")
}
