package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/libragen/libragen/internal/chunk"
	"github.com/libragen/libragen/internal/embed"
	liberrors "github.com/libragen/libragen/internal/errors"
	"github.com/libragen/libragen/internal/preflight"
	"github.com/libragen/libragen/internal/source"
	"github.com/libragen/libragen/internal/store"
)

// sourceUnit is one file's worth of chunks plus their embeddings, produced
// off the single writer goroutine and inserted in reader emission order.
type sourceUnit struct {
	entry  *source.Entry
	pieces []chunk.Piece
	vecs   [][]float32
	err    error
}

// Build runs the read -> chunk -> embed -> store pipeline and writes a
// finalized pack at cfg.Out.
func Build(ctx context.Context, cfg Config) (*Result, error) {
	start := time.Now()

	if len(cfg.Roots) == 0 {
		return nil, liberrors.New(liberrors.NotFound, "build requires at least one source path", nil)
	}
	if cfg.Out == "" {
		return nil, liberrors.New(liberrors.InvalidFormat, "build requires an output path", nil)
	}
	if cfg.Name == "" || cfg.Version == "" {
		return nil, liberrors.New(liberrors.InvalidFormat, "build requires a name and version", nil)
	}
	if check := preflight.New().CheckDiskSpace(outDir(cfg.Out)); check.Status == preflight.StatusFail {
		return nil, liberrors.New(liberrors.Internal, "insufficient disk space for build output: "+check.Message, nil)
	}

	reader, err := source.New()
	if err != nil {
		return nil, err
	}

	splitter := chunk.NewSplitter()
	defer splitter.Close()

	embedder := embed.New(embed.Config{Model: cfg.Model, Dimensions: cfg.Dimensions})
	if _, probeErr := embedder.Embed(ctx, "libragen build probe"); probeErr != nil {
		return nil, liberrors.Wrap(liberrors.ModelLoad, probeErr)
	}
	defer func() { _ = embedder.Dispose() }()

	pack, err := store.Open(cfg.Out, store.OpenOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pack.Close() }()
	if err := pack.Initialize(ctx); err != nil {
		return nil, err
	}

	entries, err := readAll(ctx, reader, cfg)
	if err != nil {
		return nil, err
	}
	reportProgress(cfg.Progress, Progress{Stage: StageReading, Current: len(entries), Total: len(entries)})

	units, err := chunkAndEmbed(ctx, cfg, splitter, embedder, entries)
	if err != nil {
		return nil, err
	}

	totalChunks, warnings, err := insertUnits(ctx, pack, cfg, units)
	if err != nil {
		return nil, err
	}

	if totalChunks < cfg.MinChunks {
		return nil, liberrors.New(liberrors.InvalidFormat,
			fmt.Sprintf("build produced %d chunks, below the configured minimum of %d", totalChunks, cfg.MinChunks), nil)
	}

	if err := finalize(ctx, pack, cfg, len(entries), totalChunks, embedder); err != nil {
		return nil, err
	}
	reportProgress(cfg.Progress, Progress{Stage: StageFinalizing, Current: 1, Total: 1})

	slog.Info("build_complete",
		slog.String("out", cfg.Out),
		slog.Int("sources", len(entries)),
		slog.Int("chunks", totalChunks),
		slog.Int("warnings", warnings),
		slog.Duration("duration", time.Since(start)))

	return &Result{
		Sources:  len(entries),
		Chunks:   totalChunks,
		Duration: time.Since(start),
		Warnings: warnings,
	}, nil
}

func readAll(ctx context.Context, reader *source.Reader, cfg Config) ([]*source.Entry, error) {
	results, err := reader.Scan(ctx, source.Options{
		Roots:            cfg.Roots,
		Ignore:           cfg.IgnorePatterns,
		RespectGitignore: cfg.RespectGitignore,
	})
	if err != nil {
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}

	var entries []*source.Entry
	for r := range results {
		if r.Err != nil {
			slog.Warn("build_read_skip", slog.String("error", r.Err.Error()))
			continue
		}
		entries = append(entries, r.Entry)
		reportProgress(cfg.Progress, Progress{Stage: StageReading, Current: len(entries), CurrentFile: r.Entry.RelativePath})
	}
	return entries, nil
}

// chunkAndEmbed dispatches chunk.Split + embedder.EmbedBatch across up to
// cfg.workers() goroutines, one per source, and returns units indexed by
// reader emission order so the caller can insert them in that order
// regardless of completion order.
func chunkAndEmbed(ctx context.Context, cfg Config, splitter *chunk.Splitter, embedder *embed.Embedder, entries []*source.Entry) ([]sourceUnit, error) {
	units := make([]sourceUnit, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())

	opts := cfg.splitterOptions()
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			pieces := splitter.SplitWithOptions(gctx, entry.Content, entry.Language, opts)
			if len(pieces) == 0 {
				units[i] = sourceUnit{entry: entry}
				return nil
			}
			texts := make([]string, len(pieces))
			for j, p := range pieces {
				texts[j] = p.Content
			}
			vecs, err := embedder.EmbedBatch(gctx, texts, nil)
			if err != nil {
				units[i] = sourceUnit{entry: entry, err: err}
				return nil
			}
			units[i] = sourceUnit{entry: entry, pieces: pieces, vecs: vecs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, liberrors.Wrap(liberrors.Canceled, err)
	}
	return units, nil
}

// insertUnits writes units to the pack in order, on the single writer
// connection, reporting per-file embedding warnings instead of failing
// the whole build on one bad file.
func insertUnits(ctx context.Context, pack *store.Pack, cfg Config, units []sourceUnit) (totalChunks, warnings int, err error) {
	for i, u := range units {
		if u.err != nil {
			slog.Warn("build_embed_skip", slog.String("file", u.entry.RelativePath), slog.String("error", u.err.Error()))
			warnings++
			continue
		}
		if len(u.pieces) == 0 {
			continue
		}

		sourceID, err := pack.AddSource(ctx, store.Source{
			Path:         u.entry.Path,
			RelativePath: u.entry.RelativePath,
			Language:     u.entry.Language,
			Size:         u.entry.Size,
			ModifiedAt:   u.entry.ModifiedAt,
		})
		if err != nil {
			return totalChunks, warnings, err
		}

		chunks := make([]store.Chunk, len(u.pieces))
		for j, p := range u.pieces {
			chunks[j] = store.Chunk{
				SourceID:       sourceID,
				Content:        p.Content,
				StartLine:      p.StartLine,
				EndLine:        p.EndLine,
				ContentVersion: cfg.ContentVersion,
				Ordinal:        j,
				Embedding:      u.vecs[j],
			}
		}
		if err := pack.AddChunks(ctx, chunks); err != nil {
			return totalChunks, warnings, err
		}
		totalChunks += len(chunks)

		reportProgress(cfg.Progress, Progress{
			Stage: StageEmbedding, Current: i + 1, Total: len(units), CurrentFile: u.entry.RelativePath,
		})
	}
	return totalChunks, warnings, nil
}

func finalize(ctx context.Context, pack *store.Pack, cfg Config, sourceCount, chunkCount int, embedder *embed.Embedder) error {
	contentHash, err := computeContentHash(ctx, pack)
	if err != nil {
		return err
	}

	manifest := store.Manifest{
		Name:               cfg.Name,
		Version:            cfg.Version,
		DisplayName:        cfg.DisplayName,
		Description:        cfg.Description,
		AgentDescription:   cfg.AgentDescription,
		ExampleQueries:     cfg.ExampleQueries,
		Keywords:           cfg.Keywords,
		Author:             cfg.Author,
		Repository:         cfg.Repository,
		CreatedAt:          time.Now(),
		ContentVersion:     cfg.ContentVersion,
		ContentVersionType: cfg.ContentVersionType,
		ContentHash:        contentHash,
		Embedding: store.EmbeddingInfo{
			Model:      embedder.ModelName(),
			Dimensions: embedder.Dimensions(),
		},
		Chunking: store.ChunkingInfo{
			Strategy:     "recursive-structural",
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
		},
		Stats: store.Stats{
			ChunkCount:  chunkCount,
			SourceCount: sourceCount,
		},
	}

	if err := pack.SetMetadata(ctx, "manifest", mustMarshal(manifest)); err != nil {
		return err
	}
	if err := pack.SetMetadata(ctx, "content_hash", contentHash); err != nil {
		return err
	}

	if fi, statErr := os.Stat(pack.Path()); statErr == nil {
		manifest.Stats.FileSize = fi.Size()
		if err := pack.SetMetadata(ctx, "manifest", mustMarshal(manifest)); err != nil {
			return err
		}
	}
	return nil
}

func mustMarshal(manifest store.Manifest) string {
	raw, err := json.Marshal(manifest)
	if err != nil {
		// Manifest contains no unmarshalable fields (no chans/funcs); a
		// failure here means a struct change broke that invariant.
		panic(fmt.Sprintf("manifest marshal: %v", err))
	}
	return string(raw)
}

// computeContentHash feeds (content, source_file, start_line, end_line) for
// every chunk, in id-ascending order, into a single SHA-256.
func computeContentHash(ctx context.Context, pack *store.Pack) (string, error) {
	h := sha256.New()
	err := pack.IterateChunksAscending(ctx, func(c store.Chunk) error {
		fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d\x00", c.Content, c.SourceFile, c.StartLine, c.EndLine)
		return nil
	})
	if err != nil {
		return "", err
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

func reportProgress(fn ProgressFunc, p Progress) {
	if fn != nil {
		fn(p)
	}
}

// outDir returns the directory a pack will be written into, creating it
// first if absent so the disk-space preflight check has somewhere to stat.
func outDir(out string) string {
	dir := filepath.Dir(out)
	if dir == "" {
		return "."
	}
	_ = os.MkdirAll(dir, 0o755)
	return dir
}
