package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/libragen/libragen/internal/embed"
	"github.com/libragen/libragen/internal/output"
	"github.com/libragen/libragen/internal/pack"
	"github.com/libragen/libragen/internal/search"
	"github.com/libragen/libragen/internal/store"
)

func newSearchCmd() *cobra.Command {
	var (
		libraries     []string
		topK          int
		alpha         float64
		rerank        bool
		contextBefore int
		contextAfter  int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search one or more installed packs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			manager := pack.New(cfg.Paths.Libraries)
			records, err := manager.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing packs: %w", err)
			}
			records = filterRecordsByName(records, libraries)
			if len(libraries) > 0 && len(records) == 0 {
				return fmt.Errorf("none of the requested libraries are installed")
			}
			if len(records) == 0 {
				return fmt.Errorf("no packs installed")
			}

			if topK <= 0 {
				topK = cfg.Search.K
			}
			if !cmd.Flags().Changed("alpha") {
				alpha = cfg.Search.HybridAlpha
			}

			embedder := embed.New(embed.Config{Model: cfg.Embeddings.Model, Dimensions: cfg.Embeddings.Dimensions})
			defer embedder.Dispose()

			var reranker search.Reranker
			if rerank {
				reranker = search.NewLexicalReranker()
			}

			query := search.Query{
				Text:          args[0],
				K:             topK,
				HybridAlpha:   alpha,
				ContextBefore: contextBefore,
				ContextAfter:  contextAfter,
				Rerank:        rerank,
			}

			var all []taggedResult
			for _, rec := range records {
				p, err := store.Open(rec.Path, store.OpenOptions{ReadOnly: true})
				if err != nil {
					return fmt.Errorf("opening pack %s: %w", rec.Name, err)
				}
				results, err := search.New(p, embedder, reranker).Search(cmd.Context(), query)
				p.Close()
				if err != nil {
					return fmt.Errorf("searching pack %s: %w", rec.Name, err)
				}
				for _, r := range results {
					all = append(all, taggedResult{library: rec.Name, result: r})
				}
			}

			sort.SliceStable(all, func(i, j int) bool { return all[i].result.Score > all[j].result.Score })
			if len(all) > topK {
				all = all[:topK]
			}

			w := output.New(cmd.OutOrStdout())
			if len(all) == 0 {
				w.Status("", "no results")
				return nil
			}
			for i, tr := range all {
				w.Statusf("", "%d. [%s] %s:%d-%d (score %.3f)", i+1, tr.library, tr.result.SourceFile, tr.result.StartLine, tr.result.EndLine, tr.result.Score)
				w.Code(tr.result.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&libraries, "library", nil, "restrict search to these installed pack names")
	cmd.Flags().IntVar(&topK, "k", 0, "number of results (default from config)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "hybrid weight between lexical (0) and semantic (1) (default from config)")
	cmd.Flags().BoolVar(&rerank, "rerank", false, "rerank candidates before trimming to k")
	cmd.Flags().IntVar(&contextBefore, "context-before", 1, "neighbor chunks to include before each match")
	cmd.Flags().IntVar(&contextAfter, "context-after", 1, "neighbor chunks to include after each match")

	return cmd
}

type taggedResult struct {
	library string
	result  search.Result
}

func filterRecordsByName(records []pack.Record, names []string) []pack.Record {
	if len(names) == 0 {
		return records
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []pack.Record
	for _, r := range records {
		if want[r.Name] {
			out = append(out, r)
		}
	}
	return out
}
