package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/libragen/libragen/internal/collection"
	"github.com/libragen/libragen/internal/embed"
	"github.com/libragen/libragen/internal/mcp"
	"github.com/libragen/libragen/internal/pack"
	"github.com/libragen/libragen/internal/search"
)

// newServeCmd creates the serve command, exposing the list/search/
// uninstall/update tool surface to an MCP host over stdio.
func newServeCmd() *cobra.Command {
	var (
		transport string
		rerank    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server exposing list/search/uninstall/update",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			manager := pack.New(cfg.Paths.Libraries)

			embedder := embed.New(embed.Config{Model: cfg.Embeddings.Model, Dimensions: cfg.Embeddings.Dimensions})
			defer embedder.Dispose()

			var reranker search.Reranker
			if rerank {
				reranker = search.NewLexicalReranker()
			}

			client, err := collection.NewClient(
				filepath.Join(cfg.Paths.Home, collection.ConfigFileName),
				filepath.Join(cfg.Paths.Home, "cache", "collections"),
			)
			if err != nil {
				return fmt.Errorf("initializing collection client: %w", err)
			}

			server, err := mcp.NewServer(manager, embedder, reranker, client)
			if err != nil {
				return fmt.Errorf("starting MCP server: %w", err)
			}
			return server.Serve(cmd.Context(), transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (only stdio is supported)")
	cmd.Flags().BoolVar(&rerank, "rerank", false, "enable the lexical reranker for search results")

	return cmd
}
