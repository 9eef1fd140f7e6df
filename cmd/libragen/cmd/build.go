package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/libragen/libragen/internal/build"
	"github.com/libragen/libragen/internal/output"
)

func newBuildCmd() *cobra.Command {
	var (
		out          string
		name         string
		pkgVersion   string
		chunkSize    int
		chunkOverlap int
		model        string
	)

	cmd := &cobra.Command{
		Use:   "build <paths...>",
		Short: "Build a retrieval pack from one or more source paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			w := output.New(cmd.OutOrStdout())
			buildCfg := build.Config{
				Roots:        args,
				Out:          out,
				Name:         name,
				Version:      pkgVersion,
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
				Model:        model,
				Dimensions:   cfg.Embeddings.Dimensions,
				Progress: func(p build.Progress) {
					w.Statusf("→", "%s (%d/%d)", p.Stage, p.Current, p.Total)
				},
			}
			if buildCfg.ChunkSize == 0 {
				buildCfg.ChunkSize = cfg.Build.ChunkSize
			}
			if buildCfg.ChunkOverlap == 0 {
				buildCfg.ChunkOverlap = cfg.Build.ChunkOverlap
			}
			if buildCfg.Model == "" {
				buildCfg.Model = cfg.Embeddings.Model
			}

			result, err := build.Build(cmd.Context(), buildCfg)
			if err != nil {
				return fmt.Errorf("building pack: %w", err)
			}

			w.Successf("built %s v%s: %d chunks from %d sources in %s", name, pkgVersion, result.Chunks, result.Sources, result.Duration)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "destination pack file (required)")
	cmd.Flags().StringVar(&name, "name", "", "pack name (required)")
	cmd.Flags().StringVar(&pkgVersion, "version", "0.0.0", "pack version")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "chunk size in characters (default from config)")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "chunk overlap in characters (default from config)")
	cmd.Flags().StringVar(&model, "model", "", "embedding model (default from config)")

	return cmd
}
