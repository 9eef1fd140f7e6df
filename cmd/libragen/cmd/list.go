package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/libragen/libragen/internal/output"
	"github.com/libragen/libragen/internal/pack"
)

func newListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			manager := pack.New(cfg.Paths.Libraries)
			records, err := manager.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing packs: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			w := output.New(cmd.OutOrStdout())
			if len(records) == 0 {
				w.Status("", "no packs installed")
				return nil
			}
			for _, r := range records {
				w.Statusf("", "%-24s %-10s %5d chunks  %s", r.Name, r.Version, r.Manifest.Stats.ChunkCount, r.Manifest.Description)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
