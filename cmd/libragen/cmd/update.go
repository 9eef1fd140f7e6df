package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/libragen/libragen/internal/collection"
	"github.com/libragen/libragen/internal/output"
	"github.com/libragen/libragen/internal/pack"
	"github.com/libragen/libragen/internal/update"
)

// newUpdateCmd creates the update command: list (and optionally apply)
// newer versions of installed packs that carry a collection origin.
func newUpdateCmd() *cobra.Command {
	var (
		name   string
		force  bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "List and apply updates for installed packs with a collection origin",
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

			installed := make([]update.Installed, 0, len(records))
			for _, r := range records {
				if name != "" && r.Name != name {
					continue
				}
				installed = append(installed, update.Installed{
					Name:           r.Name,
					Version:        r.Version,
					ContentVersion: r.Manifest.ContentVersion,
					Collection:     r.Manifest.Collection,
				})
			}

			client, err := collection.NewClient(
				filepath.Join(cfg.Paths.Home, collection.ConfigFileName),
				filepath.Join(cfg.Paths.Home, "cache", "collections"),
			)
			if err != nil {
				return fmt.Errorf("initializing collection client: %w", err)
			}

			candidates, err := update.FindUpdates(cmd.Context(), installed, client, update.FindOptions{Force: force})
			if err != nil {
				return fmt.Errorf("finding updates: %w", err)
			}

			w := output.New(cmd.OutOrStdout())
			if len(candidates) == 0 {
				w.Status("", "no updates available")
				return nil
			}

			for _, c := range candidates {
				w.Statusf("", "%s: %s -> %s", c.Name, c.CurrentVersion, c.NewVersion)
			}
			if dryRun {
				return nil
			}

			var failed []string
			for _, c := range candidates {
				if err := update.PerformUpdate(cmd.Context(), c, manager, client); err != nil {
					w.Warningf("%s: %v", c.Name, err)
					failed = append(failed, c.Name)
					continue
				}
				w.Successf("updated %s to %s", c.Name, c.NewVersion)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d update(s) failed: %v", len(failed), failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "restrict to a single installed pack by name")
	cmd.Flags().BoolVar(&force, "force", false, "include packs that are already current")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list candidates without applying them")

	return cmd
}
