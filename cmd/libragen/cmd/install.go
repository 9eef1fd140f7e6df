package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/libragen/libragen/internal/output"
	"github.com/libragen/libragen/internal/pack"
)

func newInstallCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "install <source>",
		Short: "Install a pack from a local file or URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			manager := pack.New(cfg.Paths.Libraries)
			rec, err := manager.Install(cmd.Context(), args[0], pack.InstallOptions{Force: force, Path: path}, nil)
			if err != nil {
				return fmt.Errorf("installing pack: %w", err)
			}

			w := output.New(cmd.OutOrStdout())
			w.Successf("installed %s v%s", rec.Name, rec.Version)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing pack of the same name")
	cmd.Flags().StringVar(&path, "path", "", "destination root (default: the configured libraries directory)")

	return cmd
}
