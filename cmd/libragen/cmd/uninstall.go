package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/libragen/libragen/internal/output"
	"github.com/libragen/libragen/internal/pack"
)

func newUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall <name>",
		Short: "Remove an installed pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			manager := pack.New(cfg.Paths.Libraries)
			if err := manager.Uninstall(cmd.Context(), args[0], pack.UninstallOptions{}); err != nil {
				return fmt.Errorf("uninstalling pack: %w", err)
			}

			output.New(cmd.OutOrStdout()).Successf("uninstalled %s", args[0])
			return nil
		},
	}

	return cmd
}
