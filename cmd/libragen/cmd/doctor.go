package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/libragen/libragen/internal/preflight"
)

// newDoctorCmd creates the doctor command, running the preflight checks
// (disk space, memory, write permissions, file descriptor limits, embedder
// model cache) that a build would otherwise fail partway through.
func newDoctorCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor [path]",
		Short: "Check the local environment before building a pack",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			target := "."
			if len(args) == 1 {
				target = args[0]
			}

			checker := preflight.New(
				preflight.WithVerbose(verbose),
				preflight.WithOutput(cmd.OutOrStdout()),
				preflight.WithModelCacheDir(cfg.Paths.Models),
			)
			results := checker.RunAll(cmd.Context(), target)
			checker.PrintResults(results)

			if checker.HasCriticalFailures(results) {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "show check details")

	return cmd
}
