package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/libragen/libragen/internal/logging"
)

// newLogsCmd creates the logs command, viewing and tailing the debug log
// written by --debug (see internal/logging). It is the only consumer of the
// stdout-safe output path here: unlike serve, logs is never run under an MCP
// host, so it is free to write straight to the command's stdout.
func newLogsCmd() *cobra.Command {
	var (
		file    string
		lines   int
		follow  bool
		level   string
		pattern string
		noColor bool
		source  bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View the libragen debug log",
		Long: `logs tails the debug log written to ~/.libragen/logs/ when libragen
runs with --debug. Without --follow it prints the last N lines and exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := logging.FindLogFile(file)
			if err != nil {
				return err
			}

			var pat *regexp.Regexp
			if pattern != "" {
				pat, err = regexp.Compile(pattern)
				if err != nil {
					return fmt.Errorf("invalid --grep pattern: %w", err)
				}
			}

			viewer := logging.NewViewer(logging.ViewerConfig{
				Level:      level,
				Pattern:    pat,
				NoColor:    noColor,
				ShowSource: source,
			}, cmd.OutOrStdout())

			entries, err := viewer.Tail(path, lines)
			if err != nil {
				return fmt.Errorf("reading log file: %w", err)
			}
			viewer.Print(entries)

			if !follow {
				return nil
			}

			ctx := cmd.Context()
			entryCh := make(chan logging.LogEntry, 64)
			go func() {
				_ = viewer.Follow(ctx, path, entryCh)
				close(entryCh)
			}()

			for {
				select {
				case entry, ok := <-entryCh:
					if !ok {
						return nil
					}
					viewer.Print([]logging.LogEntry{entry})
				case <-ctx.Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "explicit log file path (default: ~/.libragen/logs/server.log)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow the log file for new entries")
	cmd.Flags().StringVar(&level, "level", "", "minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&pattern, "grep", "", "only show lines matching this regular expression")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&source, "source", false, "show the source label on each line")

	return cmd
}

