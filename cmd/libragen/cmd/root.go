// Package cmd provides the CLI commands for libragen.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/libragen/libragen/internal/config"
	"github.com/libragen/libragen/internal/logging"
	"github.com/libragen/libragen/internal/profiling"
	"github.com/libragen/libragen/pkg/version"
)

// Profiling flags, kept wired as harmless ambient dev tooling.
var (
	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     = profiling.NewProfiler()
	cpuCleanup   func()
	traceCleanup func()
)

var (
	homeFlag       string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the libragen CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "libragen",
		Short: "Content-addressed retrieval packs with hybrid search",
		Long: `libragen builds, installs, and searches content-addressed
retrieval packs: hybrid (BM25 + semantic) indexes over a library's source,
installed once and queried many times by AI coding assistants via MCP.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("libragen version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&homeFlag, "home", "", "libragen home directory; $LIBRAGEN_HOME overrides it when set (default: $XDG_DATA_HOME/libragen or ~/.libragen)")
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.libragen/logs/")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newUninstallCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error

	if debugMode {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("setting up debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	}

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("starting CPU profile: %w", err)
		}
	}

	if profileTrace != "" {
		traceCleanup, err = profiler.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
			}
			return fmt.Errorf("starting trace: %w", err)
		}
	}

	return nil
}

func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}
	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}
	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("writing memory profile: %w", err)
		}
	}
	if loggingCleanup != nil {
		slog.Info("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves the effective configuration for this invocation.
// LIBRAGEN_HOME, when set, takes precedence over --home; with neither set
// the platform default is used.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(homeFlag)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("preparing libragen home: %w", err)
	}
	return cfg, nil
}
