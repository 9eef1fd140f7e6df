// Package build implements the Pack Builder: it drives the source reader,
// chunker, and embedder over one or more roots and writes the result into
// a freshly initialized pack.
package build

import (
	"time"

	"github.com/libragen/libragen/internal/chunk"
)

// DefaultWorkers bounds concurrent per-source chunk+embed dispatch when
// Config.Workers is unset.
const DefaultWorkers = 4

// Config configures a Build call.
type Config struct {
	// Roots are the files or directories to read, per the source reader's
	// Options.Roots contract.
	Roots []string

	// Out is the destination pack path. Created if missing, overwritten if
	// present (the caller is responsible for not clobbering an installed
	// pack without intending to).
	Out string

	// Name, Version, and the descriptive manifest fields. Name and Version
	// are required; the rest are optional and default to empty.
	Name             string
	Version          string
	DisplayName      string
	Description      string
	AgentDescription string
	ExampleQueries   []string
	Keywords         []string
	Author           string
	Repository       string

	// ContentVersion tags every chunk written by this build (e.g. a commit
	// SHA or release tag). ContentVersionType classifies it for the
	// Update Planner's comparison logic ("semver", "date", or "opaque").
	ContentVersion     string
	ContentVersionType string

	// ChunkSize and ChunkOverlap configure the Splitter; zero means its
	// own defaults.
	ChunkSize    int
	ChunkOverlap int

	// Model selects the embedder backend; empty means the Embedder's own
	// default (hash-trigram, Accelerate-backed where available).
	Model      string
	Dimensions int

	// Workers bounds the number of sources chunked and embedded
	// concurrently. Zero means DefaultWorkers.
	Workers int

	// MinChunks is the fewest chunks a successful build must produce.
	// Zero permits an empty pack (the empty-source-tree boundary case);
	// the CLI default is 0 unless the caller opts into a stricter floor.
	MinChunks int

	// IgnorePatterns adds caller-specified exclusions on top of the
	// source reader's defaults.
	IgnorePatterns []string

	// RespectGitignore honors .gitignore files under the roots.
	RespectGitignore bool

	// Progress receives stage-level progress events; may be nil.
	Progress ProgressFunc
}

func (c Config) splitterOptions() chunk.Options {
	return chunk.Options{ChunkSize: c.ChunkSize, ChunkOverlap: c.ChunkOverlap}
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return DefaultWorkers
	}
	return c.Workers
}

// Stage identifies a phase of the build pipeline, for progress reporting.
type Stage int

const (
	StageReading Stage = iota
	StageChunking
	StageEmbedding
	StageFinalizing
)

func (s Stage) String() string {
	switch s {
	case StageReading:
		return "reading"
	case StageChunking:
		return "chunking"
	case StageEmbedding:
		return "embedding"
	case StageFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Progress is one progress event emitted during Build.
type Progress struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
}

// ProgressFunc receives Progress events. Called synchronously from the
// goroutine doing the work; implementations must not block significantly.
type ProgressFunc func(Progress)

// Result summarizes a completed build.
type Result struct {
	Sources  int
	Chunks   int
	Duration time.Duration
	Warnings int
}
