package config

import (
	"os"
	"path/filepath"
)

// Paths is the resolved on-disk layout rooted at the libragen home
// directory: where installed packs, cached models, and configuration live.
type Paths struct {
	// Home is the libragen root, from LIBRAGEN_HOME or the platform default.
	Home string
	// Libraries is where installed pack files live (<home>/libraries).
	Libraries string
	// Models is where cached embedding/reranking models live, from
	// LIBRAGEN_MODEL_CACHE or <home>/models.
	Models string
}

// ResolvePaths computes Paths from LIBRAGEN_HOME and LIBRAGEN_MODEL_CACHE.
// LIBRAGEN_HOME, when set, overrides home; when both are empty the
// platform default from defaultHome is used.
func ResolvePaths(home string) Paths {
	if v := os.Getenv("LIBRAGEN_HOME"); v != "" {
		home = v
	}
	if home == "" {
		home = defaultHome()
	}

	models := filepath.Join(home, "models")
	if v := os.Getenv("LIBRAGEN_MODEL_CACHE"); v != "" {
		models = v
	}

	return Paths{
		Home:      home,
		Libraries: filepath.Join(home, "libraries"),
		Models:    models,
	}
}

// defaultHome mirrors the XDG app-data convention: $XDG_DATA_HOME/libragen
// when XDG_DATA_HOME is set (on any platform), otherwise ~/.libragen.
func defaultHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return filepath.Join(v, "libragen")
	}
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".libragen")
	}
	return ".libragen"
}

// EnsureDirs creates the Libraries and Models directories if missing.
func (p Paths) EnsureDirs() error {
	if err := os.MkdirAll(p.Libraries, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(p.Models, 0o755)
}
