// Package config resolves libragen's runtime configuration: the home
// directory layout, and the search/embeddings/performance/build tuning
// knobs loadable from a YAML file and overridable by environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/libragen/libragen/internal/search"
)

// Config is the complete libragen configuration, loaded in order of
// increasing precedence: built-in defaults, then <home>/config.yaml, then
// LIBRAGEN_* environment variables.
type Config struct {
	Paths       Paths             `yaml:"-" json:"-"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Build       BuildConfig       `yaml:"build" json:"build"`
}

// SearchConfig holds default query parameters applied when a caller (CLI
// flag or MCP tool argument) leaves them unset.
type SearchConfig struct {
	K           int     `yaml:"k" json:"k"`
	HybridAlpha float64 `yaml:"hybrid_alpha" json:"hybrid_alpha"`
	Rerank      bool    `yaml:"rerank" json:"rerank"`
}

// EmbeddingsConfig configures the embedding model used by build/search.
type EmbeddingsConfig struct {
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
}

// PerformanceConfig tunes worker concurrency.
type PerformanceConfig struct {
	Workers int `yaml:"workers" json:"workers"`
}

// BuildConfig holds default chunking parameters for the Pack Builder.
type BuildConfig struct {
	ChunkSize    int `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	MinChunks    int `yaml:"min_chunks" json:"min_chunks"`
}

// Defaults returns the built-in configuration before any file or
// environment overrides are applied.
func Defaults() *Config {
	return &Config{
		Search: SearchConfig{
			K:           search.DefaultK,
			HybridAlpha: search.DefaultHybridAlpha,
			Rerank:      false,
		},
		Embeddings: EmbeddingsConfig{
			Model:      "hash-trigram",
			Dimensions: 256,
			BatchSize:  32,
		},
		Performance: PerformanceConfig{
			Workers: 4,
		},
		Build: BuildConfig{
			ChunkSize:    800,
			ChunkOverlap: 100,
			MinChunks:    1,
		},
	}
}

// Load resolves Paths for home (honoring LIBRAGEN_HOME/LIBRAGEN_MODEL_CACHE),
// loads <home>/config.yaml if present, then applies environment overrides.
func Load(home string) (*Config, error) {
	cfg := Defaults()
	cfg.Paths = ResolvePaths(home)

	configPath := filepath.Join(cfg.Paths.Home, "config.yaml")
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", configPath, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LIBRAGEN_SEARCH_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.K = n
		}
	}
	if v := os.Getenv("LIBRAGEN_HYBRID_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			c.Search.HybridAlpha = f
		}
	}
	if v := os.Getenv("LIBRAGEN_RERANK"); v != "" {
		c.Search.Rerank = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("LIBRAGEN_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("LIBRAGEN_EMBEDDINGS_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embeddings.Dimensions = n
		}
	}
	if v := os.Getenv("LIBRAGEN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Performance.Workers = n
		}
	}
	if v := os.Getenv("LIBRAGEN_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Build.ChunkSize = n
		}
	}
	if v := os.Getenv("LIBRAGEN_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Build.ChunkOverlap = n
		}
	}
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	if c.Search.K <= 0 {
		return fmt.Errorf("search.k must be positive, got %d", c.Search.K)
	}
	if c.Search.HybridAlpha < 0 || c.Search.HybridAlpha > 1 {
		return fmt.Errorf("search.hybrid_alpha must be between 0 and 1, got %f", c.Search.HybridAlpha)
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Performance.Workers <= 0 {
		return fmt.Errorf("performance.workers must be positive, got %d", c.Performance.Workers)
	}
	if c.Build.ChunkSize <= 0 {
		return fmt.Errorf("build.chunk_size must be positive, got %d", c.Build.ChunkSize)
	}
	if c.Build.ChunkOverlap < 0 || c.Build.ChunkOverlap >= c.Build.ChunkSize {
		return fmt.Errorf("build.chunk_overlap must be non-negative and smaller than chunk_size")
	}
	return nil
}

// WriteYAML writes the search/embeddings/performance/build sections to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
