package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libragen/libragen/internal/search"
)

func TestDefaults_PassesValidate(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	home := t.TempDir()
	cfg, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, search.DefaultK, cfg.Search.K)
	assert.Equal(t, home, cfg.Paths.Home)
	assert.Equal(t, filepath.Join(home, "libraries"), cfg.Paths.Libraries)
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	home := t.TempDir()
	yaml := "search:\n  k: 25\n  hybrid_alpha: 0.7\nembeddings:\n  model: custom-model\n  dimensions: 512\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Search.K)
	assert.Equal(t, 0.7, cfg.Search.HybridAlpha)
	assert.Equal(t, "custom-model", cfg.Embeddings.Model)
	assert.Equal(t, 512, cfg.Embeddings.Dimensions)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	yaml := "search:\n  k: 25\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("LIBRAGEN_SEARCH_K", "40")
	cfg, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Search.K)
}

func TestLoad_HomeEnvVarOverridesArgument(t *testing.T) {
	envHome := t.TempDir()
	t.Setenv("LIBRAGEN_HOME", envHome)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, envHome, cfg.Paths.Home)
}

func TestLoad_ModelCacheEnvOverridesDerivedPath(t *testing.T) {
	home := t.TempDir()
	modelCache := t.TempDir()
	t.Setenv("LIBRAGEN_MODEL_CACHE", modelCache)

	cfg, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, modelCache, cfg.Paths.Models)
}

func TestLoad_RejectsInvalidFileValues(t *testing.T) {
	home := t.TempDir()
	yaml := "search:\n  hybrid_alpha: 5.0\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(yaml), 0o644))

	_, err := Load(home)
	require.Error(t, err)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte("search: [not a map"), 0o644))

	_, err := Load(home)
	require.Error(t, err)
}

func TestValidate_CatchesEachInvalidField(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Search.K = 0 },
		func(c *Config) { c.Search.HybridAlpha = -0.1 },
		func(c *Config) { c.Search.HybridAlpha = 1.1 },
		func(c *Config) { c.Embeddings.Dimensions = 0 },
		func(c *Config) { c.Performance.Workers = 0 },
		func(c *Config) { c.Build.ChunkSize = 0 },
		func(c *Config) { c.Build.ChunkOverlap = c.Build.ChunkSize },
	}
	for _, mutate := range cases {
		cfg := Defaults()
		mutate(cfg)
		assert.Error(t, cfg.Validate())
	}
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	home := t.TempDir()
	cfg := Defaults()
	cfg.Search.K = 15
	cfg.Embeddings.Model = "roundtrip-model"

	require.NoError(t, cfg.WriteYAML(filepath.Join(home, "config.yaml")))

	loaded, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, 15, loaded.Search.K)
	assert.Equal(t, "roundtrip-model", loaded.Embeddings.Model)
}
