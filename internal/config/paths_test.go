package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths_DerivesLibrariesAndModelsFromHome(t *testing.T) {
	p := ResolvePaths("/tmp/libhome")
	assert.Equal(t, "/tmp/libhome", p.Home)
	assert.Equal(t, filepath.Join("/tmp/libhome", "libraries"), p.Libraries)
	assert.Equal(t, filepath.Join("/tmp/libhome", "models"), p.Models)
}

func TestResolvePaths_HomeEnvOverridesArgument(t *testing.T) {
	t.Setenv("LIBRAGEN_HOME", "/tmp/env-home")
	p := ResolvePaths("/tmp/arg-home")
	assert.Equal(t, "/tmp/env-home", p.Home)
}

func TestResolvePaths_ModelCacheEnvOverridesDerived(t *testing.T) {
	t.Setenv("LIBRAGEN_MODEL_CACHE", "/tmp/models-override")
	p := ResolvePaths("/tmp/home")
	assert.Equal(t, "/tmp/models-override", p.Models)
}

func TestResolvePaths_FallsBackToDefaultHomeWhenEmpty(t *testing.T) {
	p := ResolvePaths("")
	assert.NotEmpty(t, p.Home)
}

func TestPaths_EnsureDirsCreatesLibrariesAndModels(t *testing.T) {
	home := t.TempDir()
	p := ResolvePaths(filepath.Join(home, "sub"))
	require.NoError(t, p.EnsureDirs())

	assert.DirExists(t, p.Libraries)
	assert.DirExists(t, p.Models)
}
