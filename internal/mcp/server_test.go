package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libragen/libragen/internal/build"
	"github.com/libragen/libragen/internal/embed"
	"github.com/libragen/libragen/internal/pack"
)

func newTestServer(t *testing.T) (*Server, *pack.Manager) {
	t.Helper()
	root := t.TempDir()
	manager := pack.New(root)
	embedder := embed.New(embed.Config{Model: "hash-trigram", Dimensions: 32})
	t.Cleanup(func() { _ = embedder.Dispose() })

	s, err := NewServer(manager, embedder, nil, nil)
	require.NoError(t, err)
	return s, manager
}

// installPack builds a tiny pack from src and installs it under manager.
func installPack(t *testing.T, manager *pack.Manager, name, version string) {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.go"), []byte("package main\n\nfunc Main() {}\n"), 0o644))

	packPath := filepath.Join(t.TempDir(), name+".pack")
	_, err := build.Build(context.Background(), build.Config{
		Roots: []string{src}, Out: packPath, Name: name, Version: version,
		Model: "hash-trigram", Dimensions: 32,
	})
	require.NoError(t, err)

	_, err = manager.Install(context.Background(), packPath, pack.InstallOptions{}, nil)
	require.NoError(t, err)
}

func TestNewServer_RequiresManager(t *testing.T) {
	_, err := NewServer(nil, nil, nil, nil)
	require.Error(t, err)
}

func TestNewServer_RegistersFourTools(t *testing.T) {
	s, _ := newTestServer(t)
	tools := s.ListTools()
	require.Len(t, tools, 4)

	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
	}
	require.True(t, names["list"])
	require.True(t, names["search"])
	require.True(t, names["uninstall"])
	require.True(t, names["update"])
}

func TestServer_Info(t *testing.T) {
	s, _ := newTestServer(t)
	name, ver := s.Info()
	require.Equal(t, "libragen", name)
	require.NotEmpty(t, ver)
}
