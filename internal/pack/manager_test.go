package pack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libragen/libragen/internal/build"
	"github.com/libragen/libragen/internal/store"
)

func buildTestPack(t *testing.T, name, version string) string {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.go"), []byte("package a\n\nfunc A() {}\n"), 0o644))

	out := filepath.Join(t.TempDir(), name+".pack")
	_, err := build.Build(context.Background(), build.Config{
		Roots: []string{src}, Out: out, Name: name, Version: version,
		Model: "hash-trigram", Dimensions: 32,
	})
	require.NoError(t, err)
	return out
}

func TestManager_InstallAndFind(t *testing.T) {
	root := t.TempDir()
	m := New(root)
	packPath := buildTestPack(t, "widgets", "1.0.0")

	record, err := m.Install(context.Background(), packPath, InstallOptions{Path: root}, nil)
	require.NoError(t, err)
	assert.Equal(t, "widgets", record.Name)
	assert.FileExists(t, record.Path)

	found, err := m.Find(context.Background(), "widgets")
	require.NoError(t, err)
	assert.Equal(t, record.Path, found.Path)
}

func TestManager_InstallRejectsDuplicateWithoutForce(t *testing.T) {
	root := t.TempDir()
	m := New(root)
	packPath := buildTestPack(t, "widgets", "1.0.0")

	_, err := m.Install(context.Background(), packPath, InstallOptions{Path: root}, nil)
	require.NoError(t, err)

	_, err = m.Install(context.Background(), packPath, InstallOptions{Path: root}, nil)
	assert.Error(t, err)
}

func TestManager_InstallForceOverwrites(t *testing.T) {
	root := t.TempDir()
	m := New(root)
	packPath := buildTestPack(t, "widgets", "1.0.0")

	_, err := m.Install(context.Background(), packPath, InstallOptions{Path: root}, nil)
	require.NoError(t, err)
	_, err = m.Install(context.Background(), packPath, InstallOptions{Path: root, Force: true}, nil)
	assert.NoError(t, err)
}

func TestManager_UninstallRemovesFile(t *testing.T) {
	root := t.TempDir()
	m := New(root)
	packPath := buildTestPack(t, "widgets", "1.0.0")
	record, err := m.Install(context.Background(), packPath, InstallOptions{Path: root}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Uninstall(context.Background(), "widgets", UninstallOptions{}))
	assert.NoFileExists(t, record.Path)

	_, err = m.Find(context.Background(), "widgets")
	assert.Error(t, err)
}

func TestManager_UninstallNotFound(t *testing.T) {
	m := New(t.TempDir())
	err := m.Uninstall(context.Background(), "nope", UninstallOptions{})
	assert.Error(t, err)
}

func TestManager_ListDedupesLeftmostRootWins(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	m := New(rootA, rootB)

	packA := buildTestPack(t, "widgets", "1.0.0")
	packB := buildTestPack(t, "widgets", "2.0.0")
	_, err := m.Install(context.Background(), packA, InstallOptions{Path: rootA}, nil)
	require.NoError(t, err)
	_, err = m.Install(context.Background(), packB, InstallOptions{Path: rootB}, nil)
	require.NoError(t, err)

	list, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1.0.0", list[0].Version)
}

func TestManager_VerifyDetectsTamperedContentHash(t *testing.T) {
	root := t.TempDir()
	m := New(root)
	packPath := buildTestPack(t, "widgets", "1.0.0")
	record, err := m.Install(context.Background(), packPath, InstallOptions{Path: root}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Verify(context.Background(), record.Path))

	tampered, err := store.Open(record.Path, store.OpenOptions{})
	require.NoError(t, err)
	raw, ok, err := tampered.GetMetadata(context.Background(), "manifest")
	require.NoError(t, err)
	require.True(t, ok)
	var manifest store.Manifest
	require.NoError(t, json.Unmarshal([]byte(raw), &manifest))
	manifest.ContentHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"
	tamperedJSON, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, tampered.SetMetadata(context.Background(), "manifest", string(tamperedJSON)))
	require.NoError(t, tampered.Close())

	err = m.Verify(context.Background(), record.Path)
	assert.Error(t, err)
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, KindPack, detectKind([]byte("SQLite format 3\x00rest")))
	assert.Equal(t, KindCollectionArchive, detectKind([]byte{0x1f, 0x8b, 0x08, 0x00}))
	assert.Equal(t, KindCollectionJSON, detectKind([]byte(`{"name":"x"}`)))
	assert.Equal(t, KindUnknown, detectKind([]byte{0x00, 0x01, 0x02}))
}

func TestManager_InstallFromURL(t *testing.T) {
	root := t.TempDir()
	m := New(root)
	packPath := buildTestPack(t, "widgets", "1.0.0")
	data, err := os.ReadFile(packPath)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer server.Close()

	record, err := m.Install(context.Background(), server.URL, InstallOptions{Path: root}, nil)
	require.NoError(t, err)
	assert.Equal(t, "widgets", record.Name)
}
