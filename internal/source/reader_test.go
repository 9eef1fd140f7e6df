package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func scanAll(t *testing.T, root string, opts Options) []*Entry {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	opts.Roots = []string{root}
	results, err := r.Scan(context.Background(), opts)
	require.NoError(t, err)

	var entries []*Entry
	for res := range results {
		require.NoError(t, res.Err)
		entries = append(entries, res.Entry)
	}
	return entries
}

func TestScan_BasicFiles(t *testing.T) {
	tmp := t.TempDir()
	writeFiles(t, tmp, map[string]string{
		"main.go":     "package main\n\nfunc main() {}\n",
		"pkg/lib.go":  "package pkg\n\nfunc Helper() {}\n",
		"README.md":   "# Test\n",
		"config.yaml": "version: 1\n",
	})

	entries := scanAll(t, tmp, Options{})
	assert.Len(t, entries, 4)

	byPath := map[string]*Entry{}
	for _, e := range entries {
		byPath[e.RelativePath] = e
	}

	require.Contains(t, byPath, "main.go")
	assert.Equal(t, "go", byPath["main.go"].Language)
	assert.Equal(t, []byte("package main\n\nfunc main() {}\n"), byPath["main.go"].Content)

	require.Contains(t, byPath, "README.md")
	assert.Equal(t, "markdown", byPath["README.md"].Language)
}

func TestScan_ExcludesNodeModules(t *testing.T) {
	tmp := t.TempDir()
	writeFiles(t, tmp, map[string]string{
		"index.js":                     "console.log(1)\n",
		"node_modules/lodash/index.js": "module.exports = {}\n",
	})

	entries := scanAll(t, tmp, Options{})
	require.Len(t, entries, 1)
	assert.Equal(t, "index.js", entries[0].RelativePath)
}

func TestScan_ExcludesSensitiveFiles(t *testing.T) {
	tmp := t.TempDir()
	writeFiles(t, tmp, map[string]string{
		"app.go":  "package app\n",
		".env":    "SECRET=1\n",
		"id_rsa":  "private\n",
		"key.pem": "cert\n",
	})

	entries := scanAll(t, tmp, Options{})
	require.Len(t, entries, 1)
	assert.Equal(t, "app.go", entries[0].RelativePath)
}

func TestScan_RespectsGitignore(t *testing.T) {
	tmp := t.TempDir()
	writeFiles(t, tmp, map[string]string{
		"keep.go":    "package keep\n",
		"ignored.go": "package ignored\n",
		".gitignore": "ignored.go\n",
	})

	entries := scanAll(t, tmp, Options{RespectGitignore: true})
	require.Len(t, entries, 1)
	assert.Equal(t, "keep.go", entries[0].RelativePath)
}

func TestScan_DetectsGeneratedFiles(t *testing.T) {
	tmp := t.TempDir()
	writeFiles(t, tmp, map[string]string{
		"normal.go":    "package normal\n",
		"generated.go": "// Code generated by tool. DO NOT EDIT.\npackage generated\n",
	})

	entries := scanAll(t, tmp, Options{})
	require.Len(t, entries, 1)
	assert.Equal(t, "normal.go", entries[0].RelativePath)
}

func TestScan_SkipsLargeFiles(t *testing.T) {
	tmp := t.TempDir()
	writeFiles(t, tmp, map[string]string{
		"small.go": "package small\n",
		"big.go":   string(make([]byte, 2048)),
	})

	entries := scanAll(t, tmp, Options{MaxFileSize: 1024})
	require.Len(t, entries, 1)
	assert.Equal(t, "small.go", entries[0].RelativePath)
}

func TestScan_SkipsBinaryFiles(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "bin.dat"), []byte{0x00, 0x01, 0x02, 0x00}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "text.go"), []byte("package text\n"), 0o644))

	entries := scanAll(t, tmp, Options{})
	require.Len(t, entries, 1)
	assert.Equal(t, "text.go", entries[0].RelativePath)
}

func TestScan_NonexistentRootSkippedWithoutError(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	results, err := r.Scan(context.Background(), Options{Roots: []string{"/nonexistent/path/xyz"}})
	require.NoError(t, err)

	var entries []*Entry
	for res := range results {
		entries = append(entries, res.Entry)
	}
	assert.Empty(t, entries)
}

func TestScan_IncludePatterns(t *testing.T) {
	tmp := t.TempDir()
	writeFiles(t, tmp, map[string]string{
		"main.go":   "package main\n",
		"README.md": "# readme\n",
	})

	entries := scanAll(t, tmp, Options{Patterns: []string{"*.go"}})
	require.Len(t, entries, 1)
	assert.Equal(t, "main.go", entries[0].RelativePath)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "go", DetectLanguage("main.go"))
	assert.Equal(t, "python", DetectLanguage("script.py"))
	assert.Equal(t, "dockerfile", DetectLanguage("Dockerfile"))
	assert.Equal(t, "", DetectLanguage("unknown.xyzfoo"))
}
