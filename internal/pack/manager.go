package pack

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	liberrors "github.com/libragen/libragen/internal/errors"
	"github.com/libragen/libragen/internal/store"
)

// ProjectLibrariesDir is the directory name auto-detected under the
// current working directory as the project-scoped pack root.
const ProjectLibrariesDir = ".libragen/libraries"

// Manager holds an ordered list of pack roots; the leftmost root has
// priority when names collide across roots.
type Manager struct {
	roots []string
}

// New builds a Manager over roots, leftmost first. At least one root is
// required; callers typically pass the project root (if auto-detected)
// followed by the global root.
func New(roots ...string) *Manager {
	return &Manager{roots: roots}
}

func (m *Manager) defaultRoot() string {
	if len(m.roots) == 0 {
		return ""
	}
	return m.roots[0]
}

// Install resolves source (a local path or a URL), classifies its bytes,
// and installs it: a bare pack goes straight to the target root; a
// collection archive or collection JSON is expanded via InstallCollection
// using resolver (required for those two kinds; nil is only valid for a
// bare pack source).
func (m *Manager) Install(ctx context.Context, source string, opts InstallOptions, resolver CollectionResolver) (*Record, error) {
	data, err := fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	switch detectKind(data) {
	case KindPack:
		return m.installPackBytes(ctx, data, opts)
	case KindCollectionArchive, KindCollectionJSON:
		if resolver == nil {
			return nil, liberrors.New(liberrors.InvalidFormat, "source is a collection; a collection resolver is required to install it", nil)
		}
		result, err := m.InstallCollection(ctx, resolver, source, CollectionInstallOptions{Force: opts.Force})
		if err != nil {
			return nil, err
		}
		if len(result.Installed) == 0 {
			return nil, liberrors.New(liberrors.InvalidFormat, "collection install produced no packs", nil)
		}
		return m.Find(ctx, result.Installed[0])
	default:
		return nil, liberrors.New(liberrors.InvalidFormat, "source is neither a pack nor a recognized collection format", nil)
	}
}

func (m *Manager) installPackBytes(ctx context.Context, data []byte, opts InstallOptions) (*Record, error) {
	tmp, err := os.CreateTemp("", "libragen-install-*.pack")
	if err != nil {
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}

	manifest, err := verifyPackFile(ctx, tmpPath)
	if err != nil {
		return nil, err
	}

	root := opts.Path
	if root == "" {
		root = m.autoRoot()
	}
	if root == "" {
		return nil, liberrors.New(liberrors.NotFound, "no pack root configured", nil)
	}

	lock := newRootLock(root)
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	defer lock.Unlock()

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}

	destName := fmt.Sprintf("%s-%s.pack", manifest.Name, manifest.Version)
	destPath := filepath.Join(root, destName)

	existing, findErr := m.find(ctx, manifest.Name, root)
	if !opts.Force {
		if _, err := os.Stat(destPath); err == nil {
			return nil, liberrors.New(liberrors.AlreadyExists,
				fmt.Sprintf("pack %q already installed at %s (use Force to overwrite)", manifest.Name, destPath), nil)
		}
		if findErr == nil {
			return nil, liberrors.New(liberrors.AlreadyExists,
				fmt.Sprintf("pack %q already installed at %s (use Force to overwrite)", manifest.Name, existing.Path), nil)
		}
	}

	if err := atomicInstall(tmpPath, destPath); err != nil {
		return nil, err
	}
	// A forced install of another version replaces the old version's file.
	if findErr == nil && existing.Path != destPath {
		_ = os.Remove(existing.Path)
	}

	return &Record{Name: manifest.Name, Version: manifest.Version, Path: destPath, Root: root, Manifest: *manifest}, nil
}

// autoRoot implements the "<cwd>/.libragen/libraries if present, else the
// first configured (global) root" resolution rule.
func (m *Manager) autoRoot() string {
	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, ProjectLibrariesDir)
		if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() {
			return candidate
		}
	}
	return m.defaultRoot()
}

// atomicInstall copies src into dest via write(temp)->fsync->rename within
// dest's directory, so a crash mid-copy never leaves a half-written file
// at dest.
func atomicInstall(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return liberrors.Wrap(liberrors.Internal, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return liberrors.Wrap(liberrors.Internal, err)
	}
	if err := tmp.Close(); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	succeeded = true
	return nil
}

// Uninstall removes the first pack named name found across the configured
// roots (or within opts.Path alone, if set).
func (m *Manager) Uninstall(ctx context.Context, name string, opts UninstallOptions) error {
	record, err := m.find(ctx, name, opts.Path)
	if err != nil {
		return err
	}
	lock := newRootLock(record.Root)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	if err := os.Remove(record.Path); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	return nil
}

// List enumerates packs across all roots, deduping by name with the
// leftmost (highest-priority) root winning ties.
func (m *Manager) List(ctx context.Context) ([]Record, error) {
	seen := make(map[string]bool)
	var out []Record
	for _, root := range m.roots {
		entries, err := listRoot(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, r := range entries {
			if seen[r.Name] {
				continue
			}
			seen[r.Name] = true
			out = append(out, r)
		}
	}
	return out, nil
}

func listRoot(ctx context.Context, root string) ([]Record, error) {
	files, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}

	var out []Record
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".pack") {
			continue
		}
		path := filepath.Join(root, f.Name())
		manifest, err := readManifest(path)
		if err != nil {
			continue // skip unreadable/corrupt packs rather than failing List entirely
		}
		out = append(out, Record{Name: manifest.Name, Version: manifest.Version, Path: path, Root: root, Manifest: *manifest})
	}
	return out, nil
}

// Find returns the first match for name across all configured roots.
func (m *Manager) Find(ctx context.Context, name string) (*Record, error) {
	return m.find(ctx, name, "")
}

func (m *Manager) find(ctx context.Context, name, onlyRoot string) (*Record, error) {
	roots := m.roots
	if onlyRoot != "" {
		roots = []string{onlyRoot}
	}
	for _, root := range roots {
		entries, err := listRoot(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, r := range entries {
			if r.Name == name {
				return &r, nil
			}
		}
	}
	return nil, liberrors.New(liberrors.NotFound, fmt.Sprintf("pack %q not found", name), nil)
}

// Verify reopens the pack at path, recomputes its content hash, and
// compares it to the stored manifest value.
func (m *Manager) Verify(ctx context.Context, path string) error {
	_, err := verifyPackFile(ctx, path)
	return err
}

// verifyPackFile opens path, recomputes the content hash over its chunks,
// and checks it against the manifest's stored content_hash (when
// present), returning the parsed manifest on success.
func verifyPackFile(ctx context.Context, path string) (*store.Manifest, error) {
	p, err := store.Open(path, store.OpenOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer p.Close()

	manifest, err := readManifestFromPack(ctx, p)
	if err != nil {
		return nil, err
	}

	if manifest.ContentHash != "" {
		actual, err := recomputeContentHash(ctx, p)
		if err != nil {
			return nil, err
		}
		if actual != manifest.ContentHash {
			return nil, liberrors.New(liberrors.IntegrityFailure,
				fmt.Sprintf("pack content hash mismatch: manifest says %s, computed %s", manifest.ContentHash, actual), nil)
		}
	}
	return manifest, nil
}

func recomputeContentHash(ctx context.Context, p *store.Pack) (string, error) {
	h := sha256.New()
	err := p.IterateChunksAscending(ctx, func(c store.Chunk) error {
		fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d\x00", c.Content, c.SourceFile, c.StartLine, c.EndLine)
		return nil
	})
	if err != nil {
		return "", err
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

func readManifest(path string) (*store.Manifest, error) {
	p, err := store.Open(path, store.OpenOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return readManifestFromPack(context.Background(), p)
}

func readManifestFromPack(ctx context.Context, p *store.Pack) (*store.Manifest, error) {
	raw, ok, err := p.GetMetadata(ctx, "manifest")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, liberrors.New(liberrors.InvalidFormat, "pack has no manifest", nil)
	}
	var manifest store.Manifest
	if err := json.Unmarshal([]byte(raw), &manifest); err != nil {
		return nil, liberrors.Wrap(liberrors.InvalidFormat, err)
	}
	return &manifest, nil
}

// fetch reads source as bytes: an http(s) URL is downloaded, anything
// else is read as a local file path.
func fetch(ctx context.Context, source string) ([]byte, error) {
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, liberrors.Wrap(liberrors.Transport, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, liberrors.Wrap(liberrors.Transport, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, liberrors.New(liberrors.Transport, fmt.Sprintf("download failed with status %s", resp.Status), nil)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, liberrors.Wrap(liberrors.Transport, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, liberrors.New(liberrors.NotFound, fmt.Sprintf("source %q not found", source), err)
		}
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}
	return data, nil
}
