// Package pack implements the Pack Manager: install, uninstall, list, find,
// and verify packs across one or more ordered pack roots.
package pack

import (
	"context"

	"github.com/libragen/libragen/internal/store"
)

// Record describes one installed pack as seen by List/Find.
type Record struct {
	Name     string
	Version  string
	Path     string
	Root     string
	Manifest store.Manifest
}

// InstallOptions configures Install.
type InstallOptions struct {
	// Force overwrites an existing pack of the same name.
	Force bool

	// Path pins the destination root explicitly. Empty means
	// auto-detection: "<cwd>/.libragen/libraries" if present, else the
	// manager's global (first-registered) root.
	Path string
}

// UninstallOptions configures Uninstall.
type UninstallOptions struct {
	// Path restricts the search to one root instead of all configured roots.
	Path string
}

// CollectionInstallOptions configures InstallCollection.
type CollectionInstallOptions struct {
	Force           bool
	IncludeOptional bool
	SelectOptional  []string // names to install from Optional even if IncludeOptional is false
	Progress        func(name string)
}

// CollectionInstallResult reports the outcome of InstallCollection.
type CollectionInstallResult struct {
	Installed []string
	Skipped   []string
	Failed    []FailedInstall
}

// FailedInstall names one collection entry that failed to install.
type FailedInstall struct {
	Name  string
	Error error
}

// CollectionPreview is the result of PreviewCollection: what would be
// installed without installing it.
type CollectionPreview struct {
	Required []ResolvedEntry
	Optional []ResolvedEntry
}

// ResolvedEntry is one library entry resolved from a collection, as
// surfaced by a CollectionResolver. Name/Version/DownloadURL/ContentHash
// mirror the Collection Index's per-version fields (see the Collection
// Client, which implements CollectionResolver against a live index).
type ResolvedEntry struct {
	Name        string
	Version     string
	DownloadURL string
	ContentHash string
	Required    bool
}

// DownloadOptions configures a CollectionResolver's Download call.
type DownloadOptions struct {
	VerifyHash bool
	OnProgress func(downloaded, total int64)
}

// CollectionResolver resolves and fetches collection entries. Implemented
// by the Collection Client; kept as a narrow interface here so the Pack
// Manager never imports the collection package.
type CollectionResolver interface {
	ResolveCollection(ctx context.Context, source string) (required, optional []ResolvedEntry, err error)
	Download(ctx context.Context, entry ResolvedEntry, destPath string, opts DownloadOptions) error
}
