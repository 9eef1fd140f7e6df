package pack

import (
	"context"
	"fmt"
	"os"

	liberrors "github.com/libragen/libragen/internal/errors"
)

// PreviewCollection resolves source without installing anything.
func (m *Manager) PreviewCollection(ctx context.Context, resolver CollectionResolver, source string) (*CollectionPreview, error) {
	required, optional, err := resolver.ResolveCollection(ctx, source)
	if err != nil {
		return nil, err
	}
	return &CollectionPreview{Required: required, Optional: optional}, nil
}

// InstallCollection resolves source via resolver, then downloads and
// installs every required entry plus any selected optional ones. Partial
// failures do not undo prior successful installs; each entry's outcome is
// reported independently.
func (m *Manager) InstallCollection(ctx context.Context, resolver CollectionResolver, source string, opts CollectionInstallOptions) (*CollectionInstallResult, error) {
	required, optional, err := resolver.ResolveCollection(ctx, source)
	if err != nil {
		return nil, err
	}

	selected := make(map[string]bool, len(opts.SelectOptional))
	for _, name := range opts.SelectOptional {
		selected[name] = true
	}

	entries := append([]ResolvedEntry{}, required...)
	result := &CollectionInstallResult{}
	for _, e := range optional {
		if opts.IncludeOptional || selected[e.Name] {
			entries = append(entries, e)
		} else {
			result.Skipped = append(result.Skipped, e.Name)
		}
	}

	for _, entry := range entries {
		if opts.Progress != nil {
			opts.Progress(entry.Name)
		}
		if err := m.installEntry(ctx, resolver, entry, opts.Force); err != nil {
			result.Failed = append(result.Failed, FailedInstall{Name: entry.Name, Error: err})
			continue
		}
		result.Installed = append(result.Installed, entry.Name)
	}
	return result, nil
}

func (m *Manager) installEntry(ctx context.Context, resolver CollectionResolver, entry ResolvedEntry, force bool) error {
	tmp, err := os.CreateTemp("", "libragen-collection-*.pack")
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := resolver.Download(ctx, entry, tmpPath, DownloadOptions{VerifyHash: entry.ContentHash != ""}); err != nil {
		return fmt.Errorf("downloading %s: %w", entry.Name, err)
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	_, err = m.installPackBytes(ctx, data, InstallOptions{Force: force})
	return err
}
