package update

import (
	"context"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"

	"github.com/libragen/libragen/internal/collection"
	liberrors "github.com/libragen/libragen/internal/errors"
	"github.com/libragen/libragen/internal/pack"
)

// FindUpdates compares each installed pack with a collection origin
// against that collection's latest served entry of the same name,
// yielding a candidate when the entry's version is newer or Force is set.
// Packs without a collection origin are never candidates: there is
// nothing to compare them against.
func FindUpdates(ctx context.Context, installed []Installed, client *collection.Client, opts FindOptions) ([]Candidate, error) {
	if err := client.Refresh(ctx); err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, inst := range installed {
		if inst.Collection == "" {
			continue
		}
		entry, err := client.GetEntryIn(inst.Collection, inst.Name)
		if err != nil {
			continue // not served by its origin collection anymore; skip silently
		}

		newer := versionGreater(entry.Version.Version, inst.Version)
		if !newer && !opts.Force {
			continue
		}
		candidates = append(candidates, Candidate{
			Name:                  inst.Name,
			CurrentVersion:        inst.Version,
			NewVersion:            entry.Version.Version,
			CurrentContentVersion: inst.ContentVersion,
			NewContentVersion:     entry.ContentVersion,
			Entry:                 *entry,
		})
	}
	return candidates, nil
}

// versionGreater reports whether candidate is a greater semantic version
// than current. Versions that fail to parse as semver fall back to a
// literal string-inequality comparison so non-semver content versions
// (dates, opaque strings) still surface as updates when they differ.
func versionGreater(candidate, current string) bool {
	cv, err1 := semver.NewVersion(candidate)
	cur, err2 := semver.NewVersion(current)
	if err1 == nil && err2 == nil {
		return cv.GreaterThan(cur)
	}
	return candidate != current
}

// PerformUpdate downloads candidate's entry via client to a temp file,
// installs it with Force=true through manager, and removes the temp
// file on success. On failure the current installation is left
// untouched and the error is returned.
func PerformUpdate(ctx context.Context, candidate Candidate, manager *pack.Manager, client *collection.Client) error {
	tmp, err := os.CreateTemp("", "libragen-update-*.pack")
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := client.Download(ctx, candidate.Entry, tmpPath, collection.DownloadOptions{}); err != nil {
		return fmt.Errorf("downloading update for %s: %w", candidate.Name, err)
	}

	_, err = manager.Install(ctx, tmpPath, pack.InstallOptions{Force: true}, nil)
	return err
}
