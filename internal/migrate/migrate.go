// Package migrate implements versioned schema evolution for pack files,
// with whole-file backup and restore around a failed migration run.
//
// The ordered-migration-slice shape (each step a {version, description,
// up(tx)} tuple, applied inside one transaction that also stamps the new
// version) mirrors the pattern used elsewhere in this codebase for
// versioning embedded key/value stores; here it is adapted to SQL
// transactions and whole-file backup instead of bucket-scoped rollback.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	liberrors "github.com/libragen/libragen/internal/errors"
)

// Migration is one schema step.
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
}

// Registry is the set of all pack-format migrations, applied in ascending
// Version order regardless of declaration order. The highest Version in
// Registry is CurrentVersion. Adding a migration here is the sole
// supported way to evolve the pack format.
var Registry = []Migration{
	// Version 1 is the baseline schema written by store.Pack.Initialize;
	// there is nothing to migrate to reach it, so the registry starts
	// empty.
}

// CurrentVersion reports the highest version this build knows how to
// produce or migrate to: the highest Version present in Registry, or 1
// (the baseline schema, which predates any registered migration) if
// Registry is empty.
func CurrentVersion() int {
	v := 1
	for _, m := range Registry {
		if m.Version > v {
			v = m.Version
		}
	}
	return v
}

// Options controls Migrate's behavior.
type Options struct {
	ReadOnly bool
}

// Migrate brings the pack at path up to CurrentVersion, or fails cleanly
// leaving the file untouched. db must be an open, writable connection to
// path (except when current == target, in which case it is unused).
func Migrate(ctx context.Context, path string, db *sql.DB, opts Options) error {
	current, err := readSchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	target := CurrentVersion()
	if current > target {
		return liberrors.New(liberrors.SchemaVersionTooNew,
			fmt.Sprintf("pack schema version %d is newer than engine version %d", current, target), nil).
			WithDetail("pack_version", fmt.Sprintf("%d", current)).
			WithDetail("engine_version", fmt.Sprintf("%d", target))
	}
	if current == target {
		return nil
	}
	if opts.ReadOnly {
		return liberrors.New(liberrors.MigrationRequired,
			fmt.Sprintf("pack schema version %d requires migration to %d but was opened read-only", current, target), nil)
	}

	var pending []Migration
	for _, m := range Registry {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	backupPath := path + ".backup"
	if err := copyFile(path, backupPath); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}

	if migErr := applyPending(ctx, db, pending, target); migErr != nil {
		_ = db.Close()
		if restoreErr := copyFile(backupPath, path); restoreErr != nil {
			slog.Error("migration failed and backup restore also failed",
				slog.String("path", path), slog.String("migrate_error", migErr.Error()),
				slog.String("restore_error", restoreErr.Error()))
			return liberrors.Wrap(liberrors.Internal, restoreErr)
		}
		_ = os.Remove(backupPath)
		return migErr
	}

	_ = os.Remove(backupPath)
	return nil
}

func applyPending(ctx context.Context, db *sql.DB, pending []Migration, target int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range pending {
		slog.Info("applying pack migration", slog.Int("version", m.Version), slog.String("description", m.Description))
		if err := m.Up(ctx, tx); err != nil {
			return liberrors.New(liberrors.Internal,
				fmt.Sprintf("migration v%d (%s) failed", m.Version, m.Description), err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO library_meta(key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fmt.Sprintf("%d", target))
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	if err := tx.Commit(); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	return nil
}

func readSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM library_meta WHERE key = 'schema_version'`).Scan(&raw)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, liberrors.Wrap(liberrors.Internal, err)
	}
	var n int
	if _, scanErr := fmt.Sscanf(raw, "%d", &n); scanErr != nil {
		return 0, liberrors.Wrap(liberrors.InvalidFormat, scanErr)
	}
	return n, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.CreateTemp(osDir(dst), "migrate-*.tmp")
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(out.Name())
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return err
	}
	return os.Rename(out.Name(), dst)
}

func osDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
