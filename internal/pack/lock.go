package pack

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	liberrors "github.com/libragen/libragen/internal/errors"
)

// rootLock provides cross-process locking over writes to one pack root,
// so two `libragen install`/`uninstall` invocations against the same root
// never interleave their temp-file-and-rename sequences.
type rootLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func newRootLock(root string) *rootLock {
	lockPath := filepath.Join(root, ".install.lock")
	return &rootLock{path: lockPath, flock: flock.New(lockPath)}
}

func (l *rootLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	if err := l.flock.Lock(); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	l.locked = true
	return nil
}

func (l *rootLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	return nil
}
