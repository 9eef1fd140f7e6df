//go:build !darwin

package embed

import liberrors "github.com/libragen/libragen/internal/errors"

// AccelerateAvailable always reports false outside macOS.
func AccelerateAvailable() bool { return false }

// AccelerateBackend is unavailable on this platform; NewAccelerateBackend
// always errors so callers fall back to HashBackend.
type AccelerateBackend struct{}

func NewAccelerateBackend(int) (*AccelerateBackend, error) {
	return nil, liberrors.New(liberrors.ModelLoad, "accelerate backend is only available on macOS", nil)
}
