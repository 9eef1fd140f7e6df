//go:build darwin

package embed

import (
	"context"
	"math"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	liberrors "github.com/libragen/libragen/internal/errors"
)

const accelerateFrameworkPath = "/System/Library/Frameworks/Accelerate.framework/Accelerate"

// AccelerateAvailable reports whether the Accelerate framework can be
// loaded on this machine, by opening and closing it with Dlopen before
// anything depends on it.
func AccelerateAvailable() bool {
	lib, err := purego.Dlopen(accelerateFrameworkPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return false
	}
	defer purego.Dlclose(lib)
	return true
}

// AccelerateBackend generates the same token/trigram hash vectors as
// HashBackend, but performs the L2 normalization with vDSP (Accelerate's
// vectorized math library) via purego instead of a Go loop.
type AccelerateBackend struct {
	dims int
	lib  uintptr

	svesq func(vec unsafe.Pointer, stride int64, result unsafe.Pointer, n uint64)
	vsdiv func(a unsafe.Pointer, ia int64, b unsafe.Pointer, c unsafe.Pointer, ic int64, n uint64)

	mu     sync.RWMutex
	closed bool
}

var _ Backend = (*AccelerateBackend)(nil)

// NewAccelerateBackend loads Accelerate and binds the vDSP symbols used
// for normalization. Returns an error if the framework or symbols are
// unavailable, in which case callers should fall back to HashBackend.
func NewAccelerateBackend(dims int) (*AccelerateBackend, error) {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	lib, err := purego.Dlopen(accelerateFrameworkPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, liberrors.Wrap(liberrors.ModelLoad, err)
	}

	b := &AccelerateBackend{dims: dims, lib: lib}
	purego.RegisterLibFunc(&b.svesq, lib, "vDSP_svesq")
	purego.RegisterLibFunc(&b.vsdiv, lib, "vDSP_vsdiv")
	return b, nil
}

func (b *AccelerateBackend) Embed(_ context.Context, text string) ([]float32, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, liberrors.New(liberrors.Internal, "embedder is closed", nil)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, b.dims), nil
	}
	return b.normalize(generateHashVector(trimmed, b.dims)), nil
}

func (b *AccelerateBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := b.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// normalize computes ||v|| via vDSP_svesq and divides in place via
// vDSP_vsdiv, falling back to the pure-Go path for a zero vector.
func (b *AccelerateBackend) normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}
	var sumSquares float32
	b.svesq(unsafe.Pointer(&v[0]), 1, unsafe.Pointer(&sumSquares), uint64(len(v)))
	if sumSquares == 0 {
		return v
	}

	magnitude := float32(math.Sqrt(float64(sumSquares)))
	out := make([]float32, len(v))
	b.vsdiv(unsafe.Pointer(&v[0]), 1, unsafe.Pointer(&magnitude), unsafe.Pointer(&out[0]), 1, uint64(len(v)))
	return out
}

func (b *AccelerateBackend) Dimensions() int   { return b.dims }
func (b *AccelerateBackend) ModelName() string { return "hash-trigram-accelerate" }

func (b *AccelerateBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	purego.Dlclose(b.lib)
	return nil
}
