package embed

import (
	"context"
	"sync"

	liberrors "github.com/libragen/libragen/internal/errors"
)

// Embedder is the shared, lazily-initialized handle callers hold. Backend
// construction (picking hash-trigram vs. Accelerate, wrapping the LRU
// memoizer) happens at most once behind a one-shot latch; Dispose releases
// it and a later Embed re-initializes from the same Config.
type Embedder struct {
	cfg Config

	mu      sync.Mutex
	backend Backend
}

// New returns an Embedder that defers backend construction until first use.
func New(cfg Config) *Embedder {
	return &Embedder{cfg: cfg.withDefaults()}
}

// ensure loads the backend on first call and is a no-op afterward, until
// Dispose resets it. Concurrent callers block on the same load rather than
// racing to construct duplicate backends.
func (e *Embedder) ensure() (Backend, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend != nil {
		return e.backend, nil
	}

	backend, err := selectBackend(e.cfg)
	if err != nil {
		return nil, err
	}
	e.backend = NewCachedEmbedder(backend, e.cfg.CacheSize)
	return e.backend, nil
}

// selectBackend picks Accelerate when the config doesn't pin a different
// model and the platform supports it, falling back to the hash backend
// otherwise — callers never see the failure of an Accelerate probe.
func selectBackend(cfg Config) (Backend, error) {
	// withDefaults turns an empty Model into "bge-small-en-v1.5", so that
	// name takes the automatic path too.
	if cfg.Model == "" || cfg.Model == "hash-trigram" || cfg.Model == "bge-small-en-v1.5" {
		if AccelerateAvailable() {
			if b, err := NewAccelerateBackend(cfg.Dimensions); err == nil {
				return b, nil
			}
		}
		return NewHashBackend(cfg.Dimensions), nil
	}
	if cfg.Model == "hash-trigram-accelerate" {
		b, err := NewAccelerateBackend(cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return NewHashBackend(cfg.Dimensions), nil
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	backend, err := e.ensure()
	if err != nil {
		return nil, err
	}
	return backend.Embed(ctx, text)
}

// EmbedBatch splits texts into ⌈N/B⌉ batches of Config.BatchSize, invoking
// progress after each batch completes with cumulative counts.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, progress ProgressFunc) ([][]float32, error) {
	backend, err := e.ensure()
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batchSize := e.cfg.BatchSize
	total := len(texts)
	totalBatches := (total + batchSize - 1) / batchSize

	results := make([][]float32, 0, total)
	for i := 0; i < totalBatches; i++ {
		start := i * batchSize
		end := start + batchSize
		if end > total {
			end = total
		}

		select {
		case <-ctx.Done():
			return nil, liberrors.Wrap(liberrors.Canceled, ctx.Err())
		default:
		}

		vecs, err := backend.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, vecs...)

		if progress != nil {
			progress(BatchProgress{
				Batch:        i + 1,
				TotalBatches: totalBatches,
				Processed:    end,
				Total:        total,
			})
		}
	}
	return results, nil
}

func (e *Embedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend != nil {
		return e.backend.Dimensions()
	}
	return e.cfg.Dimensions
}

func (e *Embedder) ModelName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend != nil {
		return e.backend.ModelName()
	}
	return e.cfg.Model
}

// Dispose releases the current backend. A subsequent Embed or EmbedBatch
// re-initializes it from the same Config.
func (e *Embedder) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil {
		return nil
	}
	err := e.backend.Close()
	e.backend = nil
	return err
}
