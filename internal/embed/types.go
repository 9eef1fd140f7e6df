// Package embed turns chunk content into L2-normalized vectors.
//
// Two backends are wired behind the same interface: a deterministic,
// dependency-free hash-based default, and an optional macOS-native
// backend that calls into the system Accelerate framework via purego for
// the vector math. Both are always "available" in the sense that neither
// downloads a model; embed.New selects between them based on runtime
// capability and the caller's config.
package embed

import (
	"context"
	"math"
)

// DefaultDimensions is the vector width produced when Config.Dimensions
// is unset.
const DefaultDimensions = 384

// DefaultBatchSize is used when Config.BatchSize is unset.
const DefaultBatchSize = 32

// Backend generates embeddings for text. Implementations are expected to
// be safe for concurrent use after construction.
type Backend interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}

// BatchProgress reports progress through EmbedBatch.
type BatchProgress struct {
	Batch        int
	TotalBatches int
	Processed    int
	Total        int
}

// ProgressFunc receives batch progress during EmbedBatch.
type ProgressFunc func(BatchProgress)

// Config configures a Embedder.
type Config struct {
	Model        string // "" selects the automatic default
	Dimensions   int
	Quantization string
	BatchSize    int
	CacheDir     string
	CacheSize    int // memoization LRU capacity, 0 = DefaultEmbeddingCacheSize
}

func (c Config) withDefaults() Config {
	if c.Dimensions <= 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Quantization == "" {
		c.Quantization = "q8"
	}
	if c.Model == "" {
		c.Model = "bge-small-en-v1.5"
	}
	return c
}

func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
