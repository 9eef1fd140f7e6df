package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBackend struct {
	calls atomic.Int32
	dims  int
}

func (c *countingBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return generateHashVector(text, c.dims), nil
}

func (c *countingBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := c.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (c *countingBackend) Dimensions() int   { return c.dims }
func (c *countingBackend) ModelName() string { return "counting" }
func (c *countingBackend) Close() error      { return nil }

func TestCachedEmbedder_RepeatedTextHitsCacheOnce(t *testing.T) {
	inner := &countingBackend{dims: 8}
	c := NewCachedEmbedder(inner, 16)
	ctx := context.Background()

	v1, err := c.Embed(ctx, "same text")
	require.NoError(t, err)
	v2, err := c.Embed(ctx, "same text")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestCachedEmbedder_EmbedBatchOnlyComputesMisses(t *testing.T) {
	inner := &countingBackend{dims: 8}
	c := NewCachedEmbedder(inner, 16)
	ctx := context.Background()

	_, err := c.Embed(ctx, "warm")
	require.NoError(t, err)
	inner.calls.Store(0)

	vecs, err := c.EmbedBatch(ctx, []string{"warm", "cold", "cold2"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	c := NewCachedEmbedderWithDefaults(&countingBackend{dims: 4})
	vecs, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestCachedEmbedder_PassthroughMetadata(t *testing.T) {
	inner := &countingBackend{dims: 12}
	c := NewCachedEmbedder(inner, 4)
	assert.Equal(t, 12, c.Dimensions())
	assert.Equal(t, "counting", c.ModelName())
	assert.Same(t, inner, c.Inner())
	assert.NoError(t, c.Close())
}
