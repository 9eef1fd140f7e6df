package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_LazyInitOnFirstUse(t *testing.T) {
	e := New(Config{Model: "hash-trigram", Dimensions: 16})

	e.mu.Lock()
	backendNil := e.backend == nil
	e.mu.Unlock()
	assert.True(t, backendNil)

	vec, err := e.Embed(context.Background(), "lazy init")
	require.NoError(t, err)
	assert.Len(t, vec, 16)

	e.mu.Lock()
	backendNil = e.backend == nil
	e.mu.Unlock()
	assert.False(t, backendNil)
}

func TestEmbedder_EmbedBatchFiresProgressPerBatch(t *testing.T) {
	e := New(Config{Model: "hash-trigram", Dimensions: 8, BatchSize: 2})

	texts := []string{"a", "b", "c", "d", "e"}
	var events []BatchProgress
	vecs, err := e.EmbedBatch(context.Background(), texts, func(p BatchProgress) {
		events = append(events, p)
	})
	require.NoError(t, err)
	require.Len(t, vecs, 5)

	require.Len(t, events, 3) // ceil(5/2) = 3
	assert.Equal(t, 1, events[0].Batch)
	assert.Equal(t, 3, events[0].TotalBatches)
	assert.Equal(t, 2, events[0].Processed)
	assert.Equal(t, 5, events[2].Processed)
	assert.Equal(t, 5, events[2].Total)
}

func TestEmbedder_EmbedBatchEmptyInput(t *testing.T) {
	e := New(Config{Dimensions: 8})
	vecs, err := e.EmbedBatch(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestEmbedder_DisposeThenReinitialize(t *testing.T) {
	e := New(Config{Model: "hash-trigram", Dimensions: 8})

	_, err := e.Embed(context.Background(), "first")
	require.NoError(t, err)
	require.NoError(t, e.Dispose())

	e.mu.Lock()
	backendNil := e.backend == nil
	e.mu.Unlock()
	assert.True(t, backendNil)

	vec, err := e.Embed(context.Background(), "after dispose")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestEmbedder_DisposeWithoutInitIsNoop(t *testing.T) {
	e := New(Config{Dimensions: 8})
	assert.NoError(t, e.Dispose())
}

func TestEmbedder_DimensionsBeforeAndAfterInit(t *testing.T) {
	e := New(Config{Dimensions: 64})
	assert.Equal(t, 64, e.Dimensions())

	_, err := e.Embed(context.Background(), "touch")
	require.NoError(t, err)
	assert.Equal(t, 64, e.Dimensions())
}
