package embed

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps the static embedder and counts provider calls.
type countingEmbedder struct {
	*StaticEmbedder
	mu         sync.Mutex
	embedCalls int
	batchTexts int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.embedCalls++
	c.mu.Unlock()
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batchTexts += len(texts)
	c.mu.Unlock()
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_RepeatedQueryHitsCache(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	v1, err := c.Embed(ctx, "event loop")
	require.NoError(t, err)
	v2, err := c.Embed(ctx, "event loop")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.embedCalls)
}

func TestCachedEmbedder_BatchOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := c.Embed(ctx, "alpha")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	// "alpha" was already cached; only two texts hit the provider.
	assert.Equal(t, 2, inner.batchTexts)
}

func TestCachedEmbedder_AllCachedBatchSkipsProvider(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := c.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)
	firstBatch := inner.batchTexts

	_, err = c.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, firstBatch, inner.batchTexts)
}

func TestCachedEmbedder_Eviction(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 1)
	ctx := context.Background()

	_, err := c.Embed(ctx, "first")
	require.NoError(t, err)
	_, err = c.Embed(ctx, "second") // evicts "first"
	require.NoError(t, err)
	_, err = c.Embed(ctx, "first")
	require.NoError(t, err)

	assert.Equal(t, 3, inner.embedCalls)
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := NewStaticEmbedder()
	c := NewCachedEmbedder(inner, 0)

	assert.Equal(t, inner.Dimensions(), c.Dimensions())
	assert.Equal(t, inner.ModelName(), c.ModelName())
	assert.Same(t, inner, c.Inner())
	assert.True(t, c.Available(context.Background()))
	require.NoError(t, c.Close())
}
