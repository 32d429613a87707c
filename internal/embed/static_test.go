package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()
	ctx := context.Background()

	v1, err := e.Embed(ctx, "the event loop runs callbacks")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "the event loop runs callbacks")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, StaticDimensions)
}

func TestStaticEmbedder_DifferentTextsDiffer(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()
	ctx := context.Background()

	v1, err := e.Embed(ctx, "event loops and coroutines")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "json serialization basics")
	require.NoError(t, err)

	assert.NotEqual(t, v1, v2)
}

func TestStaticEmbedder_UnitLength(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	v, err := e.Embed(context.Background(), "normalize me please")
	require.NoError(t, err)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestStaticEmbedder_EmptyTextZeroVector(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, StaticDimensions), v)
}

func TestStaticEmbedder_SimilarTextsCloser(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()
	ctx := context.Background()

	query, err := e.Embed(ctx, "event loop scheduling")
	require.NoError(t, err)
	related, err := e.Embed(ctx, "the event loop schedules callbacks and coroutines")
	require.NoError(t, err)
	unrelated, err := e.Embed(ctx, "install packages with apt on debian systems")
	require.NoError(t, err)

	assert.Greater(t, dot(query, related), dot(query, unrelated))
}

func TestStaticEmbedder_CaseSplitMatchesProse(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()
	ctx := context.Background()

	camel, err := e.Embed(ctx, "EventLoop")
	require.NoError(t, err)
	prose, err := e.Embed(ctx, "event loop")
	require.NoError(t, err)

	assert.Greater(t, dot(camel, prose), float64(0))
}

func TestStaticEmbedder_EmbedBatch(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, make([]float32, StaticDimensions), vecs[2])
}

func TestStaticEmbedder_Metadata(t *testing.T) {
	e := NewStaticEmbedder()
	assert.Equal(t, StaticDimensions, e.Dimensions())
	assert.Equal(t, "static", e.ModelName())
	assert.True(t, e.Available(context.Background()))

	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))

	_, err := e.Embed(context.Background(), "after close")
	assert.Error(t, err)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
