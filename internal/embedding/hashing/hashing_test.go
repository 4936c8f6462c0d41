package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func TestEmbed_FixedDimensionAndUnitNorm(t *testing.T) {
	e := NewEmbedder(64)
	v, err := e.Embed(context.Background(), "Qdrant stores vectors for semantic search")
	require.NoError(t, err)
	require.Len(t, v, 64)
	assert.InDelta(t, 1.0, math.Sqrt(cosine(v, v)), 1e-9)
}

func TestEmbed_Deterministic(t *testing.T) {
	e := NewEmbedder(128)
	a, err := e.Embed(context.Background(), "deploy the billing service")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "deploy the billing service")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbed_SimilarTextsScoreHigher(t *testing.T) {
	e := NewEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "how do I rotate database credentials")
	near, _ := e.Embed(ctx, "rotate the database credentials every month")
	far, _ := e.Embed(ctx, "lunch menu for friday includes pasta")
	assert.Greater(t, cosine(q, near), cosine(q, far))
}

func TestEmbed_StopwordsOnlyIsZeroVector(t *testing.T) {
	e := NewEmbedder(16)
	v, err := e.Embed(context.Background(), "the and of")
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 16), v)
}

func TestNewEmbedder_DefaultDimension(t *testing.T) {
	assert.Equal(t, 512, NewEmbedder(0).Dimension())
	assert.Equal(t, "hashing", NewEmbedder(0).Name())
}
