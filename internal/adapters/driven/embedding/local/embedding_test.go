package local

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorNorm(vec []float32) float64 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	return math.Sqrt(norm)
}

func TestEmbed_Dimensions(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 64})
	vec, err := svc.Embed(context.Background(), "warehouse robots")
	require.NoError(t, err)
	assert.Len(t, vec, 64)
	assert.Equal(t, 64, svc.Dimensions())
}

func TestEmbed_DefaultDimensions(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}

func TestEmbed_UnitLength(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 128})
	vec, err := svc.Embed(context.Background(), "the LiftMate 3000 can carry up to 800 pounds")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vectorNorm(vec), 1e-5)
}

func TestEmbed_Deterministic(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 32})
	first, err := svc.Embed(context.Background(), "standard warranty is 2 years")
	require.NoError(t, err)
	second, err := svc.Embed(context.Background(), "standard warranty is 2 years")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A fresh service produces the same vectors: no per-process state.
	other := NewEmbeddingService(Config{Dimensions: 32})
	third, err := other.Embed(context.Background(), "standard warranty is 2 years")
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestEmbed_DifferentTextsDiffer(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 32})
	a, err := svc.Embed(context.Background(), "battery swap schedule")
	require.NoError(t, err)
	b, err := svc.Embed(context.Background(), "emergency stop buttons")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEmbed_NoTokens(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 16})
	vec, err := svc.Embed(context.Background(), "!!! --- ???")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), vec)
}

func TestEmbedBatch_Aligned(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 16})
	texts := []string{"first text", "second text", "third text"}

	batch, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := svc.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "batch result %d must match single embedding", i)
	}
}

func TestWarmup(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 8})
	require.NoError(t, svc.Warmup(context.Background()))
	// Idempotent.
	require.NoError(t, svc.Warmup(context.Background()))
}

func TestConcurrentFirstUse_SharesOneModel(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 32})

	const callers = 16
	results := make([][]float32, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			vec, err := svc.Embed(context.Background(), "concurrent warmup check")
			assert.NoError(t, err)
			results[i] = vec
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, results[0], results[i])
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("The LiftMate-3000, carries 800 pounds!")
	assert.Equal(t, []string{"the", "liftmate", "3000", "carries", "800", "pounds"}, tokens)
}
