package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records how many texts reach the wrapped service.
type countingEmbedder struct {
	texts []string
	err   error
}

func (e *countingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.texts = append(e.texts, text)
	return []float32{float32(len(text))}, nil
}

func (e *countingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		e.texts = append(e.texts, text)
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func TestNewCachedEmbedder_Disabled(t *testing.T) {
	inner := &countingEmbedder{}
	assert.Same(t, inner, NewCachedEmbedder(inner, 0))
}

func TestCachedEmbedder_EmbedText(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, err := cached.EmbedText(ctx, "Get news article")
		require.NoError(t, err)
		assert.Equal(t, []float32{16}, v)
	}
	assert.Len(t, inner.texts, 1)
}

func TestCachedEmbedder_Eviction(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCachedEmbedder(inner, 2).(*CachedEmbedder)
	ctx := context.Background()

	_, _ = cached.EmbedText(ctx, "a")
	_, _ = cached.EmbedText(ctx, "bb")
	_, _ = cached.EmbedText(ctx, "a") // a is now most recent
	_, _ = cached.EmbedText(ctx, "ccc")

	assert.Equal(t, 2, cached.Len())
	_, _ = cached.EmbedText(ctx, "a")
	_, _ = cached.EmbedText(ctx, "bb") // evicted, must be recomputed

	assert.Equal(t, []string{"a", "bb", "ccc", "bb"}, inner.texts)
}

func TestCachedEmbedder_EmbedTexts(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := cached.EmbedText(ctx, "x")
	require.NoError(t, err)

	out, err := cached.EmbedTexts(ctx, []string{"x", "yy", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, out)
	assert.Equal(t, []string{"x", "yy", "zzz"}, inner.texts)
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("service unavailable")}
	cached := NewCachedEmbedder(inner, 10)

	_, err := cached.EmbedText(context.Background(), "q")
	require.Error(t, err)

	inner.err = nil
	v, err := cached.EmbedText(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
}
