package embedding

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls atomic.Int64
	fn    func(text string) ([]float64, error)
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	c.calls.Add(1)
	return c.fn(text)
}

func lengthVector(text string) ([]float64, error) {
	return []float64{float64(len(text)), 1}, nil
}

func TestEmbedChunksAverages(t *testing.T) {
	t.Parallel()

	e := &countingEmbedder{fn: lengthVector}
	got, err := EmbedChunks(context.Background(), e, []string{"ab", "abcd", "abcdef"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 1}, got)
	assert.EqualValues(t, 3, e.calls.Load())
}

func TestEmbedChunksSingle(t *testing.T) {
	t.Parallel()

	e := &countingEmbedder{fn: lengthVector}
	got, err := EmbedChunks(context.Background(), e, []string{"abc"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1}, got)
}

func TestEmbedChunksErrors(t *testing.T) {
	t.Parallel()

	_, err := EmbedChunks(context.Background(), &countingEmbedder{fn: lengthVector}, nil, 1)
	require.Error(t, err)

	boom := errors.New("boom")
	failing := &countingEmbedder{fn: func(text string) ([]float64, error) {
		if text == "bad" {
			return nil, boom
		}
		return []float64{1}, nil
	}}
	_, err = EmbedChunks(context.Background(), failing, []string{"ok", "bad"}, 1)
	require.ErrorIs(t, err, boom)

	uneven := &countingEmbedder{fn: func(text string) ([]float64, error) {
		return make([]float64, len(text)), nil
	}}
	_, err = EmbedChunks(context.Background(), uneven, []string{"a", "bb"}, 0)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCachedHitsAndEviction(t *testing.T) {
	t.Parallel()

	e := &countingEmbedder{fn: lengthVector}
	c := NewCached(e, 2, time.Minute, nil)
	ctx := context.Background()

	_, err := c.Embed(ctx, "a")
	require.NoError(t, err)
	_, err = c.Embed(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, e.calls.Load())

	_, _ = c.Embed(ctx, "bb")
	// touch "a" so "bb" is the oldest entry
	_, _ = c.Embed(ctx, "a")
	_, _ = c.Embed(ctx, "ccc")
	assert.EqualValues(t, 3, e.calls.Load())

	_, _ = c.Embed(ctx, "a")
	assert.EqualValues(t, 3, e.calls.Load(), "a should still be cached")

	_, _ = c.Embed(ctx, "bb")
	assert.EqualValues(t, 4, e.calls.Load(), "bb should have been evicted")

	stats := c.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 2, stats.MaxSize)
	assert.EqualValues(t, 3, stats.Hits)
	assert.EqualValues(t, 4, stats.Misses)
}

func TestCachedExpires(t *testing.T) {
	t.Parallel()

	ttl := 200 * time.Millisecond
	e := &countingEmbedder{fn: lengthVector}
	c := NewCached(e, 10, ttl, nil)

	ctx := context.Background()
	_, _ = c.Embed(ctx, "x")
	_, _ = c.Embed(ctx, "x")
	assert.EqualValues(t, 1, e.calls.Load())

	time.Sleep(ttl + 100*time.Millisecond)

	_, _ = c.Embed(ctx, "x")
	assert.EqualValues(t, 2, e.calls.Load())
	assert.EqualValues(t, 1, c.Stats().Hits)
	assert.EqualValues(t, 2, c.Stats().Misses)
}

func TestCachedDoesNotStoreErrors(t *testing.T) {
	t.Parallel()

	e := &countingEmbedder{fn: func(string) ([]float64, error) { return nil, errors.New("down") }}
	c := NewCached(e, 0, 0, nil)

	_, err := c.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, 0, c.Stats().Size)
	assert.Equal(t, DefaultCacheSize, c.Stats().MaxSize)
	assert.Equal(t, DefaultCacheTTL, c.Stats().TTL)
}

func TestRandom(t *testing.T) {
	t.Parallel()

	r := NewRandom(0, rand.New(rand.NewSource(1)))
	v, err := r.Embed(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, v, DefaultDimensions)
	for _, x := range v {
		assert.GreaterOrEqual(t, x, -0.5)
		assert.Less(t, x, 0.5)
	}
}

func TestThrottledHonoursContext(t *testing.T) {
	t.Parallel()

	e := &countingEmbedder{fn: lengthVector}
	th := NewThrottled(e, 0.001, 1)

	_, err := th.Embed(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = th.Embed(ctx, "b")
	require.Error(t, err)
	assert.EqualValues(t, 1, e.calls.Load())
}

func TestThrottledUnlimited(t *testing.T) {
	t.Parallel()

	e := &countingEmbedder{fn: lengthVector}
	th := NewThrottled(e, 0, 0)
	for range 5 {
		_, err := th.Embed(context.Background(), "a")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 5, e.calls.Load())
}

func TestChecked(t *testing.T) {
	t.Parallel()

	e := Checked(&countingEmbedder{fn: lengthVector}, 3)
	_, err := e.Embed(context.Background(), "a")
	require.ErrorIs(t, err, ErrDimensionMismatch)

	ok := Checked(&countingEmbedder{fn: lengthVector}, 2)
	v, err := ok.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, v, 2)
}
