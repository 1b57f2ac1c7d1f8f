package vectormath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	v := []float64{0.3, -1.2, 4.5, 0.01}
	neg := []float64{-0.3, 1.2, -4.5, -0.01}
	w := []float64{1, 2, 3, 4}

	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-12)
	assert.InDelta(t, -1.0, CosineSimilarity(v, neg), 1e-12)
	assert.InDelta(t, CosineSimilarity(v, w), CosineSimilarity(w, v), 1e-15)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-15)
}

func TestCosineSimilarityNoSignal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float64
	}{
		{name: "zero vector", a: []float64{0, 0, 0}, b: []float64{1, 2, 3}},
		{name: "length mismatch", a: []float64{1, 2}, b: []float64{1, 2, 3}},
		{name: "empty", a: nil, b: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CosineSimilarity(tt.a, tt.b)
			if !math.IsNaN(got) {
				t.Fatalf("expected NaN, got %v", got)
			}
			if OrZero(got) != 0 {
				t.Fatalf("expected OrZero to map NaN to 0")
			}
		})
	}
}

func TestOrZero(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, OrZero(math.Inf(1)))
	assert.Equal(t, 0.0, OrZero(math.Inf(-1)))
	assert.Equal(t, 0.42, OrZero(0.42))
}

func TestMean(t *testing.T) {
	t.Parallel()

	mean, ok := Mean([][]float64{{1, 2, 3}, {3, 4, 5}})
	require.True(t, ok)
	assert.Equal(t, []float64{2, 3, 4}, mean)

	_, ok = Mean([][]float64{{1, 2}, {1}})
	assert.False(t, ok)

	_, ok = Mean(nil)
	assert.False(t, ok)
}

func TestNorm(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 5.0, Norm([]float64{3, 4}), 1e-12)
	assert.Equal(t, 0.0, Norm(nil))
}
