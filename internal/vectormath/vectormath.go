// Package vectormath contains the vector helpers shared by ranking, scoring and projection.
package vectormath

import "math"

// CosineSimilarity returns dot(a, b) / (|a| * |b|).
// The result is NaN when the lengths differ or either vector has zero magnitude.
// Callers treat NaN as "no signal".
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.NaN()
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// OrZero replaces NaN and infinities with zero.
func OrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Norm returns the euclidean length of v.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Mean averages the vectors element-wise. All vectors must share the length of the first one;
// ok is false otherwise or when no vectors are given.
func Mean(vectors [][]float64) (mean []float64, ok bool) {
	if len(vectors) == 0 {
		return nil, false
	}

	dim := len(vectors[0])
	mean = make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, false
		}
		for i, x := range v {
			mean[i] += x
		}
	}

	n := float64(len(vectors))
	for i := range mean {
		mean[i] /= n
	}

	return mean, true
}
