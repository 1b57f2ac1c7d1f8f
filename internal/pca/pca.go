// Package pca projects embeddings onto their first two principal components.
//
// The projection works on the N x N Gram matrix of the centered rows instead of the
// D x D covariance matrix, which is much cheaper when there are far fewer rows than
// dimensions (a resume plus a few dozen jobs against 384-dimensional embeddings).
// The two leading eigenvectors are found by power iteration with deflation, and
// each is scaled by the square root of its eigenvalue to obtain the coordinates.
package pca

import (
	"math"
	"math/rand"
)

const (
	DefaultIterations = 20

	collapseThreshold = 1e-9
)

// Point is the 2-D projection of one input row.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Float64Source supplies uniform values in [0, 1). *rand.Rand satisfies it.
type Float64Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

type options struct {
	rnd        Float64Source
	iterations int
	starts     [2][]float64
}

type Option func(*options)

// WithRand sets the source of the random start vectors.
func WithRand(rnd Float64Source) Option {
	return func(o *options) {
		if rnd != nil {
			o.rnd = rnd
		}
	}
}

// WithSeed is a shortcut for WithRand with a seeded generator.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// WithStartVectors fixes the start vectors of the first and second power iteration.
// A vector whose length differs from the number of rows is ignored.
func WithStartVectors(first, second []float64) Option {
	return func(o *options) {
		o.starts = [2][]float64{first, second}
	}
}

// WithIterations overrides the number of power iterations per component.
func WithIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.iterations = n
		}
	}
}

// Compute returns one point per row of matrix, in input order. Rows shorter than the
// longest row are treated as zero padded. An empty matrix gives an empty result and
// degenerate input (identical rows) collapses towards the origin. The sign of each
// axis is arbitrary.
func Compute(matrix [][]float64, opts ...Option) []Point {
	o := options{rnd: globalSource{}, iterations: DefaultIterations}
	for _, opt := range opts {
		opt(&o)
	}

	n := len(matrix)
	if n == 0 {
		return []Point{}
	}

	g := Gram(Center(matrix))

	v1 := PowerIteration(g, o.start(0, n), o.iterations)
	lambda1 := RayleighQuotient(g, v1)

	g2 := Deflate(g, v1, lambda1)
	v2 := PowerIteration(g2, o.start(1, n), o.iterations)
	lambda2 := RayleighQuotient(g2, v2)

	scale1 := math.Sqrt(math.Abs(lambda1))
	scale2 := math.Sqrt(math.Abs(lambda2))

	points := make([]Point, n)
	for i := range points {
		points[i] = Point{X: v1[i] * scale1, Y: v2[i] * scale2}
	}
	return points
}

func (o options) start(component, n int) []float64 {
	if fixed := o.starts[component]; len(fixed) == n {
		start := make([]float64, n)
		copy(start, fixed)
		return start
	}
	return RandomStart(n, o.rnd)
}

// RandomStart draws a start vector with components uniform in [-0.5, 0.5).
func RandomStart(n int, rnd Float64Source) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rnd.Float64() - 0.5
	}
	return v
}

// Center subtracts the column means from every row.
func Center(matrix [][]float64) [][]float64 {
	n := len(matrix)
	if n == 0 {
		return nil
	}

	d := 0
	for _, row := range matrix {
		d = max(d, len(row))
	}

	mean := make([]float64, d)
	for _, row := range matrix {
		for j, x := range row {
			mean[j] += x
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	centered := make([][]float64, n)
	for i, row := range matrix {
		centered[i] = make([]float64, d)
		for j := range mean {
			var x float64
			if j < len(row) {
				x = row[j]
			}
			centered[i][j] = x - mean[j]
		}
	}
	return centered
}

// Gram returns X * X^T. Only the upper triangle is computed.
func Gram(x [][]float64) [][]float64 {
	n := len(x)
	g := make([][]float64, n)
	for i := range g {
		g[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var dot float64
			for k := range x[i] {
				dot += x[i][k] * x[j][k]
			}
			g[i][j] = dot
			g[j][i] = dot
		}
	}
	return g
}

// PowerIteration converges start towards the dominant eigenvector of the symmetric
// matrix a. It stops early when the iterate collapses, returning the last unit vector.
func PowerIteration(a [][]float64, start []float64, iterations int) []float64 {
	n := len(a)

	v := normalize(start)
	if v == nil {
		// Zero start vector: any basis vector will do.
		v = make([]float64, n)
		if n > 0 {
			v[0] = 1
		}
	}

	for range iterations {
		w := multiply(a, v)
		next := normalize(w)
		if next == nil {
			break
		}
		v = next
	}
	return v
}

// RayleighQuotient returns v^T A v for a unit vector v.
func RayleighQuotient(a [][]float64, v []float64) float64 {
	av := multiply(a, v)

	var q float64
	for i := range v {
		q += v[i] * av[i]
	}
	return q
}

// Deflate returns A - lambda * v * v^T.
func Deflate(a [][]float64, v []float64, lambda float64) [][]float64 {
	out := make([][]float64, len(a))
	for i, row := range a {
		out[i] = make([]float64, len(row))
		for j, x := range row {
			out[i][j] = x - lambda*v[i]*v[j]
		}
	}
	return out
}

func multiply(a [][]float64, v []float64) []float64 {
	w := make([]float64, len(a))
	for i, row := range a {
		for j, x := range row {
			w[i] += x * v[j]
		}
	}
	return w
}

// normalize returns v scaled to unit length or nil when its magnitude collapsed.
func normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	mag := math.Sqrt(sum)
	if mag < collapseThreshold {
		return nil
	}

	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / mag
	}
	return out
}
