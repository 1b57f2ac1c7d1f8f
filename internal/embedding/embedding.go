// Package embedding turns text into fixed-length vectors through an external model
// and provides the plumbing around it: chunk averaging, caching and throttling.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spigell/resume-matcher/internal/vectormath"
)

// DefaultDimensions matches the corpus embeddings (all-MiniLM-L6-v2).
const DefaultDimensions = 384

var ErrDimensionMismatch = errors.New("embedding dimensions do not match")

// Embedder returns one vector per text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float64, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}

// EmbedChunks embeds every chunk concurrently, at most limit at a time (unbounded when
// limit <= 0), and averages the vectors element-wise.
func EmbedChunks(ctx context.Context, e Embedder, chunks []string, limit int) ([]float64, error) {
	if len(chunks) == 0 {
		return nil, errors.New("nothing to embed")
	}
	if len(chunks) == 1 {
		return e.Embed(ctx, chunks[0])
	}

	vectors := make([][]float64, len(chunks))

	g, gCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, chunk := range chunks {
		g.Go(func() error {
			vector, err := e.Embed(gCtx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			vectors[i] = vector
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	mean, ok := vectormath.Mean(vectors)
	if !ok {
		return nil, fmt.Errorf("chunk vectors: %w", ErrDimensionMismatch)
	}
	return mean, nil
}

// Random produces random vectors. It stands in for the model when no API key is set.
type Random struct {
	dim int

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom returns a Random embedder. A nil rnd draws from the global source.
func NewRandom(dim int, rnd *rand.Rand) *Random {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &Random{dim: dim, rnd: rnd}
}

func (r *Random) Embed(_ context.Context, _ string) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := make([]float64, r.dim)
	for i := range v {
		if r.rnd != nil {
			v[i] = r.rnd.Float64() - 0.5
		} else {
			v[i] = rand.Float64() - 0.5
		}
	}
	return v, nil
}

// Throttled limits the rate of calls to the wrapped embedder.
type Throttled struct {
	next    Embedder
	limiter *rate.Limiter
}

// NewThrottled allows perSecond calls with the given burst. A non-positive rate disables
// throttling.
func NewThrottled(next Embedder, perSecond float64, burst int) *Throttled {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (t *Throttled) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.next.Embed(ctx, text)
}

// Checked rejects vectors whose length differs from dim.
func Checked(next Embedder, dim int) Embedder {
	return EmbedderFunc(func(ctx context.Context, text string) ([]float64, error) {
		vector, err := next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(vector) != dim {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), dim)
		}
		return vector, nil
	})
}
