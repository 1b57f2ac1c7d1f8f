package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	DefaultCacheSize = 200
	DefaultCacheTTL  = time.Hour
)

type CacheStats struct {
	Size    int           `json:"size"`
	MaxSize int           `json:"maxSize"`
	TTL     time.Duration `json:"ttl"`
	Hits    int64         `json:"hits"`
	Misses  int64         `json:"misses"`
}

// Cached remembers vectors by text hash. The least recently used entry is evicted when
// the cache is full; entries older than the TTL are treated as missing.
type Cached struct {
	next    Embedder
	maxSize int
	ttl     time.Duration
	logger  *zap.Logger

	lru    *expirable.LRU[string, []float64]
	hits   atomic.Int64
	misses atomic.Int64
}

func NewCached(next Embedder, maxSize int, ttl time.Duration, logger *zap.Logger) *Cached {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cached{
		next:    next,
		maxSize: maxSize,
		ttl:     ttl,
		logger:  logger,
		lru:     expirable.NewLRU[string, []float64](maxSize, nil, ttl),
	}
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float64, error) {
	key := hashText(text)

	if vector, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		c.logger.Debug("embedding cache hit")
		return vector, nil
	}

	c.misses.Add(1)
	c.logger.Debug("embedding cache miss")
	vector, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if evicted := c.lru.Add(key, vector); evicted {
		c.logger.Debug("embedding cache full, evicted the oldest entry")
	}
	return vector, nil
}

func (c *Cached) Stats() CacheStats {
	return CacheStats{
		Size:    c.lru.Len(),
		MaxSize: c.maxSize,
		TTL:     c.ttl,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
