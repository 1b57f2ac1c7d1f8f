package server

import (
	"context"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = time.Minute
	DefaultCleanupInterval   = 5 * time.Minute

	anonymousClient = "anonymous"
)

type RateLimitConfig struct {
	Requests        int
	Window          time.Duration
	CleanupInterval time.Duration
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.Requests <= 0 {
		c.Requests = DefaultRateLimitRequests
	}
	if c.Window <= 0 {
		c.Window = DefaultRateLimitWindow
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	return c
}

// RateInfo is the limiter state reported to the client.
type RateInfo struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is how long until the bucket is full again.
	Reset time.Duration
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client. A bucket holds Requests tokens and
// refills completely over Window.
type RateLimiter struct {
	cfg   RateLimitConfig
	every rate.Limit
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg = cfg.withDefaults()
	return &RateLimiter{
		cfg:     cfg,
		every:   rate.Every(cfg.Window / time.Duration(cfg.Requests)),
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

func (l *RateLimiter) Allow(id string) RateInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[id]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.every, l.cfg.Requests)}
		l.clients[id] = c
	}
	c.lastSeen = now

	allowed := c.limiter.AllowN(now, 1)
	tokens := c.limiter.TokensAt(now)

	return RateInfo{
		Allowed:   allowed,
		Limit:     l.cfg.Requests,
		Remaining: max(int(math.Floor(tokens)), 0),
		Reset:     l.untilFull(tokens),
	}
}

func (l *RateLimiter) untilFull(tokens float64) time.Duration {
	missing := float64(l.cfg.Requests) - tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / float64(l.every) * float64(time.Second))
}

// Cleanup forgets clients idle for longer than the window; their buckets are full again.
func (l *RateLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, c := range l.clients {
		if now.Sub(c.lastSeen) >= l.cfg.Window {
			delete(l.clients, id)
			removed++
		}
	}
	return removed
}

func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RunCleanup calls Cleanup every CleanupInterval until ctx is done.
func (l *RateLimiter) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// ClientID identifies the caller: first X-Forwarded-For entry, then X-Real-IP, then the
// remote address.
func ClientID(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}

	return anonymousClient
}
