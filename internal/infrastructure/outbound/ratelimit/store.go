package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

var _ ports.FrameLimiter = (*TokenBucketStore)(nil)

// SegmentsPerToken is how many drawn segments one token pays for.
const SegmentsPerToken = 1000

// FrameCost prices a frame of up to segments line segments per channel.
// Anything up to SegmentsPerToken costs one token; the cost never exceeds
// burst so every frame stays servable.
func FrameCost(segments, burst int) int {
	if segments <= 0 {
		return 1
	}
	n := (segments + SegmentsPerToken - 1) / SegmentsPerToken
	return max(1, min(n, burst))
}

type bucket struct {
	limiter  *rate.Limiter
	rate     float64
	burst    int
	lastSeen time.Time
}

// TokenBucketStore keeps one token bucket per client key. Viewers polling
// the window endpoint are limited independently of each other, and a
// full-resolution frame drains a bucket faster than a decimated one.
// Buckets refill on the injected clock.
type TokenBucketStore struct {
	clk ports.Clock
	ttl time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

// NewTokenBucketStore creates a store that forgets clients idle for longer
// than ttl. A background goroutine sweeps every ttl until Stop is called.
func NewTokenBucketStore(clk ports.Clock, ttl time.Duration) *TokenBucketStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	s := &TokenBucketStore{
		clk:     clk,
		ttl:     ttl,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Stop terminates the sweep goroutine. It is idempotent.
func (s *TokenBucketStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *TokenBucketStore) sweepLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Evict()
		case <-s.stop:
			return
		}
	}
}

// AllowFrame charges client's window bucket FrameCost(segments, burst)
// tokens.
func (s *TokenBucketStore) AllowFrame(ctx context.Context, client string, segments int, r float64, burst int) bool {
	return s.AllowN(ctx, "window:"+client, r, burst, FrameCost(segments, burst))
}

// Allow takes one token from key's bucket.
func (s *TokenBucketStore) Allow(ctx context.Context, key string, r float64, burst int) bool {
	return s.AllowN(ctx, key, r, burst, 1)
}

// AllowN takes n tokens from key's bucket, or none if fewer are available.
// A changed rate or burst (after a settings reload) is applied to the
// existing bucket.
func (s *TokenBucketStore) AllowN(_ context.Context, key string, r float64, burst, n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now()
	b, ok := s.buckets[key]
	switch {
	case !ok:
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(r), burst), rate: r, burst: burst}
		s.buckets[key] = b
	case b.rate != r || b.burst != burst:
		b.limiter.SetLimitAt(now, rate.Limit(r))
		b.limiter.SetBurstAt(now, burst)
		b.rate, b.burst = r, burst
	}

	b.lastSeen = now
	return b.limiter.AllowN(now, n)
}

// Evict drops buckets not used within the TTL.
func (s *TokenBucketStore) Evict() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clk.Now().Add(-s.ttl)
	for key, b := range s.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(s.buckets, key)
		}
	}
}

// Len returns the number of tracked clients.
func (s *TokenBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
