package reminders

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	// Rate is the number of sends allowed per second.
	Rate float64
	// Burst is the maximum number of sends at once.
	Burst int
	// JitterMin is the minimum jitter delay in milliseconds.
	JitterMin int
	// JitterMax is the maximum jitter delay in milliseconds.
	JitterMax int
}

// DefaultRateLimiterConfig returns the default configuration.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:      5.0,
		Burst:     10,
		JitterMin: 20,
		JitterMax: 80,
	}
}

// RateLimiter is a token bucket with a random delay in front of it.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
	mu      sync.Mutex
	rng     *rand.Rand
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	limit := rate.Limit(config.Rate)
	if config.Rate <= 0 {
		limit = rate.Inf
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(limit, burst),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait blocks until a token is available or the context is cancelled.
// It reports whether the caller had to wait for a token.
func (r *RateLimiter) Wait(ctx context.Context) (bool, error) {
	if jitter := r.getJitter(); jitter > 0 {
		select {
		case <-time.After(jitter):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	res := r.limiter.Reserve()
	delay := res.Delay()
	if delay == 0 {
		return false, nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true, nil
	case <-ctx.Done():
		res.Cancel()
		return true, ctx.Err()
	}
}

func (r *RateLimiter) getJitter() time.Duration {
	if r.config.JitterMax <= r.config.JitterMin {
		return time.Duration(r.config.JitterMin) * time.Millisecond
	}
	r.mu.Lock()
	jitterMs := r.config.JitterMin + r.rng.Intn(r.config.JitterMax-r.config.JitterMin)
	r.mu.Unlock()
	return time.Duration(jitterMs) * time.Millisecond
}

// TryAcquire attempts to acquire a token without blocking.
func (r *RateLimiter) TryAcquire() bool {
	return r.limiter.Allow()
}

// Available returns the current number of available tokens.
func (r *RateLimiter) Available() float64 {
	return r.limiter.Tokens()
}
