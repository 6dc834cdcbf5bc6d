// Package ratelimit paces REST calls against the org's API limits.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// warnAfter is the expected wait above which a rate-limited caller is told
// why it is stalling. Warnings are emitted at most once per warnInterval.
const (
	warnAfter    = 2 * time.Second
	warnInterval = 10 * time.Second
)

// RateLimiter wraps a token bucket and reports long waits.
// A nil *RateLimiter never blocks.
type RateLimiter struct {
	limiter *rate.Limiter

	mu           sync.Mutex
	lastWarnTime time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond on average
// with bursts up to burst. requestsPerSecond <= 0 disables limiting and
// returns nil.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a request may proceed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}

	r := rl.limiter.Reserve()
	if !r.OK() {
		return rl.limiter.Wait(ctx)
	}

	delay := r.Delay()
	if delay == 0 {
		return nil
	}

	if delay > warnAfter {
		rl.mu.Lock()
		if time.Since(rl.lastWarnTime) > warnInterval {
			log.Warn().Dur("wait", delay).Msg("rate limited: waiting for API capacity")
			rl.lastWarnTime = time.Now()
		}
		rl.mu.Unlock()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limit returns the configured rate in requests per second, 0 when disabled.
func (rl *RateLimiter) Limit() float64 {
	if rl == nil {
		return 0
	}
	return float64(rl.limiter.Limit())
}
