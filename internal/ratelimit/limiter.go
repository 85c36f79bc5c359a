// Package ratelimit paces outgoing requests per platform.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a named token bucket.
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// New creates a limiter allowing perSecond requests per second. The burst is
// the rate rounded up, at least 1. A perSecond <= 0 means unlimited.
func New(name string, perSecond float64) *Limiter {
	if perSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1), name: name}
	}
	burst := int(math.Ceil(perSecond))
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst), name: name}
}

// Every creates a limiter allowing one request per interval.
func Every(name string, interval time.Duration) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Every(interval), 1), name: name}
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	if waited := time.Since(start); waited > 100*time.Millisecond {
		slog.Debug("Rate limited", "platform", l.name, "waited", waited)
	}
	return nil
}

// Allow reports whether a request can proceed without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Name returns the limiter name.
func (l *Limiter) Name() string {
	return l.name
}
