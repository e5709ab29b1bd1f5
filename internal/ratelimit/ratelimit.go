// Package ratelimit provides a wrapper around golang.org/x/time/rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/fd1az/fxbridge/internal/apperror"
)

// Limiter throttles outbound calls to an upstream API.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerMinute calls per minute.
// A non-positive value disables limiting.
func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}

	rps := float64(requestsPerMinute) / 60.0
	burst := requestsPerMinute / 10 // Allow burst of 10% of rate limit
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// NewWithBurst creates a new rate limiter with explicit burst.
func NewWithBurst(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait blocks until a token is available. A cancelled or expired context, or a
// wait that could never complete before the deadline, yields CodeRateLimitExceeded.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return apperror.Provider(apperror.CodeRateLimitExceeded, "", err)
	}
	return nil
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
