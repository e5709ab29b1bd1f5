// Package circuitbreaker wraps sony/gobreaker with application defaults and error codes.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/fxbridge/internal/apperror"
)

// Config holds circuit breaker settings.
type Config struct {
	Name             string
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // closed-state counter reset period (0 = never)
	Timeout          time.Duration // open-state duration before half-open
	FailureThreshold uint32        // consecutive failures that trip the breaker
	OnStateChange    func(name string, from, to gobreaker.State)
	IsSuccessful     func(err error) bool
}

// DefaultConfig returns sensible defaults for upstream HTTP dependencies.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// CircuitBreaker guards calls returning T.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New creates a circuit breaker from cfg.
func New[T any](cfg Config) *CircuitBreaker[T] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cfg.OnStateChange,
		IsSuccessful:  cfg.IsSuccessful,
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker. Rejections are returned as AppErrors
// with CodeCircuitOpen or CodeCircuitHalfOpen.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := c.cb.Execute(fn)
	if err == nil {
		return result, nil
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return result, apperror.Provider(apperror.CodeCircuitOpen, "", err)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return result, apperror.Provider(apperror.CodeCircuitHalfOpen, "", err)
	}
	return result, err
}

// State returns the current breaker state.
func (c *CircuitBreaker[T]) State() gobreaker.State {
	return c.cb.State()
}

// Name returns the breaker name.
func (c *CircuitBreaker[T]) Name() string {
	return c.cb.Name()
}
