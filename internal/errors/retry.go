package errors

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	// MaxAttempts is the total number of calls, including the first one
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	Jitter         bool
}

// DefaultRetryConfig returns a sensible default configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
	}
}

// ProbeRetryConfig returns a fixed-delay configuration for parse service probes
func ProbeRetryConfig(attempts int, delay time.Duration) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: delay,
		MaxBackoff:     delay,
		BackoffFactor:  1.0,
		Jitter:         false,
	}
}

// permanentError marks an error that must not be retried
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Retry returns it immediately
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RetryableFunc is a function that can be retried
type RetryableFunc func(ctx context.Context, attempt int) error

// Retry executes the given function with retry logic. Every error is retried
// except context errors and errors wrapped with Permanent.
func Retry(ctx context.Context, cfg *RetryConfig, fn RetryableFunc) error {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryableError(err) {
			return err
		}

		// Don't wait after the last attempt
		if attempt == attempts-1 {
			break
		}

		backoff := calculateRetryBackoff(attempt, cfg)
		if backoff <= 0 {
			continue
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// calculateRetryBackoff calculates the backoff duration for a given attempt
func calculateRetryBackoff(attempt int, cfg *RetryConfig) time.Duration {
	factor := cfg.BackoffFactor
	if factor <= 0 {
		factor = 1
	}
	backoff := float64(cfg.InitialBackoff) * math.Pow(factor, float64(attempt))

	if cfg.MaxBackoff > 0 && time.Duration(backoff) > cfg.MaxBackoff {
		backoff = float64(cfg.MaxBackoff)
	}

	// Add jitter (±25%)
	if cfg.Jitter {
		jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
		backoff = backoff + jitter
	}

	return time.Duration(backoff)
}

// isRetryableError determines if an error should be retried
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return !IsPermanent(err)
}

// HTTPAbandonStatus returns true if the status tells the caller to give up on
// an upstream without retrying it
func HTTPAbandonStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}
