package errors

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) *RetryConfig {
	return ProbeRetryConfig(attempts, time.Millisecond)
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("connection refused")
	err := Retry(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) error {
		assert.Equal(t, calls, attempt)
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("forbidden")
	err := Retry(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) error {
		calls++
		return Permanent(boom)
	})

	assert.ErrorIs(t, err, boom)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), fastConfig(0), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("fail")
	})

	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, fastConfig(3), func(ctx context.Context, attempt int) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestCalculateRetryBackoff(t *testing.T) {
	cfg := &RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     300 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	assert.Equal(t, 100*time.Millisecond, calculateRetryBackoff(0, cfg))
	assert.Equal(t, 200*time.Millisecond, calculateRetryBackoff(1, cfg))
	assert.Equal(t, 300*time.Millisecond, calculateRetryBackoff(2, cfg))

	fixed := ProbeRetryConfig(3, time.Second)
	assert.Equal(t, time.Second, calculateRetryBackoff(0, fixed))
	assert.Equal(t, time.Second, calculateRetryBackoff(2, fixed))
}

func TestHTTPAbandonStatus(t *testing.T) {
	assert.True(t, HTTPAbandonStatus(http.StatusForbidden))
	assert.True(t, HTTPAbandonStatus(http.StatusNotFound))
	assert.False(t, HTTPAbandonStatus(http.StatusInternalServerError))
	assert.False(t, HTTPAbandonStatus(http.StatusTooManyRequests))
}
