package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("always fails")
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return sentinel
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel))
	// Initial attempt plus MaxRetries.
	assert.Equal(t, 4, calls)
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, fastRetryConfig(), func() error {
		return errors.New("should not matter")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), fastRetryConfig(), func() ([]float32, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("transient")
		}
		return []float32{0.1, 0.2}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, got)
	assert.Equal(t, 2, calls)
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("embed", WithMaxFailures(2), WithResetTimeout(time.Hour))

	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.False(t, cb.Allow())
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	cb := NewCircuitBreaker("embed", WithMaxFailures(2))

	cb.RecordFailure()
	cb.RecordSuccess()
	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker("embed", WithMaxFailures(1), WithResetTimeout(time.Millisecond))

	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitExecute_FallbackWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker("embed", WithMaxFailures(1), WithResetTimeout(time.Hour))
	cb.RecordFailure()

	got, err := CircuitExecute(cb,
		func() (string, error) { return "primary", nil },
		func() (string, error) { return "fallback", nil },
	)

	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}

func TestCircuitExecute_PrimaryWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker("embed")

	got, err := CircuitExecute(cb,
		func() (string, error) { return "primary", nil },
		func() (string, error) { return "fallback", nil },
	)

	require.NoError(t, err)
	assert.Equal(t, "primary", got)
}
