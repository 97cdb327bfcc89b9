package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOpts() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return nil
	}, fastOpts())

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	}, fastOpts())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return fmt.Errorf("always fails")
	}, fastOpts())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, calls)
}

func TestWithRetryNonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	permanent := &RetryableError{Err: fmt.Errorf("bad request"), Retryable: false}

	err := WithRetry(context.Background(), func() error {
		calls++
		return permanent
	}, fastOpts())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.NotErrorIs(t, err, ErrMaxRetries)
}

func TestWithRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return fmt.Errorf("transient")
	}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Hour})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", ErrRateLimit, true},
		{"wrapped rate limit", fmt.Errorf("openai: %w", ErrRateLimit), true},
		{"extraction timeout", ErrExtractionTimeout, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"retryable wrapper true", &RetryableError{Err: errors.New("x"), Retryable: true}, true},
		{"retryable wrapper false", &RetryableError{Err: errors.New("x"), Retryable: false}, false},
		{"schema violation", ErrSchemaViolation, false},
		{"unsupported modality", ErrUnsupportedModality, false},
		{"plain error", errors.New("whatever"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestRetryableErrorUnwrap(t *testing.T) {
	inner := ErrRateLimit
	wrapped := &RetryableError{Err: fmt.Errorf("provider: %w", inner), Retryable: true}

	assert.ErrorIs(t, wrapped, ErrRateLimit)
	assert.Equal(t, "provider: rate limit exceeded", wrapped.Error())
}

func TestUserError(t *testing.T) {
	err := NewUserError("could not read the audio", ErrTranscriptionFailure)

	assert.ErrorIs(t, err, ErrTranscriptionFailure)
	assert.Contains(t, err.Error(), "could not read the audio")
}
