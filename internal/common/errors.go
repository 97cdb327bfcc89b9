// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Pipeline error taxonomy.
var (
	// ErrUnsupportedModality indicates the input's declared modality has
	// no registered converter.
	ErrUnsupportedModality = errors.New("unsupported modality")
	// ErrTranscriptionFailure indicates the speech or vision call errored
	// or timed out without producing usable content.
	ErrTranscriptionFailure = errors.New("transcription failure")
	// ErrExtractionTimeout indicates the model call exceeded its deadline.
	ErrExtractionTimeout = errors.New("extraction timeout")
	// ErrSchemaViolation indicates model output that does not parse into
	// the expense schema.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrExtractionUnavailable indicates every configured provider was
	// exhausted without a usable extraction.
	ErrExtractionUnavailable = errors.New("extraction unavailable")
	// ErrNoExpenseFound indicates the model determined the input carries
	// no expense information at all.
	ErrNoExpenseFound = errors.New("no expense found")

	// ErrRateLimit indicates that a provider rate limit has been exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")

	// ErrNotFound indicates a missing record in storage.
	ErrNotFound = errors.New("not found")
	// ErrMissingConfig indicates required configuration is absent.
	ErrMissingConfig = errors.New("missing configuration")
)

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
// Schema violations get their own single-shot reformat pass and modality
// errors are permanent, so neither is retryable here.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrExtractionTimeout) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
