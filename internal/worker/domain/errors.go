package domain

import (
	"errors"

	"github.com/cuongbtq/hr-rag/internal/jobs"
)

var (
	// ErrInvalidPayload is returned when a delivery cannot be decoded into a job
	ErrInvalidPayload = jobs.ErrInvalidPayload

	// ErrTaskFailure marks a job that failed for good and must be dead-lettered
	ErrTaskFailure = errors.New("task failed permanently")

	// ErrMaxRetriesExceeded is returned when a retryable job has used all its attempts
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrUnknownKind is returned for a kind no handler is registered for
	ErrUnknownKind = errors.New("no handler for job kind")
)

// RetryableError wraps transient errors that should trigger a retry
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is, or wraps, a RetryableError
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
