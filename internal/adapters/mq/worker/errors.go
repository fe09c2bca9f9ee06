package worker

import (
	"context"
	"errors"
)

// Sentinel kinds for worker errors.
var (
	ErrAnnotate = errors.New("annotate window failed")
	ErrStopped  = errors.New("worker stopped")
)

type retryableError struct {
	err error
}

func (r retryableError) Error() string { return r.err.Error() }
func (r retryableError) Unwrap() error { return r.err }

// Retryable marks err as transient so the worker tries the window again.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var r retryableError
	return errors.As(err, &r)
}

// shouldRetry treats marked errors and per-call timeouts as transient, as
// long as the parent context is still alive.
func shouldRetry(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	return IsRetryable(err) || errors.Is(err, context.DeadlineExceeded)
}
