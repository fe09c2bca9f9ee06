package loadtest

import "errors"

var (
	// ErrInvalidConfig is returned for unusable run settings.
	ErrInvalidConfig = errors.New("invalid load test config")
	// ErrUnhealthy is returned when the service health check fails.
	ErrUnhealthy = errors.New("service unhealthy")
	// ErrMismatch is returned when an analysis does not reproduce the ground truth.
	ErrMismatch = errors.New("analysis does not match ground truth")
	// ErrRunFailed is returned when any submission failed or mismatched.
	ErrRunFailed = errors.New("load test failed")
)
