package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidRequest = errors.New("invalid analysis request")
	ErrNoAnnotator    = errors.New("no annotator configured")
	ErrNoStore        = errors.New("no store configured")
	ErrRunFailed      = errors.New("pipeline run failed")
	// ErrDuplicateRun means the version is already being, or has been, dispatched.
	ErrDuplicateRun = errors.New("analysis version already dispatched")
)
