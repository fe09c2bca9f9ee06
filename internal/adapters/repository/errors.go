package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("analysis not found")
	ErrVersionExists   = errors.New("analysis version already stored")
	ErrInvalidAnalysis = errors.New("invalid analysis")
	ErrStorage         = errors.New("storage failure")
)
