package model

import "errors"

// Sentinel errors for model validation.
var (
	ErrInvalidEvent   = errors.New("invalid raw event")
	ErrInvalidSegment = errors.New("invalid time segment")
)
