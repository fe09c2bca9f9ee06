package annotator

import "errors"

// ErrInvalidRecording is returned when a recorded reply cannot be decoded.
var ErrInvalidRecording = errors.New("invalid annotator recording")
