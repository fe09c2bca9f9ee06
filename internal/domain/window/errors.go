package window

import "errors"

// ErrInvalidConfig reports a planner configuration that cannot produce windows.
// It is not retryable.
var ErrInvalidConfig = errors.New("invalid window config")
