package dedupe

import "errors"

// ErrInvalidConfig reports merge tolerances that cannot be used.
var ErrInvalidConfig = errors.New("invalid dedupe config")
