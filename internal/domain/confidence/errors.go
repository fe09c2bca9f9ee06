package confidence

import "errors"

// ErrInvalidConfig reports unusable weights or thresholds.
var ErrInvalidConfig = errors.New("invalid confidence config")
