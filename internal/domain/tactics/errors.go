package tactics

import "errors"

// ErrInvalidConfig reports tactical thresholds that cannot be used.
var ErrInvalidConfig = errors.New("invalid tactics config")
