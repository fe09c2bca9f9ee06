package cli

import "errors"

// ErrUsage reports invalid command input.
var ErrUsage = errors.New("invalid usage")
