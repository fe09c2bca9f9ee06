package enrich

import "errors"

// ErrInvalidConfig reports enrichment thresholds that cannot be used.
var ErrInvalidConfig = errors.New("invalid enrich config")
