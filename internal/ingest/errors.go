package ingest

import "errors"

// ErrInvalidPayload is returned when a reply is not JSON or has no record list.
var ErrInvalidPayload = errors.New("invalid annotator payload")
