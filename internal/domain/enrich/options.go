package enrich

import (
	"github.com/okian/pitchside/internal/domain/pitch"
	"github.com/okian/pitchside/pkg/logger"
)

// Option applies a configuration option to the Enricher.
type Option func(*Enricher)

// WithLogger sets the enricher logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.log = l
		}
	}
}

// WithPitch sets pitch dimensions and attack orientation.
func WithPitch(p pitch.Pitch) Option {
	return func(e *Enricher) {
		e.pitch = p
	}
}
