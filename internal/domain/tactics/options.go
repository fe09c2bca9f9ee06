package tactics

import (
	"github.com/okian/pitchside/internal/domain/enrich"
	"github.com/okian/pitchside/internal/domain/pitch"
	"github.com/okian/pitchside/pkg/logger"
)

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithLogger sets the analyzer logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// WithPitch sets pitch dimensions and attack orientation.
func WithPitch(p pitch.Pitch) Option {
	return func(a *Analyzer) {
		a.pitch = p
	}
}

// WithEnricher sets the enricher used for counter-attack detection.
func WithEnricher(e *enrich.Enricher) Option {
	return func(a *Analyzer) {
		if e != nil {
			a.enricher = e
		}
	}
}
