package dedupe

import (
	"github.com/okian/pitchside/internal/domain/confidence"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/pitch"
	"github.com/okian/pitchside/pkg/logger"
)

const defaultSeenMaxSize = 50000

// SeenOption applies a configuration option to the in-memory Deduper.
type SeenOption func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered keys; the oldest are evicted first.
// A value <= 0 makes the set unbounded.
func WithMaxSize(maxSize int) SeenOption {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithWindows registers window spans so merged timestamps can be checked
// against every contributing window.
func WithWindows(windows []model.AnalysisWindow) Option {
	return func(e *Engine) {
		for _, w := range windows {
			e.spans[w.ID] = w
		}
	}
}

// WithPitch sets the pitch used for spatial tolerance.
func WithPitch(p pitch.Pitch) Option {
	return func(e *Engine) {
		e.pitch = p
	}
}

// WithConfidence sets the calculator used for quality assessments.
func WithConfidence(c confidence.Config) Option {
	return func(e *Engine) {
		e.quality = c
	}
}
