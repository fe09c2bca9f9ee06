package annotator

import (
	"time"

	"github.com/okian/pitchside/pkg/logger"
)

// Option applies a configuration option to the Replay.
type Option func(*Replay)

// WithLogger sets a custom logger for the replay.
func WithLogger(l logger.Logger) Option {
	return func(r *Replay) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLatency delays every reply by d to mimic the live service.
func WithLatency(d time.Duration) Option {
	return func(r *Replay) {
		if d > 0 {
			r.latency = d
		}
	}
}
