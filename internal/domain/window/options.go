package window

import "github.com/okian/pitchside/pkg/logger"

// Option applies a configuration option to the Planner.
type Option func(*Planner)

// WithLogger sets the logger used for skipped and consolidated segments.
func WithLogger(l logger.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}
