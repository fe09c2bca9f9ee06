package ingest

import "github.com/okian/pitchside/pkg/logger"

// Option configures tracker decoding.
type Option func(*decoder)

type decoder struct {
	log logger.Logger
}

func newDecoder(opts []Option) decoder {
	d := decoder{log: logger.Nop()}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithLogger reports rescaled and clamped tracker positions to l.
func WithLogger(l logger.Logger) Option {
	return func(d *decoder) {
		if l != nil {
			d.log = l
		}
	}
}
