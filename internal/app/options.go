package service

import (
	"time"

	"github.com/okian/pitchside/internal/adapters/mq/worker"
	"github.com/okian/pitchside/internal/adapters/repository"
	"github.com/okian/pitchside/internal/config"
	"github.com/okian/pitchside/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg config.Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithAnnotator sets the annotator that Run dispatches windows to.
func WithAnnotator(a worker.Annotator) Option {
	return func(s *Service) {
		s.annotator = a
	}
}

// WithStore persists every reconciled analysis.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithClock sets the source of audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
