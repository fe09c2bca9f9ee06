// Package config defines process configuration and its loading.
//
// Each domain component owns its Config type; this package nests them under
// one root so a single YAML file or environment layer can override any
// threshold, and validates the combination before anything starts.
package config

import (
	"fmt"
	"time"

	"github.com/okian/pitchside/internal/domain/confidence"
	"github.com/okian/pitchside/internal/domain/dedupe"
	"github.com/okian/pitchside/internal/domain/enrich"
	"github.com/okian/pitchside/internal/domain/pitch"
	"github.com/okian/pitchside/internal/domain/tactics"
	"github.com/okian/pitchside/internal/domain/window"
	"github.com/okian/pitchside/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches log records to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	Window     window.Config     `koanf:"window"`
	Dedupe     dedupe.Config     `koanf:"dedupe"`
	Confidence confidence.Config `koanf:"confidence"`
	Enrich     enrich.Config     `koanf:"enrich"`
	Tactics    tactics.Config    `koanf:"tactics"`
	Pitch      pitch.Config      `koanf:"pitch"`
	Dispatch   Dispatch          `koanf:"dispatch"`
	Storage    Storage           `koanf:"storage"`
}

// Dispatch configures how windows are sent to the annotator.
type Dispatch struct {
	// QueueSize bounds the in-memory window queue.
	QueueSize int `koanf:"queue_size"`
	// Concurrency is the number of windows annotated at once.
	Concurrency int `koanf:"concurrency"`
	// Timeout bounds a single annotator call.
	Timeout time.Duration `koanf:"timeout"`
	// MaxAttempts includes the first call.
	MaxAttempts  int           `koanf:"max_attempts"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
	// SeenSize bounds the set of window ids already dispatched.
	SeenSize int `koanf:"seen_size"`
}

// Storage configures the analysis store.
type Storage struct {
	// DSN is the SQLite data source; empty disables persistence.
	DSN string `koanf:"dsn"`
}

// New returns a Config holding every default.
func New() *Config {
	return &Config{
		LogLevel:   "info",
		Addr:       ":9080",
		Window:     window.DefaultConfig(),
		Dedupe:     dedupe.DefaultConfig(),
		Confidence: confidence.DefaultConfig(),
		Enrich:     enrich.DefaultConfig(),
		Tactics:    tactics.DefaultConfig(),
		Pitch:      pitch.DefaultConfig(),
		Dispatch: Dispatch{
			QueueSize:    1024,
			Concurrency:  5,
			Timeout:      60 * time.Second,
			MaxAttempts:  3,
			RetryBackoff: 500 * time.Millisecond,
			SeenSize:     50_000,
		},
		Storage: Storage{DSN: "pitchside.db"},
	}
}

// Validate checks every section and wraps the first failure in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	sections := []struct {
		name     string
		validate func() error
	}{
		{"window", c.Window.Validate},
		{"dedupe", c.Dedupe.Validate},
		{"confidence", c.Confidence.Validate},
		{"enrich", c.Enrich.Validate},
		{"tactics", c.Tactics.Validate},
		{"dispatch", c.Dispatch.Validate},
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, s.name, err)
		}
	}
	return nil
}

// Validate rejects a dispatch layer that could never make progress.
func (d Dispatch) Validate() error {
	switch {
	case d.QueueSize <= 0:
		return fmt.Errorf("queue_size must be positive, got %d", d.QueueSize)
	case d.Concurrency <= 0:
		return fmt.Errorf("concurrency must be positive, got %d", d.Concurrency)
	case d.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %s", d.Timeout)
	case d.MaxAttempts <= 0:
		return fmt.Errorf("max_attempts must be positive, got %d", d.MaxAttempts)
	case d.RetryBackoff < 0:
		return fmt.Errorf("retry_backoff must not be negative, got %s", d.RetryBackoff)
	}
	return nil
}
