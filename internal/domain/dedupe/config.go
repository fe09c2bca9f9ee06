package dedupe

import "fmt"

// Default merge tolerances and confidence bonuses.
const (
	DefaultTimeToleranceSec        = 4.0
	DefaultDistanceToleranceMeters = 10.0
	DefaultMergeBonus              = 0.1
	DefaultUnpositionedBonus       = 0.05
	// DefaultMaxMatchSec covers extra time, stoppages and a shootout.
	DefaultMaxMatchSec = 3 * 3600.0
)

// Config controls when two detections are treated as one action.
type Config struct {
	TimeToleranceSec        float64 `koanf:"time_tolerance_sec"`
	DistanceToleranceMeters float64 `koanf:"distance_tolerance_m"`
	// MergeBonus is added per extra contributor that carried a position.
	MergeBonus float64 `koanf:"merge_bonus"`
	// UnpositionedBonus is added per extra contributor when positions are missing.
	UnpositionedBonus float64 `koanf:"unpositioned_bonus"`
	// MaxMatchSec is the latest plausible match timestamp; later events are dropped.
	MaxMatchSec float64 `koanf:"max_match_sec"`
}

// DefaultConfig returns a 4s / 10m tolerance with 0.1 and 0.05 bonuses and a
// three hour match horizon.
func DefaultConfig() Config {
	return Config{
		TimeToleranceSec:        DefaultTimeToleranceSec,
		DistanceToleranceMeters: DefaultDistanceToleranceMeters,
		MergeBonus:              DefaultMergeBonus,
		UnpositionedBonus:       DefaultUnpositionedBonus,
		MaxMatchSec:             DefaultMaxMatchSec,
	}
}

// Validate checks tolerances and bonuses.
func (c Config) Validate() error {
	switch {
	case c.TimeToleranceSec <= 0:
		return fmt.Errorf("%w: time_tolerance_sec must be positive, got %v", ErrInvalidConfig, c.TimeToleranceSec)
	case c.DistanceToleranceMeters <= 0:
		return fmt.Errorf("%w: distance_tolerance_m must be positive, got %v", ErrInvalidConfig, c.DistanceToleranceMeters)
	case c.MaxMatchSec <= 0:
		return fmt.Errorf("%w: max_match_sec must be positive, got %v", ErrInvalidConfig, c.MaxMatchSec)
	case c.UnpositionedBonus < 0 || c.MergeBonus < c.UnpositionedBonus:
		return fmt.Errorf("%w: bonuses must satisfy 0 <= unpositioned_bonus <= merge_bonus", ErrInvalidConfig)
	}
	return nil
}
