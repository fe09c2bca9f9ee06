package tactics

import (
	"fmt"

	"github.com/okian/pitchside/internal/domain/model"
)

// Config holds the bucket size and every tactical threshold.
type Config struct {
	BucketSec float64 `koanf:"bucket_sec"`
	// MaxBuckets bounds how many consecutive buckets a timeline may span
	// before empty buckets are skipped.
	MaxBuckets int `koanf:"max_buckets"`
	// LineGapThreshold separates formation bands, as a fraction of pitch width.
	LineGapThreshold   float64 `koanf:"line_gap_threshold"`
	MinPositionSamples int     `koanf:"min_position_samples"`
	MinRoleEvents      int     `koanf:"min_role_events"`
	DefaultFormation   string  `koanf:"default_formation"`
	DefaultConfidence  float64 `koanf:"default_confidence"`
	// AttackRatio is how many times the opposite count a phase needs to dominate.
	AttackRatio       float64  `koanf:"attack_ratio"`
	PressureTurnovers int      `koanf:"pressure_turnovers"`
	HalfTimeSec       float64  `koanf:"half_time_sec"`
	Teams             []string `koanf:"teams"`

	BuildUpWindowSec    float64 `koanf:"build_up_window_sec"`
	FastBuildUpMps      float64 `koanf:"fast_build_up_mps"`
	ModerateBuildUpMps  float64 `koanf:"moderate_build_up_mps"`
	HighPressX          float64 `koanf:"high_press_x"`
	LowPressX           float64 `koanf:"low_press_x"`
	IntensityTurnovers  float64 `koanf:"intensity_turnovers"`
	DominantChannelPct  int     `koanf:"dominant_channel_pct"`
	WideFlanksPct       int     `koanf:"wide_flanks_pct"`
	OutfieldPlayers     int     `koanf:"outfield_players"`
	ThreeBandConfidence float64 `koanf:"three_band_confidence"`
	FourBandConfidence  float64 `koanf:"four_band_confidence"`
	FullSampleSize      int     `koanf:"full_sample_size"`
}

// DefaultConfig returns 300s buckets with the standard thresholds.
func DefaultConfig() Config {
	return Config{
		BucketSec:           300,
		MaxBuckets:          48,
		LineGapThreshold:    0.15,
		MinPositionSamples:  7,
		MinRoleEvents:       5,
		DefaultFormation:    "4-4-2",
		DefaultConfidence:   0.3,
		AttackRatio:         1.5,
		PressureTurnovers:   5,
		HalfTimeSec:         2700,
		Teams:               []string{model.TeamHome, model.TeamAway},
		BuildUpWindowSec:    10,
		FastBuildUpMps:      5,
		ModerateBuildUpMps:  2,
		HighPressX:          0.67,
		LowPressX:           0.33,
		IntensityTurnovers:  25,
		DominantChannelPct:  45,
		WideFlanksPct:       60,
		OutfieldPlayers:     10,
		ThreeBandConfidence: 0.8,
		FourBandConfidence:  0.7,
		FullSampleSize:      10,
	}
}

// Validate rejects configurations that cannot bucket or classify.
func (c Config) Validate() error {
	switch {
	case c.BucketSec <= 0:
		return fmt.Errorf("%w: bucket_sec must be positive, got %v", ErrInvalidConfig, c.BucketSec)
	case c.MaxBuckets <= 0:
		return fmt.Errorf("%w: max_buckets must be positive, got %d", ErrInvalidConfig, c.MaxBuckets)
	case c.LineGapThreshold <= 0 || c.LineGapThreshold >= 1:
		return fmt.Errorf("%w: line_gap_threshold must be in (0,1), got %v", ErrInvalidConfig, c.LineGapThreshold)
	case c.AttackRatio < 1:
		return fmt.Errorf("%w: attack_ratio must be at least 1, got %v", ErrInvalidConfig, c.AttackRatio)
	case c.DefaultFormation == "":
		return fmt.Errorf("%w: default_formation must be set", ErrInvalidConfig)
	case c.OutfieldPlayers < 4:
		return fmt.Errorf("%w: outfield_players must be at least 4, got %d", ErrInvalidConfig, c.OutfieldPlayers)
	case c.IntensityTurnovers <= 0 || c.FullSampleSize <= 0:
		return fmt.Errorf("%w: intensity_turnovers and full_sample_size must be positive", ErrInvalidConfig)
	case c.LowPressX >= c.HighPressX:
		return fmt.Errorf("%w: low_press_x must be below high_press_x", ErrInvalidConfig)
	}
	return nil
}
