package enrich

import (
	"fmt"
	"math"
)

// Config holds every enrichment threshold. Defaults are empirical and kept
// overridable.
type Config struct {
	// PassDirectionThreshold is the fraction of pitch length a pass must gain
	// or lose along the attack axis to count as forward or backward.
	PassDirectionThreshold float64 `koanf:"pass_direction_threshold"`
	// BallToleranceSec is how far in time a ball sample may sit from the
	// moment it stands in for.
	BallToleranceSec float64       `koanf:"ball_tolerance_sec"`
	Dribble          DribbleConfig `koanf:"dribble"`
	XG               XGConfig      `koanf:"xg"`
	Counter          CounterConfig `koanf:"counter"`
}

// DribbleConfig controls the weighted dribble score.
type DribbleConfig struct {
	MinDistanceMeters    float64 `koanf:"min_distance_m"`
	MaxDistanceMeters    float64 `koanf:"max_distance_m"`
	MinDurationSec       float64 `koanf:"min_duration_sec"`
	MaxDurationSec       float64 `koanf:"max_duration_sec"`
	MaxProgression       float64 `koanf:"max_progression"`
	DistanceWeight       float64 `koanf:"distance_weight"`
	DurationWeight       float64 `koanf:"duration_weight"`
	ProgressionWeight    float64 `koanf:"progression_weight"`
	ZoneChangeWeight     float64 `koanf:"zone_change_weight"`
	StrongThreshold      float64 `koanf:"strong_threshold"`
	ModerateThreshold    float64 `koanf:"moderate_threshold"`
	WeakThreshold        float64 `koanf:"weak_threshold"`
	UnknownDurationScore float64 `koanf:"unknown_duration_score"`
}

// XGConfig controls the expected-goal curve.
type XGConfig struct {
	CloseRangeMeters float64 `koanf:"close_range_m"`
	CloseRangeValue  float64 `koanf:"close_range_value"`
	FarRangeMeters   float64 `koanf:"far_range_m"`
	FarRangeValue    float64 `koanf:"far_range_value"`
	MinAngleDegrees  float64 `koanf:"min_angle_deg"`
	GoalAreaFloor    float64 `koanf:"goal_area_floor"`
	PenaltyAreaFloor float64 `koanf:"penalty_area_floor"`
	PenaltyValue     float64 `koanf:"penalty_value"`
	HeaderFactor     float64 `koanf:"header_factor"`
	VolleyFactor     float64 `koanf:"volley_factor"`
	ChipFactor       float64 `koanf:"chip_factor"`
	LongRangeFactor  float64 `koanf:"long_range_factor"`
	Min              float64 `koanf:"min"`
	Max              float64 `koanf:"max"`
}

// CounterConfig controls counter-attack detection.
type CounterConfig struct {
	MaxDurationSec    float64 `koanf:"max_duration_sec"`
	MinDistanceMeters float64 `koanf:"min_distance_m"`
	// MinShotX is the team-relative X a shot must reach; 2/3 is the attacking third.
	MinShotX float64 `koanf:"min_shot_x"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		PassDirectionThreshold: 0.10,
		BallToleranceSec:       0.5,
		Dribble: DribbleConfig{
			MinDistanceMeters:    5,
			MaxDistanceMeters:    15,
			MinDurationSec:       1.5,
			MaxDurationSec:       3,
			MaxProgression:       0.15,
			DistanceWeight:       0.4,
			DurationWeight:       0.3,
			ProgressionWeight:    0.2,
			ZoneChangeWeight:     0.1,
			StrongThreshold:      0.70,
			ModerateThreshold:    0.50,
			WeakThreshold:        0.35,
			UnknownDurationScore: 0.5,
		},
		XG: XGConfig{
			CloseRangeMeters: 5,
			CloseRangeValue:  0.6,
			FarRangeMeters:   30,
			FarRangeValue:    0.01,
			MinAngleDegrees:  30,
			GoalAreaFloor:    0.35,
			PenaltyAreaFloor: 0.08,
			PenaltyValue:     0.76,
			HeaderFactor:     0.8,
			VolleyFactor:     0.9,
			ChipFactor:       0.7,
			LongRangeFactor:  0.6,
			Min:              0.01,
			Max:              1.0,
		},
		Counter: CounterConfig{
			MaxDurationSec:    10,
			MinDistanceMeters: 20,
			MinShotX:          2.0 / 3.0,
		},
	}
}

// Validate rejects thresholds that would break the interpolations.
func (c Config) Validate() error {
	d, x := c.Dribble, c.XG
	switch {
	case c.PassDirectionThreshold < 0 || c.PassDirectionThreshold >= 1:
		return fmt.Errorf("%w: pass_direction_threshold must be in [0,1), got %v", ErrInvalidConfig, c.PassDirectionThreshold)
	case !(c.BallToleranceSec >= 0):
		return fmt.Errorf("%w: ball_tolerance_sec must be non-negative, got %v", ErrInvalidConfig, c.BallToleranceSec)
	case d.MaxDistanceMeters <= d.MinDistanceMeters || d.MaxDurationSec <= d.MinDurationSec || d.MaxProgression <= 0:
		return fmt.Errorf("%w: dribble ranges must be increasing", ErrInvalidConfig)
	case !(0 < d.WeakThreshold && d.WeakThreshold < d.ModerateThreshold && d.ModerateThreshold < d.StrongThreshold && d.StrongThreshold < 1):
		return fmt.Errorf("%w: dribble thresholds must satisfy 0 < weak < moderate < strong < 1", ErrInvalidConfig)
	case x.FarRangeMeters <= x.CloseRangeMeters || x.FarRangeValue <= 0 || x.CloseRangeValue <= x.FarRangeValue:
		return fmt.Errorf("%w: xg curve must decrease from close to far range", ErrInvalidConfig)
	case x.Min <= 0 || x.Max > 1 || x.Min >= x.Max:
		return fmt.Errorf("%w: xg bounds must satisfy 0 < min < max <= 1", ErrInvalidConfig)
	case c.Counter.MaxDurationSec <= 0 || c.Counter.MinDistanceMeters < 0:
		return fmt.Errorf("%w: counter thresholds must be positive", ErrInvalidConfig)
	}
	return nil
}

// decay returns the exponential rate that takes CloseRangeValue to FarRangeValue.
func (x XGConfig) decay() float64 {
	return math.Log(x.CloseRangeValue/x.FarRangeValue) / (x.FarRangeMeters - x.CloseRangeMeters)
}
