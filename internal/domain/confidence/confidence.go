// Package confidence combines independent evidence signals into one calibrated
// confidence, a quality tier and a review flag.
package confidence

import "fmt"

// Tier is a coarse quality band.
type Tier string

// Quality tiers.
const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Default weights and thresholds.
const (
	DefaultDetectionWeight = 0.5
	DefaultMatchingWeight  = 0.25
	DefaultTemporalWeight  = 0.25
	DefaultHighThreshold   = 0.8
	DefaultMediumThreshold = 0.6
)

// Signals are the three independent 0..1 evidence inputs.
type Signals struct {
	Detection float64 `json:"detection"`
	Matching  float64 `json:"matching"`
	Temporal  float64 `json:"temporal"`
}

// Assessment is the combined result.
type Assessment struct {
	Overall     float64  `json:"overall"`
	Tier        Tier     `json:"tier"`
	Reasons     []string `json:"reasons,omitempty"`
	NeedsReview bool     `json:"needsReview"`
}

// Config holds weights and tier thresholds.
type Config struct {
	DetectionWeight float64 `koanf:"detection_weight"`
	MatchingWeight  float64 `koanf:"matching_weight"`
	TemporalWeight  float64 `koanf:"temporal_weight"`
	HighThreshold   float64 `koanf:"high_threshold"`
	MediumThreshold float64 `koanf:"medium_threshold"`
}

// DefaultConfig returns the standard weights 0.5/0.25/0.25 and tiers 0.8/0.6.
func DefaultConfig() Config {
	return Config{
		DetectionWeight: DefaultDetectionWeight,
		MatchingWeight:  DefaultMatchingWeight,
		TemporalWeight:  DefaultTemporalWeight,
		HighThreshold:   DefaultHighThreshold,
		MediumThreshold: DefaultMediumThreshold,
	}
}

// Validate rejects negative weights, an all-zero weighting and thresholds
// outside [0,1] or out of order.
func (c Config) Validate() error {
	switch {
	case c.DetectionWeight < 0 || c.MatchingWeight < 0 || c.TemporalWeight < 0:
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
	case c.DetectionWeight+c.MatchingWeight+c.TemporalWeight == 0:
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidConfig)
	case c.MediumThreshold < 0 || c.HighThreshold > 1 || c.MediumThreshold >= c.HighThreshold:
		return fmt.Errorf("%w: thresholds must satisfy 0 <= medium < high <= 1, got %v/%v",
			ErrInvalidConfig, c.MediumThreshold, c.HighThreshold)
	}
	return nil
}

// Calculate combines signals using the default configuration.
func Calculate(s Signals) Assessment {
	return DefaultConfig().Calculate(s)
}

// Calculate combines signals into an Assessment. Inputs are clamped to [0,1].
func (c Config) Calculate(s Signals) Assessment {
	d, m, t := clamp01(s.Detection), clamp01(s.Matching), clamp01(s.Temporal)

	total := c.DetectionWeight + c.MatchingWeight + c.TemporalWeight
	overall := 0.0
	if total > 0 {
		overall = clamp01((d*c.DetectionWeight + m*c.MatchingWeight + t*c.TemporalWeight) / total)
	}

	a := Assessment{Overall: overall, Tier: c.tier(overall)}
	if d < c.MediumThreshold {
		a.Reasons = append(a.Reasons, fmt.Sprintf("low detection confidence (%.2f)", d))
	}
	if m < c.MediumThreshold {
		a.Reasons = append(a.Reasons, fmt.Sprintf("weak corroboration (%.2f)", m))
	}
	if t < c.MediumThreshold {
		a.Reasons = append(a.Reasons, fmt.Sprintf("inconsistent timing (%.2f)", t))
	}
	a.NeedsReview = overall < c.MediumThreshold
	return a
}

func (c Config) tier(overall float64) Tier {
	switch {
	case overall >= c.HighThreshold:
		return TierHigh
	case overall >= c.MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

func clamp01(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
