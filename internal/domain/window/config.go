package window

import (
	"fmt"

	"github.com/okian/pitchside/internal/domain/model"
)

// Default planner configuration.
const (
	DefaultLengthSec            = 60.0
	DefaultOverlapSec           = 15.0
	DefaultSampleRate           = 1.0
	DefaultMaxWindowsPerSegment = 200
	DefaultMinSegmentSec        = 10.0
	DefaultMergeGapSec          = 2.0
)

// Config controls window sizing and segment consolidation.
type Config struct {
	LengthSec  float64 `koanf:"length_sec"`
	OverlapSec float64 `koanf:"overlap_sec"`
	// SampleRateByType maps a segment type to frames per second requested from the annotator.
	SampleRateByType     map[string]float64 `koanf:"sample_rate_by_type"`
	DefaultSampleRate    float64            `koanf:"default_sample_rate"`
	SkipTypes            []string           `koanf:"skip_types"`
	MaxWindowsPerSegment int                `koanf:"max_windows_per_segment"`
	MinSegmentSec        float64            `koanf:"min_segment_sec"`
	MergeGapSec          float64            `koanf:"merge_gap_sec"`
}

// DefaultConfig returns 60s windows with 15s overlap, skipping replays.
func DefaultConfig() Config {
	return Config{
		LengthSec:  DefaultLengthSec,
		OverlapSec: DefaultOverlapSec,
		SampleRateByType: map[string]float64{
			string(model.SegmentGoalMoment): 2.0,
			string(model.SegmentSetPiece):   1.5,
			string(model.SegmentActivePlay): 1.0,
			string(model.SegmentStoppage):   0.5,
			string(model.SegmentReplay):     0.25,
		},
		DefaultSampleRate:    DefaultSampleRate,
		SkipTypes:            []string{string(model.SegmentReplay)},
		MaxWindowsPerSegment: DefaultMaxWindowsPerSegment,
		MinSegmentSec:        DefaultMinSegmentSec,
		MergeGapSec:          DefaultMergeGapSec,
	}
}

// Validate rejects configurations whose slide step would not advance.
func (c Config) Validate() error {
	switch {
	case c.LengthSec <= 0:
		return fmt.Errorf("%w: length_sec must be positive, got %v", ErrInvalidConfig, c.LengthSec)
	case c.OverlapSec < 0:
		return fmt.Errorf("%w: overlap_sec must not be negative, got %v", ErrInvalidConfig, c.OverlapSec)
	case c.OverlapSec >= c.LengthSec:
		return fmt.Errorf("%w: overlap_sec %v must be less than length_sec %v", ErrInvalidConfig, c.OverlapSec, c.LengthSec)
	case c.MaxWindowsPerSegment < 1:
		return fmt.Errorf("%w: max_windows_per_segment must be at least 1, got %d", ErrInvalidConfig, c.MaxWindowsPerSegment)
	case c.MinSegmentSec < 0 || c.MergeGapSec < 0:
		return fmt.Errorf("%w: consolidation thresholds must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Step returns the slide between consecutive window starts.
func (c Config) Step() float64 {
	return c.LengthSec - c.OverlapSec
}

func (c Config) sampleRate(t model.SegmentType) float64 {
	if r, ok := c.SampleRateByType[string(t)]; ok && r > 0 {
		return r
	}
	if c.DefaultSampleRate > 0 {
		return c.DefaultSampleRate
	}
	return DefaultSampleRate
}

func (c Config) skipped(t model.SegmentType) bool {
	for _, s := range c.SkipTypes {
		if s == string(t) {
			return true
		}
	}
	return false
}
