package enrich

import (
	"math"
	"sort"

	"github.com/okian/pitchside/internal/domain/model"
)

// ballTrack is a time-ordered ball trajectory.
type ballTrack struct {
	samples   []model.BallSample
	tolerance float64
}

func newBallTrack(samples []model.BallSample, tolerance float64) ballTrack {
	kept := make([]model.BallSample, 0, len(samples))
	for _, s := range samples {
		if finite(s.TimestampSec) && finite(s.Position.X) && finite(s.Position.Y) {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].TimestampSec < kept[j].TimestampSec })
	return ballTrack{samples: kept, tolerance: tolerance}
}

// at returns the ball position closest in time to ts, if one lies within the
// tolerance. Ties go to the earlier sample.
func (b ballTrack) at(ts float64) (model.Position, bool) {
	if len(b.samples) == 0 || !finite(ts) {
		return model.Position{}, false
	}
	i := sort.Search(len(b.samples), func(i int) bool { return b.samples[i].TimestampSec >= ts })
	best, gap := -1, math.Inf(1)
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(b.samples) {
			continue
		}
		if d := math.Abs(b.samples[j].TimestampSec - ts); d < gap {
			best, gap = j, d
		}
	}
	if best < 0 || gap > b.tolerance {
		return model.Position{}, false
	}
	return b.samples[best].Position, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
