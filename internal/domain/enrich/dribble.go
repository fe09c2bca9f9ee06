package enrich

import (
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/pitch"
)

// Zone-change component scores.
const (
	zoneForwardScore  = 1.0
	zoneSameScore     = 0.5
	zoneBackwardScore = 0.3
	componentFloor    = 0.1
)

// Dribble is the classification of one carry.
type Dribble struct {
	Score      float64
	IsDribble  bool
	Strength   model.DribbleStrength
	Confidence float64
}

func (e *Enricher) classifyDribble(ev model.CanonicalEvent, end model.Position, distance float64) (Dribble, bool) {
	if ev.Position == nil {
		return Dribble{}, false
	}
	start := e.pitch.Relative(ev.Team, ev.AbsoluteTimestamp, *ev.Position)
	finish := e.pitch.Relative(ev.Team, ev.AbsoluteTimestamp, end)

	d := e.cfg.Dribble
	durationScore := d.UnknownDurationScore
	if ev.Details.DurationSec != nil {
		durationScore = ramp(*ev.Details.DurationSec, d.MinDurationSec, d.MaxDurationSec)
	}
	score := d.DistanceWeight*ramp(distance, d.MinDistanceMeters, d.MaxDistanceMeters) +
		d.DurationWeight*durationScore +
		d.ProgressionWeight*ramp(finish.X-start.X, 0, d.MaxProgression) +
		d.ZoneChangeWeight*zoneChange(start.X, finish.X)

	return d.Classify(score), true
}

// Classify maps a dribble score to a classification. Confidence is
// continuous in score across every threshold.
func (d DribbleConfig) Classify(score float64) Dribble {
	score = pitch.Clamp01(score)
	out := Dribble{Score: score}
	switch {
	case score >= d.StrongThreshold:
		out.IsDribble, out.Strength = true, model.DribbleStrong
		out.Confidence = lerp(score, d.StrongThreshold, 1, 0.85, 0.95)
	case score >= d.ModerateThreshold:
		out.IsDribble, out.Strength = true, model.DribbleModerate
		out.Confidence = lerp(score, d.ModerateThreshold, d.StrongThreshold, 0.75, 0.85)
	case score >= d.WeakThreshold:
		out.IsDribble, out.Strength = true, model.DribbleWeak
		out.Confidence = lerp(score, d.WeakThreshold, d.ModerateThreshold, 0.60, 0.75)
	default:
		// A low score is confident evidence of a simple carry.
		out.Strength = model.DribbleNone
		out.Confidence = lerp(score, 0, d.WeakThreshold, 0.90, 0.60)
	}
	return out
}

// ramp maps v onto [componentFloor, 1]: lo or below gives the floor, hi or above gives 1.
func ramp(v, lo, hi float64) float64 {
	switch {
	case v <= lo:
		return componentFloor
	case v >= hi:
		return 1
	default:
		return componentFloor + (v-lo)/(hi-lo)*(1-componentFloor)
	}
}

// lerp maps v in [lo,hi] linearly onto [from,to].
func lerp(v, lo, hi, from, to float64) float64 {
	if hi <= lo {
		return from
	}
	t := pitch.Clamp01((v - lo) / (hi - lo))
	return from + t*(to-from)
}

func zoneChange(startX, endX float64) float64 {
	rank := map[pitch.Third]int{pitch.ThirdDefensive: 0, pitch.ThirdMiddle: 1, pitch.ThirdAttacking: 2}
	from, to := rank[pitch.ThirdOf(startX)], rank[pitch.ThirdOf(endX)]
	switch {
	case to > from:
		return zoneForwardScore
	case to < from:
		return zoneBackwardScore
	default:
		return zoneSameScore
	}
}
