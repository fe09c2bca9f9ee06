package tactics

import (
	"math"
	"sort"
	"strings"

	"github.com/okian/pitchside/internal/domain/model"
)

// Summary labels for half comparisons.
const (
	LabelFirstHalf  = "first_half"
	LabelSecondHalf = "second_half"
)

const substitutionMarker = "substitut"

// bucket is the slice of a frame that falls in one fixed time bucket.
type bucket struct {
	index    int
	start    float64
	end      float64
	events   []model.EnrichedEvent
	tracks   []model.TrackSample
	segments []model.TimeSegment
}

func (a *Analyzer) bucketOf(ts float64) int {
	return int(math.Floor(ts / a.cfg.BucketSec))
}

// bucketRange returns the bucket indices spanned by the frame, or the first
// bucket when the frame is empty. Spans up to MaxBuckets are contiguous so
// quiet stretches still get a state; longer spans keep only occupied buckets.
func (a *Analyzer) bucketRange(f frame) []int {
	if f.empty() {
		return []int{0}
	}
	occupied := make(map[int]struct{})
	lo, hi := math.MaxInt, math.MinInt
	mark := func(ts float64) {
		k := a.bucketOf(ts)
		occupied[k] = struct{}{}
		lo = min(lo, k)
		hi = max(hi, k)
	}
	for _, ev := range f.events {
		mark(ev.AbsoluteTimestamp)
	}
	for _, tr := range f.tracks {
		mark(tr.TimestampSec)
	}
	if hi-lo < a.cfg.MaxBuckets {
		ks := make([]int, 0, hi-lo+1)
		for k := lo; k <= hi; k++ {
			ks = append(ks, k)
		}
		return ks
	}
	ks := make([]int, 0, len(occupied))
	for k := range occupied {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}

func (a *Analyzer) collect(f frame, k int) bucket {
	b := bucket{index: k, start: float64(k) * a.cfg.BucketSec}
	b.end = b.start + a.cfg.BucketSec
	for _, ev := range f.events {
		if a.bucketOf(ev.AbsoluteTimestamp) == k {
			b.events = append(b.events, ev)
		}
	}
	for _, tr := range f.tracks {
		if a.bucketOf(tr.TimestampSec) == k {
			b.tracks = append(b.tracks, tr)
		}
	}
	for _, s := range f.segments {
		if s.StartSec < b.end && s.EndSec > b.start {
			b.segments = append(b.segments, s)
		}
	}
	return b
}

// run evaluates the state machine for team over the given buckets.
func (a *Analyzer) run(team string, f frame, ks []int) ([]model.FormationState, []model.FormationChange) {
	states := make([]model.FormationState, 0, len(ks))
	var changes []model.FormationChange
	for i, k := range ks {
		b := a.collect(f, k)
		st := a.formation(team, b)
		st.Phase = a.phase(team, b)
		st.TimestampSec = b.start
		states = append(states, st)
		if i == 0 {
			continue
		}
		prev := states[i-1]
		if prev.Formation == st.Formation {
			continue
		}
		changes = append(changes, model.FormationChange{
			From:         prev.Formation,
			To:           st.Formation,
			TimestampSec: st.TimestampSec,
			Trigger:      a.trigger(b),
			Confidence:   math.Min(prev.Confidence, st.Confidence),
		})
	}
	if changes == nil {
		changes = []model.FormationChange{}
	}
	return states, changes
}

func (a *Analyzer) teamTimeline(team string, f frame, ks []int) model.TeamTimeline {
	states, changes := a.run(team, f, ks)
	tl := model.TeamTimeline{
		Team:        team,
		States:      states,
		Changes:     changes,
		Variability: variability(states, len(changes)),
	}

	halves := []struct {
		label    string
		from, to float64
	}{
		{LabelFirstHalf, math.Inf(-1), a.cfg.HalfTimeSec},
		{LabelSecondHalf, a.cfg.HalfTimeSec, math.Inf(1)},
	}
	for _, h := range halves {
		sub := f.between(h.from, h.to)
		if sub.empty() {
			tl.Halves = append(tl.Halves, model.TimelineSummary{Label: h.label})
			continue
		}
		s, c := a.run(team, sub, a.bucketRange(sub))
		tl.Halves = append(tl.Halves, summarize(h.label, s, c))
	}

	for _, p := range []model.Phase{model.PhaseAttacking, model.PhaseDefending, model.PhaseTransition} {
		var pks []int
		for i, st := range states {
			if st.Phase == p {
				pks = append(pks, ks[i])
			}
		}
		if len(pks) == 0 {
			tl.Phases = append(tl.Phases, model.TimelineSummary{Label: string(p)})
			continue
		}
		s, c := a.run(team, f, pks)
		tl.Phases = append(tl.Phases, summarize(string(p), s, c))
	}
	return tl
}

// phase classifies the dominant phase of a bucket from team's point of view.
func (a *Analyzer) phase(team string, b bucket) model.Phase {
	for _, s := range b.segments {
		if s.Type == model.SegmentSetPiece {
			return model.PhaseSetPiece
		}
	}
	attacking, defending := 0, 0
	for _, ev := range b.events {
		switch {
		case ev.Type == model.EventSetPiece:
			return model.PhaseSetPiece
		case isAttackingAction(ev.Type):
			if ev.Team == team {
				attacking++
			} else {
				defending++
			}
		case ev.Type == model.EventTurnover && ev.Team == team && wonTurnover(ev):
			defending++
		}
	}
	switch {
	case float64(attacking) > a.cfg.AttackRatio*float64(defending):
		return model.PhaseAttacking
	case float64(defending) > a.cfg.AttackRatio*float64(attacking):
		return model.PhaseDefending
	default:
		return model.PhaseTransition
	}
}

// trigger names the most likely cause of a change landing in bucket b.
func (a *Analyzer) trigger(b bucket) model.Trigger {
	goal, turnovers := false, 0
	for _, s := range b.segments {
		if strings.Contains(strings.ToLower(s.Description), substitutionMarker) {
			return model.TriggerSubstitution
		}
		if s.Type == model.SegmentGoalMoment {
			goal = true
		}
	}
	for _, ev := range b.events {
		if strings.Contains(strings.ToLower(ev.Details.Notes), substitutionMarker) {
			return model.TriggerSubstitution
		}
		switch ev.Type {
		case model.EventShot:
			if ev.Details.Outcome == model.OutcomeGoal {
				goal = true
			}
		case model.EventTurnover:
			turnovers++
		}
	}
	switch {
	case goal:
		return model.TriggerGameState
	case turnovers > a.cfg.PressureTurnovers:
		return model.TriggerOpponentPressure
	default:
		return model.TriggerTacticalSwitch
	}
}

// variability is 0.4 x label diversity + 0.6 x change frequency, in [0,1].
func variability(states []model.FormationState, changes int) float64 {
	n := len(states)
	if n <= 1 {
		return 0
	}
	labels := make(map[string]struct{}, n)
	for _, s := range states {
		labels[s.Formation] = struct{}{}
	}
	span := float64(n - 1)
	diversity := float64(len(labels)-1) / span
	frequency := float64(changes) / span
	return math.Max(0, math.Min(1, 0.4*diversity+0.6*frequency))
}

func summarize(label string, states []model.FormationState, changes []model.FormationChange) model.TimelineSummary {
	s := model.TimelineSummary{
		Label:       label,
		Buckets:     len(states),
		Changes:     len(changes),
		Variability: variability(states, len(changes)),
	}
	if len(states) == 0 {
		return s
	}
	counts := make(map[string]int, len(states))
	best := 0
	var total float64
	for _, st := range states {
		counts[st.Formation]++
		total += st.Confidence
		// Ties keep the label that reached the count first.
		if counts[st.Formation] > best {
			best = counts[st.Formation]
			s.DominantFormation = st.Formation
		}
	}
	s.AverageConfidence = total / float64(len(states))
	return s
}

func isAttackingAction(t model.EventType) bool {
	return t == model.EventPass || t == model.EventCarry || t == model.EventShot
}

func wonTurnover(ev model.EnrichedEvent) bool {
	return ev.Type == model.EventTurnover && ev.Details.Outcome != model.OutcomeLost
}
