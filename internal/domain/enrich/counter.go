package enrich

import (
	"sort"

	"github.com/okian/pitchside/internal/domain/model"
)

// CounterAttacks finds won turnovers converted by the same team into a shot
// within MaxDurationSec, at least MinDistanceMeters away and reaching MinShotX.
// Each turnover counts its first qualifying shot; a shot anchors at most one
// counter-attack, credited to the latest turnover before it.
func (e *Enricher) CounterAttacks(events []model.EnrichedEvent) []model.CounterAttackEvent {
	sorted := append([]model.EnrichedEvent(nil), events...)
	SortTimeline(sorted)

	c := e.cfg.Counter
	byShot := make(map[int]model.CounterAttackEvent)
	var shots []int
	for i, t := range sorted {
		if t.Type != model.EventTurnover || t.Position == nil || t.Details.Outcome == model.OutcomeLost {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			s := sorted[j]
			elapsed := s.AbsoluteTimestamp - t.AbsoluteTimestamp
			if elapsed > c.MaxDurationSec {
				break
			}
			if s.Type != model.EventShot || s.Team != t.Team || s.Position == nil || elapsed <= 0 {
				continue
			}
			dist := e.pitch.DistanceMeters(*t.Position, *s.Position)
			rel := e.pitch.Relative(s.Team, s.AbsoluteTimestamp, *s.Position)
			if dist < c.MinDistanceMeters || rel.X < c.MinShotX {
				continue
			}
			if _, taken := byShot[j]; !taken {
				shots = append(shots, j)
			}
			// Later turnovers overwrite earlier ones for the same shot.
			byShot[j] = model.CounterAttackEvent{
				Team:             t.Team,
				StartTimestamp:   t.AbsoluteTimestamp,
				ShotTimestamp:    s.AbsoluteTimestamp,
				Duration:         elapsed,
				DistanceTraveled: dist,
				StartPosition:    *t.Position,
				ShotPosition:     *s.Position,
				XG:               s.XG,
			}
			break
		}
	}

	sort.Ints(shots)
	out := make([]model.CounterAttackEvent, 0, len(shots))
	for _, j := range shots {
		out = append(out, byShot[j])
	}
	return out
}

// CounterAttacks detects counter-attacks with the default configuration.
func CounterAttacks(events []model.EnrichedEvent) []model.CounterAttackEvent {
	return Default().CounterAttacks(events)
}
