// Package enrich derives per-event analytics from canonical events: pass
// direction, carry distance, dribble classification, expected goals and
// counter-attacks. A derived field is omitted whenever its inputs are missing.
package enrich

import (
	"context"
	"sort"

	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/pitch"
	"github.com/okian/pitchside/pkg/logger"
)

// Enriched field names reported in Stats.
const (
	FieldPassDirection = "pass_direction"
	FieldCarryDistance = "carry_distance"
	FieldDribble       = "dribble"
	FieldXG            = "xg"
	// FieldBallAssisted counts pass directions and carry ends resolved from
	// the ball trajectory.
	FieldBallAssisted = "ball_assisted"
)

// Stats counts populated fields by name.
type Stats struct {
	Events int            `json:"events"`
	Fields map[string]int `json:"fields"`
}

// Enricher derives analytics for one configuration.
type Enricher struct {
	cfg   Config
	pitch pitch.Pitch
	log   logger.Logger
}

// New validates cfg and returns an Enricher.
func New(cfg Config, opts ...Option) (*Enricher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Enricher{cfg: cfg, pitch: pitch.Default(), log: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Default returns an Enricher with the default configuration.
func Default() *Enricher {
	e, _ := New(DefaultConfig())
	return e
}

// Enrich enriches canonical events with the default configuration.
func Enrich(canonical []model.CanonicalEvent) []model.EnrichedEvent {
	out, _ := Default().Enrich(context.Background(), canonical)
	return out
}

// Config returns the enricher configuration.
func (e *Enricher) Config() Config { return e.cfg }

// Enrich derives analytics for every event. Output is in timeline order and
// canonical fields are copied unchanged.
func (e *Enricher) Enrich(ctx context.Context, canonical []model.CanonicalEvent) ([]model.EnrichedEvent, Stats) {
	return e.EnrichWith(ctx, canonical, nil)
}

// EnrichWith is Enrich with a ball trajectory to fall back on where an event
// lacks the position a derivation needs.
func (e *Enricher) EnrichWith(ctx context.Context, canonical []model.CanonicalEvent, ball []model.BallSample) ([]model.EnrichedEvent, Stats) {
	track := newBallTrack(ball, e.cfg.BallToleranceSec)
	events := make([]model.EnrichedEvent, len(canonical))
	for i, c := range canonical {
		events[i] = model.EnrichedEvent{CanonicalEvent: c}
	}
	SortTimeline(events)

	stats := Stats{Events: len(events), Fields: map[string]int{}}
	for i := range events {
		ev := &events[i]
		switch ev.Type {
		case model.EventPass:
			if dir, fromBall, ok := e.passDirection(events, i, track); ok {
				ev.PassDirection = dir
				stats.Fields[FieldPassDirection]++
				if fromBall {
					stats.Fields[FieldBallAssisted]++
				}
			}
		case model.EventCarry:
			end, fromBall, ok := e.endPosition(ev.CanonicalEvent, track)
			if !ok || ev.Position == nil {
				continue
			}
			if fromBall {
				stats.Fields[FieldBallAssisted]++
			}
			dist := e.pitch.DistanceMeters(*ev.Position, end)
			ev.CarryDistanceMeters = model.Float64Ptr(dist)
			stats.Fields[FieldCarryDistance]++
			if d, ok := e.classifyDribble(ev.CanonicalEvent, end, dist); ok {
				ev.IsDribble = model.BoolPtr(d.IsDribble)
				ev.DribbleScore = model.Float64Ptr(d.Score)
				ev.DribbleStrength = d.Strength
				ev.DribbleConfidence = model.Float64Ptr(d.Confidence)
				stats.Fields[FieldDribble]++
			}
		case model.EventShot:
			if xg, factors, ok := e.expectedGoal(ev.CanonicalEvent); ok {
				ev.XG = model.Float64Ptr(xg)
				ev.XGFactors = factors
				stats.Fields[FieldXG]++
			}
		case model.EventTurnover, model.EventSetPiece:
		}
	}

	e.log.Debug(ctx, "enriched events",
		logger.Int("events", stats.Events),
		logger.Int("pass_directions", stats.Fields[FieldPassDirection]),
		logger.Int("carries", stats.Fields[FieldCarryDistance]),
		logger.Int("shots", stats.Fields[FieldXG]),
		logger.Int("ball_assisted", stats.Fields[FieldBallAssisted]))
	return events, stats
}

// SortTimeline orders events by timestamp, then type, team and id.
func SortTimeline(events []model.EnrichedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.AbsoluteTimestamp != b.AbsoluteTimestamp {
			return a.AbsoluteTimestamp < b.AbsoluteTimestamp
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		return a.ID < b.ID
	})
}

// passDirection compares a pass with the next event of the same team. When
// that event has no position the ball position at its timestamp stands in.
func (e *Enricher) passDirection(events []model.EnrichedEvent, i int, ball ballTrack) (model.PassDirection, bool, bool) {
	cur := events[i]
	if cur.Position == nil {
		return "", false, false
	}
	for _, next := range events[i+1:] {
		if next.Team != cur.Team {
			continue
		}
		target, fromBall := next.Position, false
		if target == nil {
			p, ok := ball.at(next.AbsoluteTimestamp)
			if !ok {
				return model.PassLateral, false, true
			}
			target, fromBall = &p, true
		}
		dx := (target.X - cur.Position.X) * e.pitch.Direction(cur.Team, cur.AbsoluteTimestamp)
		switch {
		case dx > e.cfg.PassDirectionThreshold:
			return model.PassForward, fromBall, true
		case dx < -e.cfg.PassDirectionThreshold:
			return model.PassBackward, fromBall, true
		default:
			return model.PassLateral, fromBall, true
		}
	}
	return model.PassLateral, false, true
}

// endPosition resolves where a carry ended: the explicit end position, else
// the ball at the end of a carry of known duration, else the centre of the
// named end zone. The second result reports a ball-derived end.
func (e *Enricher) endPosition(ev model.CanonicalEvent, ball ballTrack) (model.Position, bool, bool) {
	if ev.Details.EndPosition != nil {
		return *ev.Details.EndPosition, false, true
	}
	if d := ev.Details.DurationSec; d != nil {
		if p, ok := ball.at(ev.AbsoluteTimestamp + *d); ok {
			return p, true, true
		}
	}
	rel, ok := pitch.ZoneCenter(ev.Details.EndZone)
	if !ok {
		return model.Position{}, false, false
	}
	return e.pitch.Absolute(ev.Team, ev.AbsoluteTimestamp, rel), false, true
}
