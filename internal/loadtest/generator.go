// Package loadtest generates synthetic matches with known ground truth and
// drives them through a running pitchside server.
package loadtest

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/window"
)

const (
	// edgeMarginSec keeps actions away from window edges so jitter never
	// moves a detection out of the window that reported it.
	edgeMarginSec = 1.0
	segmentGapSec = 5.0
	positionNoise = 0.005
)

var segmentCycle = []model.SegmentType{ //nolint:gochecknoglobals // constant cycle
	model.SegmentActivePlay,
	model.SegmentActivePlay,
	model.SegmentSetPiece,
	model.SegmentActivePlay,
	model.SegmentGoalMoment,
}

// Planner plans analysis windows for segments.
type Planner interface {
	Plan(ctx context.Context, segments []model.TimeSegment) ([]model.AnalysisWindow, window.Stats)
}

// Action is one ground-truth action of a synthetic match.
type Action struct {
	Timestamp float64
	Type      model.EventType
	Team      string
	Player    string
	Position  model.Position
	Details   model.Details
}

// Detection is one annotator record for a window, in the reply wire shape.
type Detection struct {
	Timestamp  float64        `json:"timestamp"`
	Type       string         `json:"type"`
	Team       string         `json:"team"`
	Player     string         `json:"player,omitempty"`
	Position   model.Position `json:"position"`
	Confidence float64        `json:"confidence"`
	Details    model.Details  `json:"details"`
}

// Match is one synthetic match with its planned windows, the actions that
// happened and what each window's annotator reported.
type Match struct {
	ID       string
	Segments []model.TimeSegment
	Windows  []model.AnalysisWindow
	Truth    []Action
	Replies  map[string][]Detection
}

// Detections counts the records across all replies.
func (m Match) Detections() int {
	n := 0
	for _, r := range m.Replies {
		n += len(r)
	}
	return n
}

// Recording is the file shape read by the analyze command.
type Recording struct {
	MatchID  string                 `json:"matchId"`
	Segments []model.TimeSegment    `json:"segments"`
	Replies  map[string][]Detection `json:"replies"`
}

// Recording returns the match as a replayable recording.
func (m Match) Recording() Recording {
	return Recording{MatchID: m.ID, Segments: m.Segments, Replies: m.Replies}
}

// Generate builds a deterministic synthetic match. Every action is reported
// by each window that covers it, except that one of several covering windows
// may miss it; no action is missed everywhere, so reconciliation should
// recover exactly the ground truth.
func Generate(ctx context.Context, p Planner, matchID string, cfg Config, seed uint64) (Match, error) {
	if err := cfg.validateShape(); err != nil {
		return Match{}, err
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible test data

	m := Match{ID: matchID, Replies: make(map[string][]Detection)}
	start := 0.0
	for i := 0; i < cfg.SegmentsPerMatch; i++ {
		m.Segments = append(m.Segments, model.TimeSegment{
			ID:         fmt.Sprintf("%s-s%02d", matchID, i+1),
			StartSec:   start,
			EndSec:     start + cfg.SegmentSec,
			Type:       segmentCycle[i%len(segmentCycle)],
			Confidence: 0.8 + 0.2*rng.Float64(),
		})
		start += cfg.SegmentSec + segmentGapSec
	}

	m.Windows, _ = p.Plan(ctx, m.Segments)
	if len(m.Windows) == 0 {
		return Match{}, fmt.Errorf("%w: no windows planned for %s", ErrInvalidConfig, matchID)
	}

	for _, seg := range m.Segments {
		for t := seg.StartSec + edgeMarginSec + rng.Float64(); t < seg.EndSec-edgeMarginSec; t += cfg.EventGapSec + rng.Float64()*cfg.EventGapSec/2 {
			covering := coveringWindows(m.Windows, t)
			if len(covering) == 0 {
				continue
			}
			act := newAction(rng, t)
			m.Truth = append(m.Truth, act)

			missed := -1
			if len(covering) > 1 && rng.Float64() < cfg.MissRate {
				missed = rng.IntN(len(covering))
			}
			for i, w := range covering {
				if i == missed {
					continue
				}
				m.Replies[w.ID] = append(m.Replies[w.ID], detect(rng, act, cfg.JitterSec))
			}
		}
	}
	return m, nil
}

func (c Config) validateShape() error {
	switch {
	case c.SegmentsPerMatch <= 0:
		return fmt.Errorf("%w: segments per match must be positive", ErrInvalidConfig)
	case c.SegmentSec <= 2*edgeMarginSec:
		return fmt.Errorf("%w: segment length %v is too short", ErrInvalidConfig, c.SegmentSec)
	case c.EventGapSec <= 0:
		return fmt.Errorf("%w: event gap must be positive", ErrInvalidConfig)
	case c.JitterSec < 0 || c.JitterSec >= edgeMarginSec:
		return fmt.Errorf("%w: jitter must be in [0, %v)", ErrInvalidConfig, edgeMarginSec)
	case c.MissRate < 0 || c.MissRate > 1:
		return fmt.Errorf("%w: miss rate must be in [0, 1]", ErrInvalidConfig)
	}
	return nil
}

// coveringWindows returns the windows holding t at least edgeMarginSec from both edges.
func coveringWindows(windows []model.AnalysisWindow, t float64) []model.AnalysisWindow {
	var out []model.AnalysisWindow
	for _, w := range windows {
		if t-w.AbsoluteStart >= edgeMarginSec && w.AbsoluteEnd-t >= edgeMarginSec {
			out = append(out, w)
		}
	}
	return out
}

func newAction(rng *rand.Rand, t float64) Action {
	team := model.TeamHome
	if rng.IntN(2) == 1 {
		team = model.TeamAway
	}
	// Home attacks toward x = 1.
	forward := 1.0
	if team == model.TeamAway {
		forward = -1
	}
	act := Action{
		Timestamp: t,
		Team:      team,
		Player:    fmt.Sprintf("%s-%d", team, 1+rng.IntN(11)),
		Position:  model.Position{X: 0.1 + 0.8*rng.Float64(), Y: 0.1 + 0.8*rng.Float64()},
	}

	switch rng.IntN(5) {
	case 0, 1:
		act.Type = model.EventPass
		act.Details.Outcome = model.OutcomeComplete
		if rng.Float64() < 0.2 {
			act.Details.Outcome = model.OutcomeIncomplete
		}
		end := shift(act.Position, forward*0.15*rng.Float64(), 0.3*(rng.Float64()-0.5))
		act.Details.EndPosition = &end
	case 2:
		act.Type = model.EventCarry
		end := shift(act.Position, forward*0.1*rng.Float64(), 0.1*(rng.Float64()-0.5))
		act.Details.EndPosition = &end
		d := 1 + 3*rng.Float64()
		act.Details.DurationSec = &d
	case 3:
		act.Type = model.EventShot
		act.Position.X = 0.5 + forward*(0.3+0.15*rng.Float64())
		act.Details.Outcome = []string{model.OutcomeSaved, model.OutcomeOffTarget, model.OutcomeGoal}[rng.IntN(3)]
	default:
		act.Type = model.EventTurnover
		act.Details.Outcome = model.OutcomeWon
	}
	return act
}

func detect(rng *rand.Rand, act Action, jitter float64) Detection {
	d := Detection{
		Timestamp:  act.Timestamp + jitter*(2*rng.Float64()-1),
		Type:       string(act.Type),
		Team:       act.Team,
		Player:     act.Player,
		Position:   shift(act.Position, positionNoise*(2*rng.Float64()-1), positionNoise*(2*rng.Float64()-1)),
		Confidence: 0.6 + 0.35*rng.Float64(),
		Details:    act.Details,
	}
	return d
}

func shift(p model.Position, dx, dy float64) model.Position {
	return model.Position{X: clamp01(p.X + dx), Y: clamp01(p.Y + dy)}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
