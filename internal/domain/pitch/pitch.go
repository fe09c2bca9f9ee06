// Package pitch provides geometry over the normalized pitch: distances,
// thirds, channels, named zones and team attack orientation.
//
// Coordinates are normalized to [0,1]x[0,1] with X along the pitch length
// and Y across its width. "Relative" coordinates are expressed from the
// point of view of a team attacking towards X=1, with Y=0 on its left.
package pitch

import (
	"math"

	"github.com/okian/pitchside/internal/domain/model"
)

// Standard pitch and goal dimensions in meters.
const (
	DefaultLengthMeters = 105.0
	DefaultWidthMeters  = 68.0
	DefaultHalfTimeSec  = 2700.0

	GoalWidthMeters         = 7.32
	GoalAreaDepthMeters     = 5.5
	GoalAreaWidthMeters     = 18.32
	PenaltyAreaDepthMeters  = 16.5
	PenaltyAreaWidthMeters  = 40.32
	thirdBoundaryLow        = 1.0 / 3.0
	thirdBoundaryHigh       = 2.0 / 3.0
	attackingThirdBoundary  = thirdBoundaryHigh
	defaultAttackPositiveID = model.TeamHome
)

// Config describes pitch dimensions and which way teams attack.
type Config struct {
	LengthMeters float64 `koanf:"length_m"`
	WidthMeters  float64 `koanf:"width_m"`
	// AttackPositiveTeam attacks towards X=1 in the first half; every other team attacks towards X=0.
	AttackPositiveTeam string `koanf:"attack_positive_team"`
	// SwitchAtHalfTime mirrors attack directions for timestamps at or after HalfTimeSec.
	SwitchAtHalfTime bool    `koanf:"switch_at_half_time"`
	HalfTimeSec      float64 `koanf:"half_time_sec"`
}

// DefaultConfig returns a 105x68m pitch with home attacking +X for the whole match.
func DefaultConfig() Config {
	return Config{
		LengthMeters:       DefaultLengthMeters,
		WidthMeters:        DefaultWidthMeters,
		AttackPositiveTeam: defaultAttackPositiveID,
		HalfTimeSec:        DefaultHalfTimeSec,
	}
}

// Pitch performs geometry for one pitch configuration.
type Pitch struct {
	cfg Config
}

// New returns a Pitch, filling zero dimensions with defaults.
func New(cfg Config) Pitch {
	if cfg.LengthMeters <= 0 {
		cfg.LengthMeters = DefaultLengthMeters
	}
	if cfg.WidthMeters <= 0 {
		cfg.WidthMeters = DefaultWidthMeters
	}
	if cfg.AttackPositiveTeam == "" {
		cfg.AttackPositiveTeam = defaultAttackPositiveID
	}
	if cfg.HalfTimeSec <= 0 {
		cfg.HalfTimeSec = DefaultHalfTimeSec
	}
	return Pitch{cfg: cfg}
}

// Default returns the standard pitch.
func Default() Pitch { return New(DefaultConfig()) }

// Length returns the pitch length in meters.
func (p Pitch) Length() float64 { return p.cfg.LengthMeters }

// Width returns the pitch width in meters.
func (p Pitch) Width() float64 { return p.cfg.WidthMeters }

// DistanceMeters returns the straight-line distance between two normalized points.
func (p Pitch) DistanceMeters(a, b model.Position) float64 {
	dx := (a.X - b.X) * p.cfg.LengthMeters
	dy := (a.Y - b.Y) * p.cfg.WidthMeters
	return math.Hypot(dx, dy)
}

// Direction returns +1 when team attacks towards X=1 at ts, else -1.
func (p Pitch) Direction(team string, ts float64) float64 {
	dir := -1.0
	if team == p.cfg.AttackPositiveTeam {
		dir = 1.0
	}
	if p.cfg.SwitchAtHalfTime && ts >= p.cfg.HalfTimeSec {
		dir = -dir
	}
	return dir
}

// Relative converts an absolute position into team-relative coordinates.
func (p Pitch) Relative(team string, ts float64, pos model.Position) model.Position {
	if p.Direction(team, ts) > 0 {
		return pos
	}
	return model.Position{X: 1 - pos.X, Y: 1 - pos.Y}
}

// Absolute converts a team-relative position back into absolute coordinates.
func (p Pitch) Absolute(team string, ts float64, rel model.Position) model.Position {
	// The mirror is its own inverse.
	return p.Relative(team, ts, rel)
}

// GoalDistanceMeters returns the distance from a relative position to the centre of the goal being attacked.
func (p Pitch) GoalDistanceMeters(rel model.Position) float64 {
	return p.DistanceMeters(rel, model.Position{X: 1, Y: 0.5})
}

// GoalAngle returns the angle in radians subtended by the goal mouth from a relative position.
func (p Pitch) GoalAngle(rel model.Position) float64 {
	dx := (1 - rel.X) * p.cfg.LengthMeters
	dy := (rel.Y - 0.5) * p.cfg.WidthMeters
	half := GoalWidthMeters / 2
	a1 := math.Atan2(dy+half, dx)
	a2 := math.Atan2(dy-half, dx)
	return math.Abs(a1 - a2)
}

// InGoalArea reports whether a relative position lies in the attacked six-yard box.
func (p Pitch) InGoalArea(rel model.Position) bool {
	return p.inBox(rel, GoalAreaDepthMeters, GoalAreaWidthMeters)
}

// InPenaltyArea reports whether a relative position lies in the attacked penalty area.
func (p Pitch) InPenaltyArea(rel model.Position) bool {
	return p.inBox(rel, PenaltyAreaDepthMeters, PenaltyAreaWidthMeters)
}

func (p Pitch) inBox(rel model.Position, depth, width float64) bool {
	fromGoal := (1 - rel.X) * p.cfg.LengthMeters
	fromCenter := math.Abs(rel.Y-0.5) * p.cfg.WidthMeters
	return fromGoal >= 0 && fromGoal <= depth && fromCenter <= width/2
}

// Distance returns the euclidean distance between two normalized points.
func Distance(a, b model.Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Clamp bounds a position into [0,1]x[0,1].
func Clamp(pos model.Position) model.Position {
	return model.Position{X: Clamp01(pos.X), Y: Clamp01(pos.Y)}
}

// Clamp01 bounds v into [0,1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
