package model

// Phase is the dominant game phase of a bucket.
type Phase string

// Game phases.
const (
	PhaseAttacking  Phase = "attacking"
	PhaseDefending  Phase = "defending"
	PhaseTransition Phase = "transition"
	PhaseSetPiece   Phase = "set_piece"
)

// FormationMethod names how a formation label was inferred.
type FormationMethod string

// Formation inference methods.
const (
	MethodLines   FormationMethod = "lines"
	MethodRoles   FormationMethod = "roles"
	MethodDefault FormationMethod = "default"
)

// Trigger explains a formation change.
type Trigger string

// Formation change triggers in priority order.
const (
	TriggerSubstitution     Trigger = "substitution"
	TriggerGameState        Trigger = "game_state"
	TriggerOpponentPressure Trigger = "opponent_pressure"
	TriggerTacticalSwitch   Trigger = "tactical_switch"
)

// FormationState is the inferred shape of one team in one bucket.
type FormationState struct {
	Formation    string          `json:"formation"`
	TimestampSec float64         `json:"timestampSec"`
	Confidence   float64         `json:"confidence"`
	Phase        Phase           `json:"phase"`
	Method       FormationMethod `json:"method"`
	Samples      int             `json:"samples"`
}

// FormationChange records a label change between consecutive buckets.
type FormationChange struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	TimestampSec float64 `json:"timestampSec"`
	Trigger      Trigger `json:"trigger"`
	Confidence   float64 `json:"confidence"`
}

// TimelineSummary condenses a formation timeline over a subset of the match.
type TimelineSummary struct {
	Label             string  `json:"label"`
	Buckets           int     `json:"buckets"`
	DominantFormation string  `json:"dominantFormation"`
	AverageConfidence float64 `json:"averageConfidence"`
	Changes           int     `json:"changes"`
	Variability       float64 `json:"variability"`
}

// TeamTimeline is the formation timeline of one team.
type TeamTimeline struct {
	Team        string            `json:"team"`
	States      []FormationState  `json:"states"`
	Changes     []FormationChange `json:"changes"`
	Variability float64           `json:"variability"`
	Halves      []TimelineSummary `json:"halves"`
	Phases      []TimelineSummary `json:"phases"`
}

// FormationTimeline holds every team's timeline in configured team order.
type FormationTimeline struct {
	BucketSec float64        `json:"bucketSec"`
	Teams     []TeamTimeline `json:"teams"`
}

// Team returns the timeline for team, if present.
func (f FormationTimeline) Team(team string) (TeamTimeline, bool) {
	for _, t := range f.Teams {
		if t.Team == team {
			return t, true
		}
	}
	return TeamTimeline{}, false
}

// ZoneDistribution is the share of a team's attacking actions per channel, summing to 100.
type ZoneDistribution struct {
	Left   int `json:"left"`
	Center int `json:"center"`
	Right  int `json:"right"`
}

// ThirdCounts counts events per team-relative third.
type ThirdCounts struct {
	Defensive int `json:"defensive"`
	Middle    int `json:"middle"`
	Attacking int `json:"attacking"`
}

// Total returns the sum over all thirds.
func (t ThirdCounts) Total() int {
	return t.Defensive + t.Middle + t.Attacking
}

// CounterAttackEvent is a won turnover converted into a shot quickly and far upfield.
type CounterAttackEvent struct {
	Team             string   `json:"team"`
	StartTimestamp   float64  `json:"startTimestamp"`
	ShotTimestamp    float64  `json:"shotTimestamp"`
	Duration         float64  `json:"duration"`
	DistanceTraveled float64  `json:"distanceTraveled"`
	StartPosition    Position `json:"startPosition"`
	ShotPosition     Position `json:"shotPosition"`
	XG               *float64 `json:"xG,omitempty"`
}

// AttackPattern summarizes a team's attacking tendencies.
type AttackPattern struct {
	ZoneDistribution    ZoneDistribution     `json:"zoneDistribution"`
	DominantPattern     string               `json:"dominantPattern"`
	BuildUpSpeed        string               `json:"buildUpSpeed"`
	BuildUpMetersPerSec float64              `json:"buildUpMetersPerSec"`
	CounterAttacks      []CounterAttackEvent `json:"counterAttacks"`
	PassCompletionRate  float64              `json:"passCompletionRate"`
}

// DefensePattern summarizes a team's pressing and ball recovery.
type DefensePattern struct {
	PressHeight           string      `json:"pressHeight"`
	PressIntensity        float64     `json:"pressIntensity"`
	RecoveryZone          string      `json:"recoveryZone"`
	TurnoverCountsByThird ThirdCounts `json:"turnoverCountsByThird"`
}

// TeamTactics is the tactical summary of one team.
type TeamTactics struct {
	Team    string         `json:"team"`
	Attack  AttackPattern  `json:"attack"`
	Defense DefensePattern `json:"defense"`
}

// TacticalPatternResult holds every team's tactical summary in configured team order.
type TacticalPatternResult struct {
	Teams []TeamTactics `json:"teams"`
}

// Team returns the tactics for team, if present.
func (r TacticalPatternResult) Team(team string) (TeamTactics, bool) {
	for _, t := range r.Teams {
		if t.Team == team {
			return t, true
		}
	}
	return TeamTactics{}, false
}
