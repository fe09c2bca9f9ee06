package model

import "github.com/okian/pitchside/internal/domain/confidence"

// EventType is the taxonomy of on-ball actions the annotator reports.
type EventType string

// Event types.
const (
	EventPass     EventType = "pass"
	EventCarry    EventType = "carry"
	EventTurnover EventType = "turnover"
	EventShot     EventType = "shot"
	EventSetPiece EventType = "setPiece"
)

// Team identifiers used by default orientation.
const (
	TeamHome = "home"
	TeamAway = "away"
)

// Outcome values carried in Details.
const (
	OutcomeComplete   = "complete"
	OutcomeIncomplete = "incomplete"
	OutcomeWon        = "won"
	OutcomeLost       = "lost"
	OutcomeGoal       = "goal"
	OutcomeSaved      = "saved"
	OutcomeBlocked    = "blocked"
	OutcomeOffTarget  = "off_target"
)

// Shot techniques.
const (
	TechniqueNormal    = "normal"
	TechniqueHeader    = "header"
	TechniqueVolley    = "volley"
	TechniqueChip      = "chip"
	TechniqueLongRange = "long_range"
	TechniquePenalty   = "penalty"
)

// Set-piece kinds.
const (
	SetPieceCorner   = "corner"
	SetPieceFreeKick = "free_kick"
	SetPiecePenalty  = "penalty"
	SetPieceThrowIn  = "throw_in"
	SetPieceGoalKick = "goal_kick"
	SetPieceKickOff  = "kick_off"
)

// Player roles used by role-based formation inference.
const (
	RoleGoalkeeper = "goalkeeper"
	RoleDefender   = "defender"
	RoleMidfielder = "midfielder"
	RoleForward    = "forward"
)

// Position is a point on the normalized pitch. X runs along the length, Y across the width.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Details holds optional structured attributes of an event.
type Details struct {
	Outcome      string    `json:"outcome,omitempty"`
	EndPosition  *Position `json:"endPosition,omitempty"`
	EndZone      string    `json:"endZone,omitempty"`
	Technique    string    `json:"technique,omitempty"`
	SetPieceType string    `json:"setPieceType,omitempty"`
	DurationSec  *float64  `json:"durationSec,omitempty" validate:"omitempty,gte=0"`
	Recipient    string    `json:"recipient,omitempty"`
	PlayerRole   string    `json:"playerRole,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

// RawEvent is one detection reported for one analysis window.
type RawEvent struct {
	MatchID            string    `json:"matchId,omitempty"`
	WindowID           string    `json:"windowId" validate:"required"`
	RelativeTimestamp  float64   `json:"relativeTimestamp" validate:"gte=0"`
	AbsoluteTimestamp  float64   `json:"absoluteTimestamp" validate:"gte=0"`
	Type               EventType `json:"type" validate:"required,oneof=pass carry turnover shot setPiece"`
	Team               string    `json:"team" validate:"required"`
	Player             string    `json:"player,omitempty"`
	Zone               string    `json:"zone,omitempty"`
	Position           *Position `json:"position,omitempty"`
	PositionConfidence *float64  `json:"positionConfidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	Details            Details   `json:"details"`
	Confidence         float64   `json:"confidence" validate:"gte=0,lte=1"`
}

// CanonicalEvent is the merged view of one real action seen by one or more windows.
// Representative fields come from the highest-confidence contributor.
type CanonicalEvent struct {
	ID                     string                `json:"id"`
	MatchID                string                `json:"matchId,omitempty"`
	RelativeTimestamp      float64               `json:"relativeTimestamp"`
	AbsoluteTimestamp      float64               `json:"absoluteTimestamp"`
	Type                   EventType             `json:"type"`
	Team                   string                `json:"team"`
	Player                 string                `json:"player,omitempty"`
	Zone                   string                `json:"zone,omitempty"`
	Position               *Position             `json:"position,omitempty"`
	PositionConfidence     *float64              `json:"positionConfidence,omitempty"`
	Details                Details               `json:"details"`
	Confidence             float64               `json:"confidence"`
	MergedFromWindows      []string              `json:"mergedFromWindows"`
	OriginalTimestamps     []float64             `json:"originalTimestamps"`
	Contributors           int                   `json:"contributors"`
	PositionedContributors int                   `json:"positionedContributors"`
	AdjustedConfidence     float64               `json:"adjustedConfidence"`
	Quality                confidence.Assessment `json:"quality"`
}

// FullyPositioned reports whether every contributor carried a position.
func (c CanonicalEvent) FullyPositioned() bool {
	return c.Contributors > 0 && c.PositionedContributors == c.Contributors
}

// PassDirection is the direction of a pass relative to the team's attack.
type PassDirection string

// Pass directions.
const (
	PassForward  PassDirection = "forward"
	PassBackward PassDirection = "backward"
	PassLateral  PassDirection = "lateral"
)

// DribbleStrength grades a dribble classification.
type DribbleStrength string

// Dribble strengths.
const (
	DribbleStrong   DribbleStrength = "strong"
	DribbleModerate DribbleStrength = "moderate"
	DribbleWeak     DribbleStrength = "weak"
	DribbleNone     DribbleStrength = "none"
)

// XGFactors records the inputs behind an xG value.
type XGFactors struct {
	DistanceMeters      float64 `json:"distanceMeters"`
	AngleDegrees        float64 `json:"angleDegrees"`
	BaseValue           float64 `json:"baseValue"`
	AngleFactor         float64 `json:"angleFactor"`
	Technique           string  `json:"technique,omitempty"`
	TechniqueMultiplier float64 `json:"techniqueMultiplier"`
	Floor               string  `json:"floor,omitempty"`
	Penalty             bool    `json:"penalty,omitempty"`
}

// EnrichedEvent is a canonical event plus derived analytics. Every derived
// field is optional and omitted when its inputs are missing.
type EnrichedEvent struct {
	CanonicalEvent

	PassDirection       PassDirection   `json:"passDirection,omitempty"`
	CarryDistanceMeters *float64        `json:"carryDistanceMeters,omitempty"`
	IsDribble           *bool           `json:"isDribble,omitempty"`
	DribbleScore        *float64        `json:"dribbleScore,omitempty"`
	DribbleStrength     DribbleStrength `json:"dribbleStrength,omitempty"`
	DribbleConfidence   *float64        `json:"dribbleConfidence,omitempty"`
	XG                  *float64        `json:"xG,omitempty"`
	XGFactors           *XGFactors      `json:"xGFactors,omitempty"`
}

// TrackSample is one tracked player position from the upstream tracker.
type TrackSample struct {
	TrackID      string   `json:"trackId"`
	Team         string   `json:"team,omitempty"`
	TimestampSec float64  `json:"timestampSec"`
	Position     Position `json:"position"`
	Confidence   float64  `json:"confidence"`
}

// BallSample is one ball detection from the upstream tracker.
type BallSample struct {
	FrameNumber  int      `json:"frameNumber,omitempty"`
	TimestampSec float64  `json:"timestampSec"`
	Position     Position `json:"position"`
	Confidence   float64  `json:"confidence"`
}

// Tracking is the tracker output for one match.
type Tracking struct {
	Players []TrackSample `json:"tracks,omitempty"`
	Ball    []BallSample  `json:"ball,omitempty"`
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }
