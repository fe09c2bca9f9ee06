package enrich

import (
	"math"

	"github.com/okian/pitchside/internal/domain/model"
)

// Floor names recorded in XGFactors.
const (
	floorGoalArea    = "goal_area"
	floorPenaltyArea = "penalty_area"
)

// expectedGoal returns the xG of a shot. Penalties are fixed; other shots
// need a position.
func (e *Enricher) expectedGoal(ev model.CanonicalEvent) (float64, *model.XGFactors, bool) {
	x := e.cfg.XG
	if isPenalty(ev.Details) {
		return x.PenaltyValue, &model.XGFactors{
			Technique:           model.TechniquePenalty,
			TechniqueMultiplier: 1,
			Penalty:             true,
		}, true
	}
	if ev.Position == nil {
		return 0, nil, false
	}

	rel := e.pitch.Relative(ev.Team, ev.AbsoluteTimestamp, *ev.Position)
	dist := e.pitch.GoalDistanceMeters(rel)
	angle := e.pitch.GoalAngle(rel) * 180 / math.Pi

	f := &model.XGFactors{
		DistanceMeters:      dist,
		AngleDegrees:        angle,
		BaseValue:           x.base(dist),
		AngleFactor:         1,
		Technique:           ev.Details.Technique,
		TechniqueMultiplier: x.techniqueMultiplier(ev.Details.Technique),
	}
	if angle < x.MinAngleDegrees && x.MinAngleDegrees > 0 {
		f.AngleFactor = angle / x.MinAngleDegrees
	}
	value := f.BaseValue * f.AngleFactor * f.TechniqueMultiplier

	switch {
	case e.pitch.InGoalArea(rel) && value < x.GoalAreaFloor:
		value, f.Floor = x.GoalAreaFloor, floorGoalArea
	case e.pitch.InPenaltyArea(rel) && value < x.PenaltyAreaFloor:
		value, f.Floor = x.PenaltyAreaFloor, floorPenaltyArea
	}
	return math.Max(x.Min, math.Min(x.Max, value)), f, true
}

// base is the distance curve: flat at close range, then exponential decay
// reaching FarRangeValue at FarRangeMeters.
func (x XGConfig) base(dist float64) float64 {
	if dist <= x.CloseRangeMeters {
		return x.CloseRangeValue
	}
	return x.CloseRangeValue * math.Exp(-x.decay()*(dist-x.CloseRangeMeters))
}

func (x XGConfig) techniqueMultiplier(technique string) float64 {
	switch technique {
	case model.TechniqueHeader:
		return x.HeaderFactor
	case model.TechniqueVolley:
		return x.VolleyFactor
	case model.TechniqueChip:
		return x.ChipFactor
	case model.TechniqueLongRange:
		return x.LongRangeFactor
	default:
		return 1
	}
}

func isPenalty(d model.Details) bool {
	return d.Technique == model.TechniquePenalty || d.SetPieceType == model.SetPiecePenalty
}
