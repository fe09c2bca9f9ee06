package pitch

import (
	"strings"

	"github.com/okian/pitchside/internal/domain/model"
)

// Third is a team-relative band of pitch length.
type Third string

// Thirds.
const (
	ThirdDefensive Third = "defensive"
	ThirdMiddle    Third = "middle"
	ThirdAttacking Third = "attacking"
)

// Channel is a band of pitch width from the attacker's view.
type Channel string

// Channels.
const (
	ChannelLeft   Channel = "left"
	ChannelCenter Channel = "center"
	ChannelRight  Channel = "right"
)

// ThirdOf classifies a relative X coordinate.
func ThirdOf(relX float64) Third {
	switch {
	case relX < thirdBoundaryLow:
		return ThirdDefensive
	case relX < thirdBoundaryHigh:
		return ThirdMiddle
	default:
		return ThirdAttacking
	}
}

// InAttackingThird reports whether a relative X lies in the attacking third.
func InAttackingThird(relX float64) bool {
	return relX >= attackingThirdBoundary
}

// ChannelOf classifies a relative Y coordinate.
func ChannelOf(relY float64) Channel {
	switch {
	case relY < thirdBoundaryLow:
		return ChannelLeft
	case relY < thirdBoundaryHigh:
		return ChannelCenter
	default:
		return ChannelRight
	}
}

var thirdCenters = map[string]float64{ //nolint:gochecknoglobals // lookup table
	"defensive": 1.0 / 6.0,
	"middle":    0.5,
	"attacking": 5.0 / 6.0,
}

var channelCenters = map[string]float64{ //nolint:gochecknoglobals // lookup table
	"left":   1.0 / 6.0,
	"center": 0.5,
	"right":  5.0 / 6.0,
}

var namedZones = map[string]model.Position{ //nolint:gochecknoglobals // lookup table
	"left_wing":     {X: 2.0 / 3.0, Y: 0.1},
	"right_wing":    {X: 2.0 / 3.0, Y: 0.9},
	"center_circle": {X: 0.5, Y: 0.5},
	"box":           {X: 1 - PenaltyAreaDepthMeters/2/DefaultLengthMeters, Y: 0.5},
	"penalty_area":  {X: 1 - PenaltyAreaDepthMeters/2/DefaultLengthMeters, Y: 0.5},
	"six_yard_box":  {X: 1 - GoalAreaDepthMeters/2/DefaultLengthMeters, Y: 0.5},
	"own_box":       {X: PenaltyAreaDepthMeters / 2 / DefaultLengthMeters, Y: 0.5},
}

// ZoneCenter returns the relative centre of a named zone. Accepted names are
// the thirds ("attacking_third"), thirds crossed with channels
// ("attacking_third_left") and a few landmarks such as "box" or "left_wing".
// Names are matched case-insensitively with spaces or dashes as separators.
func ZoneCenter(name string) (model.Position, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if key == "" {
		return model.Position{}, false
	}
	if pos, ok := namedZones[key]; ok {
		return pos, true
	}

	third, rest, _ := strings.Cut(key, "_third")
	x, ok := thirdCenters[third]
	if !ok {
		return model.Position{}, false
	}
	rest = strings.TrimPrefix(rest, "_")
	if rest == "" {
		return model.Position{X: x, Y: 0.5}, true
	}
	y, ok := channelCenters[rest]
	if !ok {
		return model.Position{}, false
	}
	return model.Position{X: x, Y: y}, true
}
