package dedupe

import (
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/pitch"
)

// Scale is the coordinate convention a position was classified as.
type Scale string

// Position scales.
const (
	// ScaleUnit means both coordinates were already in [0,1].
	ScaleUnit Scale = "unit"
	// ScalePercent means both coordinates were in (1,100] and were divided by 100.
	ScalePercent Scale = "percent"
	// ScaleAmbiguous means the pair was mixed or out of range and was rescaled and clamped.
	ScaleAmbiguous Scale = "ambiguous"
)

const percentScale = 100.0

// NormalizePosition classifies a position by magnitude and maps it into [0,1].
// It never rejects a position.
func NormalizePosition(p model.Position) (model.Position, Scale) {
	switch {
	case inUnit(p.X) && inUnit(p.Y):
		return p, ScaleUnit
	case inPercent(p.X) && inPercent(p.Y):
		return model.Position{X: p.X / percentScale, Y: p.Y / percentScale}, ScalePercent
	}
	if p.X > 1 || p.Y > 1 {
		p = model.Position{X: p.X / percentScale, Y: p.Y / percentScale}
	}
	return pitch.Clamp(p), ScaleAmbiguous
}

func inUnit(v float64) bool    { return v >= 0 && v <= 1 }
func inPercent(v float64) bool { return v > 1 && v <= percentScale }
