package loadtest

import (
	"fmt"
	"math"

	"github.com/okian/pitchside/internal/domain/model"
)

// Verify checks that an analysis holds exactly one event per ground-truth
// action, in time order, each within tolerance of the action's time and of
// the same type and team.
func Verify(m Match, a model.Analysis, toleranceSec float64) error {
	if a.MatchID != m.ID {
		return fmt.Errorf("%w: analysis is for match %q, want %q", ErrMismatch, a.MatchID, m.ID)
	}
	if len(a.Events) != len(m.Truth) {
		return fmt.Errorf("%w: %s has %d events, want %d", ErrMismatch, m.ID, len(a.Events), len(m.Truth))
	}
	for i, act := range m.Truth {
		ev := a.Events[i]
		switch {
		case ev.Type != act.Type || ev.Team != act.Team:
			return fmt.Errorf("%w: %s event %d is %s/%s, want %s/%s",
				ErrMismatch, m.ID, i, ev.Type, ev.Team, act.Type, act.Team)
		case math.Abs(ev.AbsoluteTimestamp-act.Timestamp) > toleranceSec:
			return fmt.Errorf("%w: %s event %d at %.2fs, want %.2fs",
				ErrMismatch, m.ID, i, ev.AbsoluteTimestamp, act.Timestamp)
		}
	}
	return nil
}
