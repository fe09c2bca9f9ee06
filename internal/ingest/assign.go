package ingest

import (
	"math"

	"github.com/okian/pitchside/internal/domain/model"
)

// Assign returns a copy of events in which every event without a window id
// is attributed to the earliest-starting window whose span contains it, with
// its relative time recomputed against that window. Events outside every
// window keep an empty id, so validation drops them.
func Assign(events []model.RawEvent, windows []model.AnalysisWindow) []model.RawEvent {
	out := make([]model.RawEvent, len(events))
	copy(out, events)
	for i := range out {
		ev := &out[i]
		if ev.WindowID != "" {
			continue
		}
		var best *model.AnalysisWindow
		for j := range windows {
			w := &windows[j]
			if !w.Contains(ev.AbsoluteTimestamp) {
				continue
			}
			if best == nil || w.AbsoluteStart < best.AbsoluteStart {
				best = w
			}
		}
		if best == nil {
			continue
		}
		ev.WindowID = best.ID
		ev.RelativeTimestamp = math.Max(0, ev.AbsoluteTimestamp-best.AbsoluteStart)
	}
	return out
}
