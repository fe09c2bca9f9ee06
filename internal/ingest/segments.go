package ingest

import (
	"math"
	"strings"

	"github.com/okian/pitchside/internal/domain/model"
)

var segmentTypeAliases = map[string]model.SegmentType{ //nolint:gochecknoglobals // lookup table
	"active_play": model.SegmentActivePlay,
	"activeplay":  model.SegmentActivePlay,
	"open_play":   model.SegmentActivePlay,
	"stoppage":    model.SegmentStoppage,
	"set_piece":   model.SegmentSetPiece,
	"setpiece":    model.SegmentSetPiece,
	"goal_moment": model.SegmentGoalMoment,
	"goal":        model.SegmentGoalMoment,
	"replay":      model.SegmentReplay,
}

// DecodeSegments converts segment classifier output into TimeSegments. The
// payload is a JSON array or an object with a "segments" array. Times accept
// seconds or "mm:ss" strings; a missing confidence means the classifier was
// certain. Segments without a usable start or end get NaN bounds so the
// planner rejects them.
func DecodeSegments(payload []byte) ([]model.TimeSegment, error) {
	records, err := recordList(payload, "segments")
	if err != nil {
		return nil, err
	}
	out := make([]model.TimeSegment, 0, len(records))
	for _, r := range records {
		if !r.IsObject() {
			continue
		}
		seg := model.TimeSegment{
			ID:          first(r, "id", "segmentId", "segment_id").String(),
			Team:        strings.ToLower(strings.TrimSpace(first(r, teamKeys...).String())),
			Importance:  int(first(r, "importance", "priority").Int()),
			Confidence:  1,
			Description: first(r, "description", "notes", "label").String(),
			StartSec:    math.NaN(),
			EndSec:      math.NaN(),
		}
		if v, ok := seconds(first(r, "startSec", "start_sec", "start", "startTime")); ok {
			seg.StartSec = v
		}
		if v, ok := seconds(first(r, "endSec", "end_sec", "end", "endTime")); ok {
			seg.EndSec = v
		}
		raw := first(r, "type", "segmentType", "segment_type").String()
		seg.Type = model.SegmentType(raw)
		if t, ok := segmentTypeAliases[normalizeKey(raw)]; ok {
			seg.Type = t
		}
		if v := first(r, confidenceKeys...); v.Exists() {
			seg.Confidence = math.NaN()
			if c, ok := number(v); ok {
				seg.Confidence = c
			}
		}
		out = append(out, seg)
	}
	return out, nil
}
