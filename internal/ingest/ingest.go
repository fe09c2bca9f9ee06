// Package ingest normalizes annotator replies and tracker output into the
// canonical record shapes. It is the only place that knows about field-name
// variance in external payloads.
package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/pitchside/internal/domain/model"
)

// Field aliases, first match wins.
var (
	absoluteKeys   = []string{"absoluteTimestamp", "absolute_timestamp", "timestamp", "time", "t"}
	relativeKeys   = []string{"relativeTimestamp", "relative_timestamp", "relativeTime", "offset"}
	typeKeys       = []string{"type", "eventType", "event_type", "event", "action"}
	teamKeys       = []string{"team", "side", "teamId", "team_id"}
	playerKeys     = []string{"player", "playerId", "player_id", "playerName"}
	zoneKeys       = []string{"zone", "area"}
	positionKeys   = []string{"position", "pos", "location"}
	confidenceKeys = []string{"confidence", "conf", "score"}
	detailsKeys    = []string{"details", "detail", "attributes"}
)

var typeAliases = map[string]model.EventType{ //nolint:gochecknoglobals // lookup table
	"pass":         model.EventPass,
	"cross":        model.EventPass,
	"carry":        model.EventCarry,
	"dribble":      model.EventCarry,
	"turnover":     model.EventTurnover,
	"tackle":       model.EventTurnover,
	"interception": model.EventTurnover,
	"recovery":     model.EventTurnover,
	"shot":         model.EventShot,
	"setpiece":     model.EventSetPiece,
	"set_piece":    model.EventSetPiece,
	"corner":       model.EventSetPiece,
	"free_kick":    model.EventSetPiece,
	"throw_in":     model.EventSetPiece,
}

// Decode converts one annotator reply for window w into RawEvents. The reply
// is either a JSON array of records or an object with an "events" array.
// Records are returned in payload order and are not validated here; missing
// or unparseable timestamps and confidences become NaN so validation drops them.
func Decode(matchID string, w model.AnalysisWindow, payload []byte) ([]model.RawEvent, error) {
	records, err := recordList(payload, "events")
	if err != nil {
		return nil, err
	}
	out := make([]model.RawEvent, 0, len(records))
	for _, r := range records {
		if !r.IsObject() {
			continue
		}
		out = append(out, decodeEvent(matchID, w, r))
	}
	return out, nil
}

func decodeEvent(matchID string, w model.AnalysisWindow, r gjson.Result) model.RawEvent {
	ev := model.RawEvent{
		MatchID:  matchID,
		WindowID: w.ID,
		Team:     strings.ToLower(strings.TrimSpace(first(r, teamKeys...).String())),
		Player:   first(r, playerKeys...).String(),
		Zone:     first(r, zoneKeys...).String(),
	}
	if v := r.Get("matchId"); v.Exists() {
		ev.MatchID = v.String()
	}
	if v := r.Get("windowId"); v.Exists() {
		ev.WindowID = v.String()
	}

	ev.Type = eventType(first(r, typeKeys...).String())

	abs, hasAbs := seconds(first(r, absoluteKeys...))
	rel, hasRel := seconds(first(r, relativeKeys...))
	switch {
	case hasAbs && hasRel:
	case hasRel:
		abs = w.AbsoluteStart + rel
	case hasAbs:
		rel = math.Max(0, abs-w.AbsoluteStart)
	default:
		abs, rel = math.NaN(), math.NaN()
	}
	ev.AbsoluteTimestamp, ev.RelativeTimestamp = abs, rel

	ev.Confidence = math.NaN()
	if v := first(r, confidenceKeys...); v.Exists() {
		if c, ok := number(v); ok {
			ev.Confidence = c
		}
	}

	pos := first(r, positionKeys...)
	if p, ok := position(pos); ok {
		ev.Position = &p
	} else if p, ok := position(r); ok {
		ev.Position = &p
	}
	if v := first(r, "positionConfidence", "position_confidence"); v.Exists() {
		ev.PositionConfidence = floatPtr(v)
	} else if pos.IsObject() && pos.Get("confidence").Exists() {
		ev.PositionConfidence = floatPtr(pos.Get("confidence"))
	}

	ev.Details = details(first(r, detailsKeys...), r)
	if ev.Type == model.EventSetPiece && ev.Details.SetPieceType == "" {
		if kind := normalizeKey(first(r, typeKeys...).String()); kind != "setpiece" && kind != "set_piece" {
			ev.Details.SetPieceType = kind
		}
	}
	return ev
}

// details reads the nested details object, falling back to top-level fields.
func details(d, r gjson.Result) model.Details {
	get := func(keys ...string) gjson.Result {
		if d.IsObject() {
			if v := first(d, keys...); v.Exists() {
				return v
			}
		}
		return first(r, keys...)
	}
	out := model.Details{
		Outcome:      normalizeKey(get("outcome", "result").String()),
		EndZone:      get("endZone", "end_zone").String(),
		Technique:    normalizeKey(get("technique", "bodyPart", "body_part").String()),
		SetPieceType: normalizeKey(get("setPieceType", "set_piece_type").String()),
		Recipient:    get("recipient", "receiver").String(),
		PlayerRole:   normalizeKey(get("playerRole", "player_role", "role").String()),
		Notes:        get("notes", "note", "description").String(),
	}
	if p, ok := position(get("endPosition", "end_position", "end")); ok {
		out.EndPosition = &p
	}
	if v := get("durationSec", "duration_sec", "duration"); v.Exists() {
		if s, ok := seconds(v); ok {
			out.DurationSec = &s
		}
	}
	return out
}

func recordList(payload []byte, key string) ([]gjson.Result, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidPayload)
	}
	root := gjson.ParseBytes(payload)
	switch {
	case root.IsArray():
		return root.Array(), nil
	case root.IsObject() && root.Get(key).IsArray():
		return root.Get(key).Array(), nil
	default:
		return nil, fmt.Errorf("%w: expected an array or an object with %q", ErrInvalidPayload, key)
	}
}

func first(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func eventType(raw string) model.EventType {
	key := normalizeKey(raw)
	if t, ok := typeAliases[key]; ok {
		return t
	}
	return model.EventType(raw)
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// position reads {x,y} or [x,y].
func position(v gjson.Result) (model.Position, bool) {
	var x, y gjson.Result
	switch {
	case v.IsArray():
		arr := v.Array()
		if len(arr) < 2 {
			return model.Position{}, false
		}
		x, y = arr[0], arr[1]
	case v.IsObject():
		x, y = v.Get("x"), v.Get("y")
	default:
		return model.Position{}, false
	}
	px, okx := number(x)
	py, oky := number(y)
	if !okx || !oky {
		return model.Position{}, false
	}
	return model.Position{X: px, Y: py}, true
}

func bboxCenter(v gjson.Result) (model.Position, bool) {
	if !v.IsObject() {
		return model.Position{}, false
	}
	x, okx := number(v.Get("x"))
	y, oky := number(v.Get("y"))
	w, _ := number(v.Get("w"))
	h, _ := number(v.Get("h"))
	if !okx || !oky {
		return model.Position{}, false
	}
	return model.Position{X: x + w/2, Y: y + h/2}, true
}

// number reads a finite number given as a JSON number or a numeric string.
func number(v gjson.Result) (float64, bool) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func floatPtr(v gjson.Result) *float64 {
	f, ok := number(v)
	if !ok {
		return nil
	}
	return &f
}

// seconds reads a time value given as seconds or as an "mm:ss" or
// "hh:mm:ss" string with optional fractional seconds.
func seconds(v gjson.Result) (float64, bool) {
	if v.Type != gjson.String {
		return number(v)
	}
	s := strings.TrimSpace(v.Str)
	if !strings.Contains(s, ":") {
		return number(v)
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	var total float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil || !(f >= 0) || math.IsInf(f, 0) {
			return 0, false
		}
		if i < len(parts)-1 && f != math.Trunc(f) {
			return 0, false
		}
		total = total*60 + f
	}
	return total, true
}
