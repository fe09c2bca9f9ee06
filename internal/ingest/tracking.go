package ingest

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/pitchside/internal/domain/dedupe"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/pkg/logger"
)

// DecodeTracks converts tracker output into TrackSamples. The payload is a
// JSON array of tracks or an object with a "tracks" array; each track carries
// a trackId, an optional team and frames with a timestamp and a center (or a
// bbox whose center is used). Frames without a time or position are skipped.
// Positions go through the same scale disambiguation as annotator events.
func DecodeTracks(payload []byte, opts ...Option) ([]model.TrackSample, error) {
	tracks, err := recordList(payload, "tracks")
	if err != nil {
		return nil, err
	}
	d := newDecoder(opts)
	var (
		out   []model.TrackSample
		scale scaleCount
	)
	for _, t := range tracks {
		id := first(t, "trackId", "track_id", "id").String()
		team := strings.ToLower(first(t, teamKeys...).String())
		for _, f := range t.Get("frames").Array() {
			ts, ok := seconds(first(f, "timestamp", "time", "t"))
			if !ok {
				continue
			}
			pos, ok := position(f.Get("center"))
			if !ok {
				pos, ok = bboxCenter(f.Get("bbox"))
			}
			if !ok {
				pos, ok = position(first(f, positionKeys...))
			}
			if !ok {
				continue
			}
			conf, _ := number(f.Get("confidence"))
			out = append(out, model.TrackSample{
				TrackID:      id,
				Team:         team,
				TimestampSec: ts,
				Position:     scale.normalize(pos),
				Confidence:   conf,
			})
		}
	}
	scale.report(d.log, "tracks")
	return out, nil
}

// DecodeBall converts tracker ball detections into BallSamples. The payload
// is a JSON array of detections or an object with a "ball" array. Detections
// flagged invisible, or without a time or position, are skipped.
func DecodeBall(payload []byte, opts ...Option) ([]model.BallSample, error) {
	records, err := recordList(payload, "ball")
	if err != nil {
		return nil, err
	}
	d := newDecoder(opts)
	var (
		out   []model.BallSample
		scale scaleCount
	)
	for _, r := range records {
		if v := r.Get("visible"); v.Exists() && !v.Bool() {
			continue
		}
		ts, ok := seconds(first(r, "timestamp", "time", "t"))
		if !ok {
			continue
		}
		pos, ok := position(first(r, "position", "center", "pos"))
		if !ok {
			continue
		}
		conf, _ := number(r.Get("confidence"))
		out = append(out, model.BallSample{
			FrameNumber:  int(r.Get("frameNumber").Int()),
			TimestampSec: ts,
			Position:     scale.normalize(pos),
			Confidence:   conf,
		})
	}
	scale.report(d.log, "ball")
	return out, nil
}

// DecodeTracking reads the "tracks" and "ball" arrays of a tracker result.
// Either may be absent.
func DecodeTracking(payload []byte, opts ...Option) (model.Tracking, error) {
	var (
		out model.Tracking
		err error
	)
	if v := gjson.GetBytes(payload, "tracks"); v.Exists() {
		if out.Players, err = DecodeTracks([]byte(v.Raw), opts...); err != nil {
			return model.Tracking{}, err
		}
	}
	if v := gjson.GetBytes(payload, "ball"); v.Exists() {
		if out.Ball, err = DecodeBall([]byte(v.Raw), opts...); err != nil {
			return model.Tracking{}, err
		}
	}
	return out, nil
}

// scaleCount tallies positions that needed rescaling.
type scaleCount struct {
	rescaled int
	clamped  int
}

func (c *scaleCount) normalize(p model.Position) model.Position {
	norm, scale := dedupe.NormalizePosition(p)
	switch scale {
	case dedupe.ScalePercent:
		c.rescaled++
	case dedupe.ScaleAmbiguous:
		c.clamped++
	case dedupe.ScaleUnit:
	}
	return norm
}

func (c scaleCount) report(log logger.Logger, source string) {
	switch {
	case c.clamped > 0:
		log.Warn(context.Background(), "ambiguous tracker position scale",
			logger.String("source", source),
			logger.Int("rescaled", c.rescaled),
			logger.Int("clamped", c.clamped))
	case c.rescaled > 0:
		log.Debug(context.Background(), "rescaled tracker positions",
			logger.String("source", source),
			logger.Int("rescaled", c.rescaled))
	}
}
