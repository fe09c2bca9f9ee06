// Package model contains the domain types passed between the reconciliation stages.
package model

// SegmentType classifies a time segment of match video.
type SegmentType string

// Segment types produced by the upstream segment classifier.
const (
	SegmentActivePlay SegmentType = "active_play"
	SegmentStoppage   SegmentType = "stoppage"
	SegmentSetPiece   SegmentType = "set_piece"
	SegmentGoalMoment SegmentType = "goal_moment"
	SegmentReplay     SegmentType = "replay"
)

// TimeSegment is a classified span of match time. Immutable upstream input.
type TimeSegment struct {
	ID          string      `json:"id" validate:"required"`
	StartSec    float64     `json:"startSec" validate:"gte=0"`
	EndSec      float64     `json:"endSec" validate:"gte=0"`
	Type        SegmentType `json:"type" validate:"required,oneof=active_play stoppage set_piece goal_moment replay"`
	Team        string      `json:"team,omitempty"`
	Importance  int         `json:"importance,omitempty" validate:"omitempty,min=1,max=5"`
	Confidence  float64     `json:"confidence" validate:"gte=0,lte=1"`
	Description string      `json:"description,omitempty"`
}

// Duration returns the segment length in seconds.
func (s TimeSegment) Duration() float64 {
	return s.EndSec - s.StartSec
}

// AnalysisWindow is one slice of a segment sent to the annotator.
type AnalysisWindow struct {
	ID               string      `json:"id"`
	SegmentID        string      `json:"segmentId"`
	SegmentType      SegmentType `json:"segmentType"`
	Index            int         `json:"index"`
	AbsoluteStart    float64     `json:"absoluteStart"`
	AbsoluteEnd      float64     `json:"absoluteEnd"`
	OverlapBefore    float64     `json:"overlapBefore"`
	OverlapAfter     float64     `json:"overlapAfter"`
	TargetSampleRate float64     `json:"targetSampleRate"`
}

// spanTolerance absorbs float noise at window edges.
const spanTolerance = 1e-9

// Duration returns the window length in seconds.
func (w AnalysisWindow) Duration() float64 {
	return w.AbsoluteEnd - w.AbsoluteStart
}

// Contains reports whether an absolute timestamp falls inside the window span.
func (w AnalysisWindow) Contains(ts float64) bool {
	return ts >= w.AbsoluteStart-spanTolerance && ts <= w.AbsoluteEnd+spanTolerance
}
