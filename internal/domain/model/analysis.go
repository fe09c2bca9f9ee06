package model

import "time"

// Analysis is the stored output of one pipeline run, keyed by match and version.
// A new version supersedes an older one; stored analyses are never edited.
type Analysis struct {
	MatchID   string                `json:"matchId"`
	Version   string                `json:"version"`
	RunID     string                `json:"runId"`
	CreatedAt time.Time             `json:"createdAt"`
	Windows   []AnalysisWindow      `json:"windows,omitempty"`
	Events    []EnrichedEvent       `json:"events"`
	Tactics   TacticalPatternResult `json:"tactics"`
	Timeline  FormationTimeline     `json:"timeline"`
	Stats     RunStats              `json:"stats"`
}

// RunStats counts what happened at each stage of a run.
type RunStats struct {
	Segments         int             `json:"segments"`
	Windows          int             `json:"windows"`
	RawEvents        int             `json:"rawEvents"`
	Dropped          map[string]int  `json:"dropped,omitempty"`
	Redelivered      int             `json:"redelivered"`
	Rescaled         int             `json:"rescaled"`
	Clamped          int             `json:"clamped"`
	Merged           int             `json:"merged"`
	Canonical        int             `json:"canonical"`
	Enriched         map[string]int  `json:"enriched,omitempty"`
	CounterAttacks   int             `json:"counterAttacks"`
	FormationChanges map[Trigger]int `json:"formationChanges,omitempty"`
}

// VersionInfo describes one stored analysis without its payload.
type VersionInfo struct {
	MatchID   string    `json:"matchId"`
	Version   string    `json:"version"`
	RunID     string    `json:"runId"`
	CreatedAt time.Time `json:"createdAt"`
	Events    int       `json:"events"`
}
