// Package tactics infers per-team formation timelines and tactical patterns
// from enriched events over fixed time buckets.
package tactics

import (
	"context"
	"math"
	"sort"

	"github.com/okian/pitchside/internal/domain/enrich"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/pitch"
	"github.com/okian/pitchside/pkg/logger"
)

// Input is everything the analyzer reads for one match.
type Input struct {
	Events   []model.EnrichedEvent
	Segments []model.TimeSegment
	// Tracks are optional tracker positions used only for line grouping.
	Tracks []model.TrackSample
}

// Stats summarizes one analysis run.
type Stats struct {
	Teams          int                   `json:"teams"`
	Buckets        int                   `json:"buckets"`
	Changes        map[model.Trigger]int `json:"changes"`
	CounterAttacks int                   `json:"counterAttacks"`
}

// Analyzer runs the bucketed formation state machine and pattern metrics.
type Analyzer struct {
	cfg      Config
	pitch    pitch.Pitch
	enricher *enrich.Enricher
	log      logger.Logger
}

// New validates cfg and returns an Analyzer.
func New(cfg Config, opts ...Option) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Analyzer{cfg: cfg, pitch: pitch.Default(), log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	if a.enricher == nil {
		a.enricher, _ = enrich.New(enrich.DefaultConfig(), enrich.WithPitch(a.pitch))
	}
	return a, nil
}

// AnalyzeTactics analyzes enriched events and segments with cfg.
func AnalyzeTactics(events []model.EnrichedEvent, segments []model.TimeSegment, cfg Config) (model.TacticalPatternResult, model.FormationTimeline, error) {
	a, err := New(cfg)
	if err != nil {
		return model.TacticalPatternResult{}, model.FormationTimeline{}, err
	}
	result, timeline, _ := a.Analyze(context.Background(), Input{Events: events, Segments: segments})
	return result, timeline, nil
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Analyze returns the tactical patterns and formation timeline of every team.
// Teams are reported in configured order followed by any other team seen in
// the input, sorted by name. Empty input yields one default state per team.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (model.TacticalPatternResult, model.FormationTimeline, Stats) {
	f := newFrame(in)
	teams := a.teams(f)
	counters := a.enricher.CounterAttacks(f.events)

	result := model.TacticalPatternResult{Teams: make([]model.TeamTactics, 0, len(teams))}
	timeline := model.FormationTimeline{BucketSec: a.cfg.BucketSec, Teams: make([]model.TeamTimeline, 0, len(teams))}
	stats := Stats{Teams: len(teams), Changes: make(map[model.Trigger]int), CounterAttacks: len(counters)}

	full := a.bucketRange(f)
	stats.Buckets = len(full)
	for _, team := range teams {
		tl := a.teamTimeline(team, f, full)
		for _, c := range tl.Changes {
			stats.Changes[c.Trigger]++
		}
		timeline.Teams = append(timeline.Teams, tl)
		result.Teams = append(result.Teams, model.TeamTactics{
			Team:    team,
			Attack:  a.attackPattern(team, f, counters),
			Defense: a.defensePattern(team, f),
		})
	}

	a.log.Debug(ctx, "analyzed tactics",
		logger.Int("teams", stats.Teams),
		logger.Int("buckets", stats.Buckets),
		logger.Int("counter_attacks", stats.CounterAttacks))
	return result, timeline, stats
}

func (a *Analyzer) teams(f frame) []string {
	seen := make(map[string]bool, len(a.cfg.Teams))
	teams := make([]string, 0, len(a.cfg.Teams))
	for _, t := range a.cfg.Teams {
		if t != "" && !seen[t] {
			seen[t] = true
			teams = append(teams, t)
		}
	}
	var extra []string
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			extra = append(extra, t)
		}
	}
	for _, ev := range f.events {
		add(ev.Team)
	}
	for _, tr := range f.tracks {
		add(tr.Team)
	}
	sort.Strings(extra)
	return append(teams, extra...)
}

// frame is a filtered view of the analyzer input.
type frame struct {
	events   []model.EnrichedEvent
	segments []model.TimeSegment
	tracks   []model.TrackSample
}

// newFrame sorts the input and drops samples whose time or position is not
// a finite number.
func newFrame(in Input) frame {
	events := make([]model.EnrichedEvent, 0, len(in.Events))
	for _, ev := range in.Events {
		if finite(ev.AbsoluteTimestamp) {
			events = append(events, ev)
		}
	}
	enrich.SortTimeline(events)
	tracks := make([]model.TrackSample, 0, len(in.Tracks))
	for _, tr := range in.Tracks {
		if finite(tr.TimestampSec) && finite(tr.Position.X) && finite(tr.Position.Y) {
			tracks = append(tracks, tr)
		}
	}
	sort.SliceStable(tracks, func(i, j int) bool {
		if tracks[i].TimestampSec != tracks[j].TimestampSec {
			return tracks[i].TimestampSec < tracks[j].TimestampSec
		}
		return tracks[i].TrackID < tracks[j].TrackID
	})
	return frame{events: events, segments: in.Segments, tracks: tracks}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// empty reports whether the frame carries nothing that can be bucketed.
func (f frame) empty() bool {
	return len(f.events) == 0 && len(f.tracks) == 0
}

// between keeps the data with timestamps in [from, to).
func (f frame) between(from, to float64) frame {
	out := frame{}
	for _, ev := range f.events {
		if ev.AbsoluteTimestamp >= from && ev.AbsoluteTimestamp < to {
			out.events = append(out.events, ev)
		}
	}
	for _, tr := range f.tracks {
		if tr.TimestampSec >= from && tr.TimestampSec < to {
			out.tracks = append(out.tracks, tr)
		}
	}
	for _, s := range f.segments {
		if s.StartSec < to && s.EndSec > from {
			out.segments = append(out.segments, s)
		}
	}
	return out
}
