// Package window turns classified time segments into overlapping analysis
// windows sized per segment type.
package window

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/pkg/logger"
)

// namespace scopes the name-based window IDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("pitchside.window")) //nolint:gochecknoglobals // constant namespace

// Stats summarizes one planning run.
type Stats struct {
	InputSegments  int `json:"inputSegments"`
	Malformed      int `json:"malformed"`
	Consolidations int `json:"consolidations"`
	Skipped        int `json:"skipped"`
	Capped         int `json:"capped"`
	Windows        int `json:"windows"`
}

// Planner plans analysis windows for one configuration.
type Planner struct {
	cfg Config
	log logger.Logger
}

// New validates cfg and returns a Planner.
func New(cfg Config, opts ...Option) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Planner{cfg: cfg, log: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PlanWindows plans windows for segments with cfg.
func PlanWindows(segments []model.TimeSegment, cfg Config) ([]model.AnalysisWindow, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	windows, _ := p.Plan(context.Background(), segments)
	return windows, nil
}

// Config returns the planner configuration.
func (p *Planner) Config() Config { return p.cfg }

// Plan consolidates segments and slices each into windows. Output is ordered
// by segment start, then window index.
func (p *Planner) Plan(ctx context.Context, segments []model.TimeSegment) ([]model.AnalysisWindow, Stats) {
	stats := Stats{InputSegments: len(segments)}

	valid := make([]model.TimeSegment, 0, len(segments))
	for _, s := range segments {
		if err := s.Validate(); err != nil {
			stats.Malformed++
			p.log.Warn(ctx, "skipping invalid segment", logger.String("segment", s.ID), logger.Error(err))
			continue
		}
		if s.EndSec <= s.StartSec {
			stats.Malformed++
			p.log.Warn(ctx, "skipping empty segment",
				logger.String("segment", s.ID),
				logger.Float64("start", s.StartSec),
				logger.Float64("end", s.EndSec))
			continue
		}
		valid = append(valid, s)
	}

	merged, consolidations := p.Consolidate(valid)
	stats.Consolidations = consolidations

	windows := make([]model.AnalysisWindow, 0, len(merged))
	for _, seg := range merged {
		if p.cfg.skipped(seg.Type) {
			stats.Skipped++
			p.log.Debug(ctx, "skipping segment type", logger.String("segment", seg.ID), logger.String("type", string(seg.Type)))
			continue
		}
		ws, capped := p.slice(seg)
		if capped {
			stats.Capped++
			p.log.Warn(ctx, "segment hit window cap",
				logger.String("segment", seg.ID),
				logger.Int("cap", p.cfg.MaxWindowsPerSegment),
				logger.Float64("duration", seg.Duration()))
		}
		windows = append(windows, ws...)
	}
	stats.Windows = len(windows)

	p.log.Debug(ctx, "planned windows",
		logger.Int("segments", len(merged)),
		logger.Int("windows", len(windows)),
		logger.Int("consolidations", consolidations))
	return windows, stats
}

// Consolidate merges adjacent same-type segments when either is shorter than
// MinSegmentSec or the gap between them is under MergeGapSec. It returns the
// merged segments in start order and the number of merges performed.
func (p *Planner) Consolidate(segments []model.TimeSegment) ([]model.TimeSegment, int) {
	if len(segments) == 0 {
		return nil, 0
	}
	sorted := make([]model.TimeSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartSec < sorted[j].StartSec })

	out := []model.TimeSegment{sorted[0]}
	merges := 0
	for _, next := range sorted[1:] {
		cur := &out[len(out)-1]
		if p.shouldMerge(*cur, next) {
			*cur = mergeSegments(*cur, next)
			merges++
			continue
		}
		out = append(out, next)
	}
	return out, merges
}

func (p *Planner) shouldMerge(a, b model.TimeSegment) bool {
	if a.Type != b.Type {
		return false
	}
	short := a.Duration() < p.cfg.MinSegmentSec || b.Duration() < p.cfg.MinSegmentSec
	near := b.StartSec-a.EndSec < p.cfg.MergeGapSec
	return short || near
}

func mergeSegments(a, b model.TimeSegment) model.TimeSegment {
	da, db := a.Duration(), b.Duration()
	out := a
	out.StartSec = math.Min(a.StartSec, b.StartSec)
	out.EndSec = math.Max(a.EndSec, b.EndSec)
	if b.Importance > out.Importance {
		out.Importance = b.Importance
	}
	if da+db > 0 {
		out.Confidence = (a.Confidence*da + b.Confidence*db) / (da + db)
	}
	if a.Team != b.Team {
		out.Team = ""
	}
	parts := make([]string, 0, 2)
	for _, d := range []string{a.Description, b.Description} {
		if d != "" {
			parts = append(parts, d)
		}
	}
	out.Description = strings.Join(parts, "; ")
	return out
}

// slice emits the windows of one segment. The second return reports whether
// the per-segment cap forced an early final window.
func (p *Planner) slice(seg model.TimeSegment) ([]model.AnalysisWindow, bool) {
	length, step := p.cfg.LengthSec, p.cfg.Step()
	rate := p.cfg.sampleRate(seg.Type)

	var out []model.AnalysisWindow
	capped := false
	for i := 0; ; i++ {
		start := seg.StartSec + float64(i)*step
		end := math.Min(start+length, seg.EndSec)
		last := end >= seg.EndSec
		if !last && i == p.cfg.MaxWindowsPerSegment-1 {
			end = seg.EndSec
			last = true
			capped = true
		}
		out = append(out, model.AnalysisWindow{
			ID:               windowID(seg.ID, i),
			SegmentID:        seg.ID,
			SegmentType:      seg.Type,
			Index:            i,
			AbsoluteStart:    start,
			AbsoluteEnd:      end,
			TargetSampleRate: rate,
		})
		if last {
			break
		}
	}

	for i := range out {
		if i > 0 {
			out[i].OverlapBefore = math.Max(0, out[i-1].AbsoluteEnd-out[i].AbsoluteStart)
		}
		if i < len(out)-1 {
			out[i].OverlapAfter = math.Max(0, out[i].AbsoluteEnd-out[i+1].AbsoluteStart)
		}
	}
	return out, capped
}

func windowID(segmentID string, index int) string {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%s:%d", segmentID, index))).String()
}
