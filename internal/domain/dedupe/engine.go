// Package dedupe collapses per-window detections of the same real action into
// canonical events.
//
// Clustering runs to a fixpoint over a canonical ordering of the input, so
// the result does not depend on arrival order and re-merging the output is a
// no-op.
package dedupe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/pitchside/internal/domain/confidence"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/pitch"
	"github.com/okian/pitchside/pkg/logger"
)

var (
	canonicalNamespace   = uuid.NewSHA1(uuid.NameSpaceOID, []byte("pitchside.canonical"))   //nolint:gochecknoglobals // constant namespace
	fingerprintNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("pitchside.fingerprint")) //nolint:gochecknoglobals // constant namespace
)

// Stats summarizes one deduplication run.
type Stats struct {
	Input       int            `json:"input"`
	Dropped     map[string]int `json:"dropped,omitempty"`
	Redelivered int            `json:"redelivered"`
	Rescaled    int            `json:"rescaled"`
	Clamped     int            `json:"clamped"`
	Merged      int            `json:"merged"`
	Output      int            `json:"output"`
}

// DroppedTotal returns the number of malformed events dropped.
func (s Stats) DroppedTotal() int {
	n := 0
	for _, v := range s.Dropped {
		n += v
	}
	return n
}

// Engine deduplicates raw events for one configuration.
type Engine struct {
	cfg     Config
	log     logger.Logger
	pitch   pitch.Pitch
	quality confidence.Config
	spans   map[string]model.AnalysisWindow
}

// New validates cfg and returns an Engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:     cfg,
		log:     logger.Nop(),
		pitch:   pitch.Default(),
		quality: confidence.DefaultConfig(),
		spans:   make(map[string]model.AnalysisWindow),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func defaultEngine() *Engine {
	e, _ := New(DefaultConfig())
	return e
}

// Deduplicate merges raw events with the default configuration.
func Deduplicate(raw []model.RawEvent) []model.CanonicalEvent {
	out, _ := defaultEngine().Deduplicate(context.Background(), raw)
	return out
}

// Merge re-merges canonical events with the default configuration.
func Merge(canonical []model.CanonicalEvent) []model.CanonicalEvent {
	return defaultEngine().Merge(context.Background(), canonical)
}

// Deduplicate validates, normalizes and merges raw events. Malformed events
// are dropped and counted by reason; ambiguous positions are repaired.
func (e *Engine) Deduplicate(ctx context.Context, raw []model.RawEvent) ([]model.CanonicalEvent, Stats) {
	stats := Stats{Input: len(raw), Dropped: map[string]int{}}
	seen := NewInMemoryDeduper(WithMaxSize(0))

	clusters := make([]*cluster, 0, len(raw))
	for _, ev := range raw {
		if err := e.check(ev); err != nil {
			reason := model.ReasonOf(err)
			stats.Dropped[reason]++
			e.log.Warn(ctx, "dropping malformed event",
				logger.String("window", ev.WindowID),
				logger.String("reason", reason),
				logger.Error(err))
			continue
		}
		if seen.SeenAndRecord(ctx, fingerprint(ev)) {
			stats.Redelivered++
			continue
		}
		ev = e.normalize(ctx, ev, &stats)
		clusters = append(clusters, newCluster(ev))
	}
	if len(stats.Dropped) == 0 {
		stats.Dropped = nil
	}

	accepted := len(clusters)
	out := e.emit(e.fixpoint(clusters))
	stats.Output = len(out)
	stats.Merged = accepted - len(out)

	e.log.Debug(ctx, "deduplicated events",
		logger.Int("input", stats.Input),
		logger.Int("output", stats.Output),
		logger.Int("merged", stats.Merged),
		logger.Int("dropped", stats.DroppedTotal()))
	return out, stats
}

func (e *Engine) check(ev model.RawEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	return ev.ValidateHorizon(e.cfg.MaxMatchSec)
}

// Merge re-applies clustering to canonical events. Applying it to the output
// of Deduplicate or Merge returns the same events.
func (e *Engine) Merge(ctx context.Context, canonical []model.CanonicalEvent) []model.CanonicalEvent {
	clusters := make([]*cluster, 0, len(canonical))
	for _, c := range canonical {
		clusters = append(clusters, liftCanonical(c))
	}
	out := e.emit(e.fixpoint(clusters))
	e.log.Debug(ctx, "merged canonical events", logger.Int("input", len(canonical)), logger.Int("output", len(out)))
	return out
}

func (e *Engine) normalize(ctx context.Context, ev model.RawEvent, stats *Stats) model.RawEvent {
	fix := func(field string, p *model.Position) *model.Position {
		if p == nil {
			return nil
		}
		norm, scale := NormalizePosition(*p)
		switch scale {
		case ScalePercent:
			stats.Rescaled++
		case ScaleAmbiguous:
			stats.Clamped++
			e.log.Warn(ctx, "ambiguous position scale",
				logger.String("window", ev.WindowID),
				logger.String("field", field),
				logger.Float64("x", p.X),
				logger.Float64("y", p.Y),
				logger.Float64("normalized_x", norm.X),
				logger.Float64("normalized_y", norm.Y))
		case ScaleUnit:
		}
		return &norm
	}
	ev.Position = fix("position", ev.Position)
	ev.Details.EndPosition = fix("details.endPosition", ev.Details.EndPosition)
	return ev
}

// fixpoint repeats greedy merge passes over the canonical order until a pass
// merges nothing.
func (e *Engine) fixpoint(clusters []*cluster) []*cluster {
	for {
		sortClusters(clusters)
		out := make([]*cluster, 0, len(clusters))
		merged := false
		for _, c := range clusters {
			joined := false
			for i, o := range out {
				if e.compatible(o, c) {
					out[i] = combine(o, c)
					merged, joined = true, true
					break
				}
			}
			if !joined {
				out = append(out, c)
			}
		}
		clusters = out
		if !merged {
			return clusters
		}
	}
}

// compatible reports whether two clusters describe the same action.
func (e *Engine) compatible(a, b *cluster) bool {
	if a.rep.Type != b.rep.Type || a.rep.Team != b.rep.Team || a.rep.MatchID != b.rep.MatchID {
		return false
	}
	if math.Abs(a.rep.AbsoluteTimestamp-b.rep.AbsoluteTimestamp) > e.cfg.TimeToleranceSec {
		return false
	}
	if !disjoint(a.windows, b.windows) {
		return false
	}
	if a.rep.Position != nil && b.rep.Position != nil &&
		e.pitch.DistanceMeters(*a.rep.Position, *b.rep.Position) > e.cfg.DistanceToleranceMeters {
		return false
	}
	rep := better(a, b).rep
	for _, ws := range [][]string{a.windows, b.windows} {
		for _, id := range ws {
			if span, ok := e.spans[id]; ok && !span.Contains(rep.AbsoluteTimestamp) {
				return false
			}
		}
	}
	return true
}

func (e *Engine) emit(clusters []*cluster) []model.CanonicalEvent {
	out := make([]model.CanonicalEvent, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, e.canonical(c))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AbsoluteTimestamp != b.AbsoluteTimestamp {
			return a.AbsoluteTimestamp < b.AbsoluteTimestamp
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		return a.ID < b.ID
	})
	return out
}

func (e *Engine) canonical(c *cluster) model.CanonicalEvent {
	rep := c.rep
	windows := append([]string(nil), c.windows...)
	stamps := append([]float64(nil), c.timestamps...)
	return model.CanonicalEvent{
		ID:                     canonicalID(c),
		MatchID:                rep.MatchID,
		RelativeTimestamp:      rep.RelativeTimestamp,
		AbsoluteTimestamp:      rep.AbsoluteTimestamp,
		Type:                   rep.Type,
		Team:                   rep.Team,
		Player:                 rep.Player,
		Zone:                   rep.Zone,
		Position:               rep.Position,
		PositionConfidence:     rep.PositionConfidence,
		Details:                rep.Details,
		Confidence:             rep.Confidence,
		MergedFromWindows:      windows,
		OriginalTimestamps:     stamps,
		Contributors:           c.contributors,
		PositionedContributors: c.positioned,
		AdjustedConfidence:     e.adjusted(c),
		Quality:                e.assess(c),
	}
}

// adjusted boosts the best contributor confidence per extra contributor.
// Extra contributors without a position earn the smaller bonus.
func (e *Engine) adjusted(c *cluster) float64 {
	extra := c.contributors - 1
	unpositioned := min(c.contributors-c.positioned, extra)
	v := c.rep.Confidence +
		e.cfg.MergeBonus*float64(extra-unpositioned) +
		e.cfg.UnpositionedBonus*float64(unpositioned)
	return math.Min(1, v)
}

func (e *Engine) assess(c *cluster) confidence.Assessment {
	matching := math.Min(1, 0.5+0.25*float64(c.contributors-1))
	temporal := 1.0
	if n := len(c.timestamps); n > 1 {
		spread := c.timestamps[n-1] - c.timestamps[0]
		temporal = pitch.Clamp01(1 - spread/e.cfg.TimeToleranceSec)
	}
	return e.quality.Calculate(confidence.Signals{
		Detection: c.rep.Confidence,
		Matching:  matching,
		Temporal:  temporal,
	})
}

// cluster is a set of detections believed to be one action.
type cluster struct {
	rep          model.RawEvent // representative; WindowID is cleared
	repKey       string
	windows      []string  // sorted, distinct
	timestamps   []float64 // sorted
	contributors int
	positioned   int
}

func newCluster(ev model.RawEvent) *cluster {
	c := &cluster{
		windows:      []string{ev.WindowID},
		timestamps:   []float64{ev.AbsoluteTimestamp},
		contributors: 1,
	}
	if ev.Position != nil {
		c.positioned = 1
	}
	ev.WindowID = ""
	c.rep = ev
	c.repKey = fingerprint(ev)
	return c
}

func liftCanonical(ev model.CanonicalEvent) *cluster {
	rep := model.RawEvent{
		MatchID:            ev.MatchID,
		RelativeTimestamp:  ev.RelativeTimestamp,
		AbsoluteTimestamp:  ev.AbsoluteTimestamp,
		Type:               ev.Type,
		Team:               ev.Team,
		Player:             ev.Player,
		Zone:               ev.Zone,
		Position:           ev.Position,
		PositionConfidence: ev.PositionConfidence,
		Details:            ev.Details,
		Confidence:         ev.Confidence,
	}
	windows := append([]string(nil), ev.MergedFromWindows...)
	sort.Strings(windows)
	stamps := append([]float64(nil), ev.OriginalTimestamps...)
	sort.Float64s(stamps)
	contributors := ev.Contributors
	if contributors < 1 {
		contributors = 1
	}
	return &cluster{
		rep:          rep,
		repKey:       fingerprint(rep),
		windows:      windows,
		timestamps:   stamps,
		contributors: contributors,
		positioned:   min(ev.PositionedContributors, contributors),
	}
}

func combine(a, b *cluster) *cluster {
	best := better(a, b)
	stamps := make([]float64, 0, len(a.timestamps)+len(b.timestamps))
	stamps = append(stamps, a.timestamps...)
	stamps = append(stamps, b.timestamps...)
	sort.Float64s(stamps)
	windows := make([]string, 0, len(a.windows)+len(b.windows))
	windows = append(windows, a.windows...)
	windows = append(windows, b.windows...)
	sort.Strings(windows)
	return &cluster{
		rep:          best.rep,
		repKey:       best.repKey,
		windows:      windows,
		timestamps:   stamps,
		contributors: a.contributors + b.contributors,
		positioned:   a.positioned + b.positioned,
	}
}

// better picks the representative: highest confidence, then earliest
// timestamp, then smallest window set, then content.
func better(a, b *cluster) *cluster {
	switch {
	case a.rep.Confidence != b.rep.Confidence:
		if a.rep.Confidence > b.rep.Confidence {
			return a
		}
		return b
	case a.rep.AbsoluteTimestamp != b.rep.AbsoluteTimestamp:
		if a.rep.AbsoluteTimestamp < b.rep.AbsoluteTimestamp {
			return a
		}
		return b
	case a.windowKey() != b.windowKey():
		if a.windowKey() < b.windowKey() {
			return a
		}
		return b
	case b.repKey < a.repKey:
		return b
	default:
		return a
	}
}

func (c *cluster) windowKey() string {
	return strings.Join(c.windows, ",")
}

func (c *cluster) less(o *cluster) bool {
	switch {
	case c.rep.AbsoluteTimestamp != o.rep.AbsoluteTimestamp:
		return c.rep.AbsoluteTimestamp < o.rep.AbsoluteTimestamp
	case c.rep.Type != o.rep.Type:
		return c.rep.Type < o.rep.Type
	case c.rep.Team != o.rep.Team:
		return c.rep.Team < o.rep.Team
	case c.rep.MatchID != o.rep.MatchID:
		return c.rep.MatchID < o.rep.MatchID
	case c.repKey != o.repKey:
		return c.repKey < o.repKey
	case c.windowKey() != o.windowKey():
		return c.windowKey() < o.windowKey()
	case c.contributors != o.contributors:
		return c.contributors < o.contributors
	default:
		return stampKey(c.timestamps) < stampKey(o.timestamps)
	}
}

func sortClusters(cs []*cluster) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].less(cs[j]) })
}

func disjoint(a, b []string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return false
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return true
}

func stampKey(ts []float64) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = strconv.FormatFloat(t, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// fingerprint is a content hash of a raw event.
func fingerprint(ev model.RawEvent) string {
	data, err := json.Marshal(ev)
	if err != nil {
		// Validated events always marshal; fall back to the printed form.
		data = []byte(fmt.Sprintf("%#v", ev))
	}
	return uuid.NewSHA1(fingerprintNamespace, data).String()
}

func canonicalID(c *cluster) string {
	key := strings.Join([]string{c.rep.MatchID, string(c.rep.Type), c.rep.Team, c.windowKey(), c.repKey}, "|")
	return uuid.NewSHA1(canonicalNamespace, []byte(key)).String()
}
