// Package service runs the reconciliation pipeline behind the API and CLI:
// plan windows, dispatch them to the annotator, deduplicate, enrich, analyze
// and store one analysis version.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pitchside/internal/adapters/mq/worker"
	"github.com/okian/pitchside/internal/adapters/repository"
	"github.com/okian/pitchside/internal/config"
	"github.com/okian/pitchside/internal/domain/dedupe"
	"github.com/okian/pitchside/internal/domain/enrich"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/pitch"
	"github.com/okian/pitchside/internal/domain/tactics"
	"github.com/okian/pitchside/internal/domain/window"
	"github.com/okian/pitchside/pkg/logger"
	"github.com/okian/pitchside/pkg/metrics"
)

// LatestVersion asks Get for the most recently stored version.
const LatestVersion = "latest"

// Request is everything one analysis version is computed from.
type Request struct {
	MatchID  string
	Version  string
	Segments []model.TimeSegment
	// Windows the events were annotated for. Planned from Segments when empty.
	Windows []model.AnalysisWindow
	Events  []model.RawEvent
	Tracks  []model.TrackSample
	// Ball is the tracked ball trajectory, used where events lack positions.
	Ball []model.BallSample
}

// Service implements the pipeline operations used by the API and CLI.
type Service struct {
	cfg       config.Config
	annotator worker.Annotator
	store     repository.Store
	now       func() time.Time
	logger    logger.Logger

	pitch    pitch.Pitch
	planner  *window.Planner
	enricher *enrich.Enricher
	analyzer *tactics.Analyzer
	seen     dedupe.Deduper

	mu    sync.RWMutex
	stats counters
}

type counters struct {
	runs        int
	failed      int
	windows     int
	events      int
	lastMatch   string
	lastVersion string
	lastRun     time.Time
}

// New validates the configuration and builds every pipeline stage.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		cfg:    *config.New(),
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	var err error
	s.pitch = pitch.New(s.cfg.Pitch)
	if s.planner, err = window.New(s.cfg.Window, window.WithLogger(s.logger.Named("window"))); err != nil {
		return nil, err
	}
	if s.enricher, err = enrich.New(s.cfg.Enrich,
		enrich.WithPitch(s.pitch),
		enrich.WithLogger(s.logger.Named("enrich")),
	); err != nil {
		return nil, err
	}
	if s.analyzer, err = tactics.New(s.cfg.Tactics,
		tactics.WithPitch(s.pitch),
		tactics.WithEnricher(s.enricher),
		tactics.WithLogger(s.logger.Named("tactics")),
	); err != nil {
		return nil, err
	}
	s.seen = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.Dispatch.SeenSize))
	s.logger = s.logger.Named("service")
	return s, nil
}

// Config returns the validated configuration.
func (s *Service) Config() config.Config { return s.cfg }

// Plan slices segments into analysis windows.
func (s *Service) Plan(ctx context.Context, segments []model.TimeSegment) ([]model.AnalysisWindow, window.Stats) {
	windows, stats := s.planner.Plan(ctx, segments)
	metrics.RecordWindowsPlanned(len(windows))
	s.logger.Debug(ctx, "planned windows",
		logger.Int("segments", stats.InputSegments),
		logger.Int("malformed", stats.Malformed),
		logger.Int("windows", stats.Windows))
	return windows, stats
}

// Run plans windows for segments, sends them to the annotator and reconciles
// the replies into a new analysis version. A run succeeds or fails as a
// whole; on failure none of its windows stay marked as dispatched, so the
// caller can retry the same version.
func (s *Service) Run(ctx context.Context, matchID, version string, segments []model.TimeSegment, tracking model.Tracking) (model.Analysis, error) {
	if s.annotator == nil {
		return model.Analysis{}, ErrNoAnnotator
	}
	if err := checkKey(matchID, version); err != nil {
		return model.Analysis{}, err
	}

	windows, _ := s.Plan(ctx, segments)
	d := worker.NewDispatcher(s.annotator, s.cfg.Dispatch.Concurrency, s.cfg.Dispatch.QueueSize,
		worker.WithLogger(s.logger),
		worker.WithTimeout(s.cfg.Dispatch.Timeout),
		worker.WithMaxAttempts(s.cfg.Dispatch.MaxAttempts),
		worker.WithBackoff(s.cfg.Dispatch.RetryBackoff),
		worker.WithSeen(s.seen),
	)
	results, err := d.Dispatch(ctx, matchID, version, windows)
	if err != nil {
		s.release(ctx, results)
		s.fail()
		return model.Analysis{}, fmt.Errorf("%w: dispatch: %w", ErrRunFailed, err)
	}

	var (
		raw        []model.RawEvent
		duplicates int
		failed     []error
	)
	for _, r := range results {
		switch {
		case r.Duplicate:
			duplicates++
		case r.Err != nil:
			failed = append(failed, r.Err)
		default:
			raw = append(raw, r.Events...)
		}
	}
	if duplicates > 0 {
		s.release(ctx, results)
		s.fail()
		return model.Analysis{}, fmt.Errorf("%w: %s@%s", ErrDuplicateRun, matchID, version)
	}
	if len(failed) > 0 {
		s.release(ctx, results)
		s.fail()
		return model.Analysis{}, fmt.Errorf("%w: %d of %d windows failed: %w", ErrRunFailed, len(failed), len(windows), failed[0])
	}

	a, err := s.Reconcile(ctx, Request{
		MatchID:  matchID,
		Version:  version,
		Segments: segments,
		Windows:  windows,
		Events:   raw,
		Tracks:   tracking.Players,
		Ball:     tracking.Ball,
	})
	if err != nil {
		s.release(ctx, results)
		return model.Analysis{}, err
	}
	return a, nil
}

// release forgets the windows this run dispatched successfully.
func (s *Service) release(ctx context.Context, results []worker.Result) {
	for _, r := range results {
		if r.Duplicate || r.Err != nil {
			continue
		}
		s.seen.Unrecord(ctx, worker.SeenKey(r.MatchID, r.Version, r.Window.ID))
	}
}

// Reconcile turns raw events into a new analysis version and stores it when
// a store is configured.
func (s *Service) Reconcile(ctx context.Context, req Request) (model.Analysis, error) {
	start := time.Now()
	if err := checkKey(req.MatchID, req.Version); err != nil {
		return model.Analysis{}, err
	}

	windows := req.Windows
	if len(windows) == 0 && len(req.Segments) > 0 {
		windows, _ = s.Plan(ctx, req.Segments)
	}
	events := make([]model.RawEvent, len(req.Events))
	for i, ev := range req.Events {
		if ev.MatchID == "" {
			ev.MatchID = req.MatchID
		}
		events[i] = ev
	}
	metrics.RecordRawEventsIngested(len(events))

	engine, err := dedupe.New(s.cfg.Dedupe,
		dedupe.WithLogger(s.logger.Named("dedupe")),
		dedupe.WithWindows(windows),
		dedupe.WithPitch(s.pitch),
		dedupe.WithConfidence(s.cfg.Confidence),
	)
	if err != nil {
		s.fail()
		return model.Analysis{}, err
	}
	canonical, ds := engine.Deduplicate(ctx, events)
	enriched, es := s.enricher.EnrichWith(ctx, canonical, req.Ball)
	result, timeline, ts := s.analyzer.Analyze(ctx, tactics.Input{
		Events:   enriched,
		Segments: req.Segments,
		Tracks:   req.Tracks,
	})

	a := model.Analysis{
		MatchID:   req.MatchID,
		Version:   req.Version,
		RunID:     uuid.NewString(),
		CreatedAt: s.now().UTC(),
		Windows:   windows,
		Events:    enriched,
		Tactics:   result,
		Timeline:  timeline,
		Stats: model.RunStats{
			Segments:         len(req.Segments),
			Windows:          len(windows),
			RawEvents:        ds.Input,
			Dropped:          ds.Dropped,
			Redelivered:      ds.Redelivered,
			Rescaled:         ds.Rescaled,
			Clamped:          ds.Clamped,
			Merged:           ds.Merged,
			Canonical:        ds.Output,
			Enriched:         es.Fields,
			CounterAttacks:   ts.CounterAttacks,
			FormationChanges: ts.Changes,
		},
	}
	record(a)

	if s.store != nil {
		if err := s.store.Save(ctx, a); err != nil {
			s.fail()
			return model.Analysis{}, fmt.Errorf("store analysis: %w", err)
		}
	}

	s.mu.Lock()
	s.stats.runs++
	s.stats.windows += len(windows)
	s.stats.events += len(enriched)
	s.stats.lastMatch, s.stats.lastVersion, s.stats.lastRun = a.MatchID, a.Version, a.CreatedAt
	s.mu.Unlock()

	metrics.RecordPipelineRun("ok")
	metrics.RecordPipelineDuration(float64(time.Since(start).Milliseconds()))
	s.logger.Info(ctx, "analysis reconciled",
		logger.String("match", a.MatchID),
		logger.String("version", a.Version),
		logger.String("run", a.RunID),
		logger.Int("raw", ds.Input),
		logger.Int("canonical", ds.Output),
		logger.Int("dropped", ds.DroppedTotal()))
	return a, nil
}

// Get returns a stored analysis. An empty version or LatestVersion returns
// the most recent one.
func (s *Service) Get(ctx context.Context, matchID, version string) (model.Analysis, error) {
	if s.store == nil {
		return model.Analysis{}, ErrNoStore
	}
	if version == "" || version == LatestVersion {
		return s.store.Latest(ctx, matchID)
	}
	return s.store.Get(ctx, matchID, version)
}

// Versions lists the stored versions of a match.
func (s *Service) Versions(ctx context.Context, matchID string) ([]model.VersionInfo, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.List(ctx, matchID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"runs":             s.stats.runs,
		"failedRuns":       s.stats.failed,
		"windowsPlanned":   s.stats.windows,
		"eventsReconciled": s.stats.events,
		"seenWindows":      s.seen.Size(),
		"annotator":        s.annotator != nil,
		"store":            s.store != nil,
		"concurrency":      s.cfg.Dispatch.Concurrency,
		"queueSize":        s.cfg.Dispatch.QueueSize,
	}
	if s.stats.runs > 0 {
		stats["lastMatch"] = s.stats.lastMatch
		stats["lastVersion"] = s.stats.lastVersion
		stats["lastRunAt"] = s.stats.lastRun
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	return stats
}

func (s *Service) fail() {
	s.mu.Lock()
	s.stats.failed++
	s.mu.Unlock()
	metrics.RecordPipelineRun("error")
	metrics.RecordErrorByComponent("service", "run_failed")
}

func checkKey(matchID, version string) error {
	if matchID == "" {
		return fmt.Errorf("%w: match id is required", ErrInvalidRequest)
	}
	if version == "" || version == LatestVersion {
		return fmt.Errorf("%w: version %q is not storable", ErrInvalidRequest, version)
	}
	return nil
}

// record publishes the per-stage counters of one analysis.
func record(a model.Analysis) {
	st := a.Stats
	for _, reason := range sortedKeys(st.Dropped) {
		metrics.RecordRawEventDropped(reason, st.Dropped[reason])
	}
	metrics.RecordPositionRescaled("rescaled", st.Rescaled)
	metrics.RecordPositionRescaled("clamped", st.Clamped)
	metrics.RecordEventsMerged(st.Merged)
	metrics.RecordCanonicalEvents(st.Canonical)
	for _, field := range sortedKeys(st.Enriched) {
		metrics.RecordEnrichedField(field, st.Enriched[field])
	}
	metrics.RecordCounterAttacks(st.CounterAttacks)
	for trigger, n := range st.FormationChanges {
		for i := 0; i < n; i++ {
			metrics.RecordFormationChange(string(trigger))
		}
	}
	review := 0
	for _, ev := range a.Events {
		if ev.Quality.NeedsReview {
			review++
		}
	}
	metrics.RecordReviewFlagged(review)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
