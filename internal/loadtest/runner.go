package loadtest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pitchside/pkg/logger"
)

const percent = 100

// Runner generates synthetic matches and submits them to a server.
type Runner struct {
	cfg     Config
	planner Planner
	client  *httpClient
	log     logger.Logger
}

// NewRunner validates cfg and builds a Runner. Windows are planned locally
// with p and sent explicitly, so the server's window settings do not matter.
func NewRunner(cfg Config, p Planner, opts ...Option) (*Runner, error) {
	switch {
	case cfg.BaseURL == "":
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	case cfg.Matches <= 0:
		return nil, fmt.Errorf("%w: matches must be positive", ErrInvalidConfig)
	case cfg.Workers <= 0:
		return nil, fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case cfg.Version == "":
		return nil, fmt.Errorf("%w: version is required", ErrInvalidConfig)
	case p == nil:
		return nil, fmt.Errorf("%w: planner is required", ErrInvalidConfig)
	}
	if err := cfg.validateShape(); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:     cfg,
		planner: p,
		client:  newHTTPClient(cfg.BaseURL, cfg.Timeout),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Named("loadtest")
	return r, nil
}

// Run executes the complete load test. It returns ErrRunFailed when any
// submission failed or did not reproduce its ground truth.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	stats := Stats{StartTime: time.Now()}
	r.log.Info(ctx, "starting load test",
		logger.String("baseURL", r.cfg.BaseURL),
		logger.Int("matches", r.cfg.Matches),
		logger.Int("workers", r.cfg.Workers),
		logger.String("version", r.cfg.Version))

	if err := r.client.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	matches := make([]Match, 0, r.cfg.Matches)
	for i := 0; i < r.cfg.Matches; i++ {
		id := fmt.Sprintf("%s-%04d", r.cfg.Prefix, i+1)
		m, err := Generate(ctx, r.planner, id, r.cfg, r.cfg.Seed+uint64(i))
		if err != nil {
			return stats, fmt.Errorf("generate %s: %w", id, err)
		}
		stats.Actions += len(m.Truth)
		stats.Detections += m.Detections()
		matches = append(matches, m)
	}
	stats.MatchesGenerated = len(matches)

	r.submit(ctx, matches, &stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	r.logFinalStats(ctx, stats)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if stats.Failed > 0 || stats.Mismatched > 0 {
		return stats, fmt.Errorf("%w: %d failed, %d mismatched of %d",
			ErrRunFailed, stats.Failed, stats.Mismatched, stats.Submitted)
	}
	return stats, nil
}

// submit posts matches from a worker pool and verifies each created analysis.
func (r *Runner) submit(ctx context.Context, matches []Match, stats *Stats) {
	var submitted, accepted, conflicts, failed, verified, mismatched int64
	tolerance := r.cfg.JitterSec + 1e-6

	jobs := make(chan Match, r.cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if ctx.Err() != nil {
					return
				}
				atomic.AddInt64(&submitted, 1)
				a, outcome, err := r.client.submit(ctx, m, r.cfg.Version)
				switch outcome {
				case outcomeConflict:
					atomic.AddInt64(&conflicts, 1)
					r.log.Warn(ctx, "version already stored", logger.String("match", m.ID))
					continue
				case outcomeFailed:
					atomic.AddInt64(&failed, 1)
					r.log.Error(ctx, "submission failed", logger.String("match", m.ID), logger.Error(err))
					continue
				}
				atomic.AddInt64(&accepted, 1)
				if err := Verify(m, a, tolerance); err != nil {
					atomic.AddInt64(&mismatched, 1)
					r.log.Error(ctx, "verification failed", logger.String("match", m.ID), logger.Error(err))
					continue
				}
				atomic.AddInt64(&verified, 1)
				r.log.Debug(ctx, "match verified",
					logger.String("match", m.ID),
					logger.Int("events", len(a.Events)),
					logger.Int("merged", a.Stats.Merged))
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, m := range matches {
			select {
			case <-ctx.Done():
				return
			case jobs <- m:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(submitted)
	stats.Accepted = int(accepted)
	stats.Conflicts = int(conflicts)
	stats.Failed = int(failed)
	stats.Verified = int(verified)
	stats.Mismatched = int(mismatched)
}

func (r *Runner) logFinalStats(ctx context.Context, stats Stats) {
	var successRate, matchesPerSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Verified) / float64(stats.Submitted) * percent
	}
	if stats.Duration > 0 {
		matchesPerSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	r.log.Info(ctx, "final statistics",
		logger.Int("matchesGenerated", stats.MatchesGenerated),
		logger.Int("actions", stats.Actions),
		logger.Int("detections", stats.Detections),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("conflicts", stats.Conflicts),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
		logger.Int("mismatched", stats.Mismatched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("matchesPerSecond", matchesPerSecond))
}
