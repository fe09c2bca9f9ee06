// Package worker sends queued analysis windows to the annotator.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/okian/pitchside/internal/adapters/mq/queue"
	"github.com/okian/pitchside/internal/domain/dedupe"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/pkg/logger"
	"github.com/okian/pitchside/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultConcurrency  = 5
	defaultTimeout      = 60 * time.Second
	defaultMaxAttempts  = 3
	defaultBackoff      = 500 * time.Millisecond
	enqueueRetryDelay   = 10 * time.Millisecond
	poolShutdownTimeout = 30 * time.Second
)

// Annotator is the external video-understanding service. It returns the
// records it detected inside one window.
type Annotator interface {
	Annotate(ctx context.Context, w model.AnalysisWindow) ([]model.RawEvent, error)
}

// AnnotatorFunc adapts a function to Annotator.
type AnnotatorFunc func(ctx context.Context, w model.AnalysisWindow) ([]model.RawEvent, error)

// Annotate calls f.
func (f AnnotatorFunc) Annotate(ctx context.Context, w model.AnalysisWindow) ([]model.RawEvent, error) {
	return f(ctx, w)
}

// Result is the outcome of one dispatched window.
type Result struct {
	MatchID  string
	Version  string
	Window   model.AnalysisWindow
	Events   []model.RawEvent
	Attempts int
	// Duplicate is set when the window had already been dispatched.
	Duplicate bool
	Err       error
}

// Sink receives results as windows complete, in any order.
type Sink interface {
	Collect(ctx context.Context, r Result)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for annotating windows.
type InMemoryWorker struct {
	queue     Queue
	annotator Annotator
	sink      Sink
	seen      dedupe.Deduper
	name      string

	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, a Annotator, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		annotator:   a,
		sink:        sink,
		name:        "worker",
		timeout:     defaultTimeout,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: shutdown timed out: %w", ErrStopped, ctx.Err())
	}
}

// SeenKey is the seen-set key of one window of one analysis version.
func SeenKey(matchID, version, windowID string) string {
	return matchID + "@" + version + "/" + windowID
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	res := Result{MatchID: job.MatchID, Version: job.Version, Window: job.Window}
	key := SeenKey(job.MatchID, job.Version, job.Window.ID)
	if w.seen != nil && w.seen.SeenAndRecord(ctx, key) {
		res.Duplicate = true
		w.logger.Debug(ctx, "window already dispatched", logger.String("window", job.Window.ID))
		w.sink.Collect(ctx, res)
		return
	}

	res.Events, res.Attempts, res.Err = w.annotate(ctx, job.Window)
	if res.Err != nil {
		// A failed window may be dispatched again by a later run.
		if w.seen != nil {
			w.seen.Unrecord(ctx, key)
		}
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "annotate_error")
		w.logger.Error(ctx, "annotation failed",
			logger.String("window", job.Window.ID),
			logger.Int("attempts", res.Attempts),
			logger.Error(res.Err))
		res.Err = fmt.Errorf("%w: window %s after %d attempts: %w", ErrAnnotate, job.Window.ID, res.Attempts, res.Err)
	}
	w.sink.Collect(ctx, res)
}

// annotate calls the annotator with a per-call timeout, retrying transient failures.
func (w *InMemoryWorker) annotate(ctx context.Context, win model.AnalysisWindow) ([]model.RawEvent, int, error) {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		events, err := w.call(ctx, win)
		if err == nil {
			return events, attempt, nil
		}
		lastErr = err
		metrics.RecordAnnotatorError()
		if attempt == w.maxAttempts || !shouldRetry(ctx, err) {
			return nil, attempt, lastErr
		}

		metrics.RecordAnnotatorRetry()
		w.logger.Warn(ctx, "retrying window",
			logger.String("window", win.ID),
			logger.Int("attempt", attempt),
			logger.Error(err))
		select {
		case <-time.After(w.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		}
	}
	return nil, w.maxAttempts, lastErr
}

func (w *InMemoryWorker) call(ctx context.Context, win model.AnalysisWindow) ([]model.RawEvent, error) {
	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	metrics.AddAnnotatorInFlight(1)
	defer metrics.AddAnnotatorInFlight(-1)

	start := time.Now()
	events, err := w.annotator.Annotate(callCtx, win)
	metrics.RecordAnnotatorLatency(float64(time.Since(start).Milliseconds()))
	return events, err
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers sharing opts.
func NewPool(workerCount int, q Queue, a Annotator, sink Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultConcurrency
	}
	shared := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(shared)
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  shared.logger.Named("pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append(append([]Option(nil), opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, a, sink, wopts...)
	}
	metrics.UpdateWorkerActiveCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown closes the queue and waits for every worker to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for _, worker := range p.workers {
		close(worker.shutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("%w: pool shutdown timed out", ErrStopped)
	}
	return nil
}

// Dispatcher annotates every window of a run through a bounded queue and a
// fixed number of concurrent workers.
type Dispatcher struct {
	annotator   Annotator
	concurrency int
	queueSize   int
	opts        []Option
}

// NewDispatcher returns a Dispatcher; opts apply to every worker it starts.
func NewDispatcher(a Annotator, concurrency, queueSize int, opts ...Option) *Dispatcher {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Dispatcher{annotator: a, concurrency: concurrency, queueSize: queueSize, opts: opts}
}

type chanSink chan Result

func (s chanSink) Collect(ctx context.Context, r Result) {
	select {
	case s <- r:
	case <-ctx.Done():
	}
}

// Dispatch sends windows to the annotator and returns one Result per window,
// ordered by window start. Per-window failures are reported in Result.Err;
// the returned error is set only when ctx ends before every window finished.
func (d *Dispatcher) Dispatch(ctx context.Context, matchID, version string, windows []model.AnalysisWindow) ([]Result, error) {
	if len(windows) == 0 {
		return []Result{}, nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	q := queue.NewInMemoryQueue(queue.WithCapacity(d.queueSize))
	sink := make(chanSink, len(windows))
	pool := NewPool(d.concurrency, q, d.annotator, sink, d.opts...)
	pool.Start(runCtx)
	defer func() {
		cancel()
		_ = pool.Shutdown(context.WithoutCancel(ctx))
	}()

	feedErr := make(chan error, 1)
	go func() {
		feedErr <- feed(runCtx, q, queue.Job{MatchID: matchID, Version: version}, windows)
	}()

	results := make([]Result, 0, len(windows))
	for len(results) < len(windows) {
		select {
		case r := <-sink:
			results = append(results, r)
		case err := <-feedErr:
			if err != nil {
				return sortResults(results), err
			}
			feedErr = nil
		case <-ctx.Done():
			return sortResults(results), ctx.Err()
		}
	}
	return sortResults(results), nil
}

// feed enqueues windows, backing off while the queue is full.
func feed(ctx context.Context, q *queue.InMemoryQueue, run queue.Job, windows []model.AnalysisWindow) error {
	for _, w := range windows {
		job := run
		job.Window = w
		for {
			err := q.Enqueue(ctx, job)
			if err == nil {
				break
			}
			if !errors.Is(err, queue.ErrQueueFull) {
				return err
			}
			select {
			case <-time.After(enqueueRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func sortResults(results []Result) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Window, results[j].Window
		if a.AbsoluteStart != b.AbsoluteStart {
			return a.AbsoluteStart < b.AbsoluteStart
		}
		return a.ID < b.ID
	})
	return results
}
