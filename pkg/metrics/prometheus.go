// Package metrics provides Prometheus metrics for the pitchside reconciliation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric naming and refresh defaults.
const (
	namespace              = "pitchside"
	subsystem              = "core"
	defaultRefreshInterval = 10 * time.Second
)

// latencyBuckets covers annotator round trips, which are seconds rather than milliseconds.
var latencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000} //nolint:gochecknoglobals // immutable bucket layout

// Manager manages all Prometheus metrics for the pitchside service.
type Manager struct {
	refreshInterval time.Duration
	registry        prometheus.Registerer

	// Planning and ingestion
	windowsPlanned    prometheus.Counter
	rawEventsIngested prometheus.Counter
	rawEventsDropped  *prometheus.CounterVec
	positionsRescaled *prometheus.CounterVec

	// Reconciliation
	eventsMerged      prometheus.Counter
	canonicalEvents   prometheus.Counter
	enrichedFields    *prometheus.CounterVec
	counterAttacks    prometheus.Counter
	formationChanges  *prometheus.CounterVec
	reviewFlagged     prometheus.Counter
	pipelineRuns      *prometheus.CounterVec
	pipelineDuration  prometheus.Histogram
	annotatorLatency  prometheus.Histogram
	annotatorErrors   prometheus.Counter
	annotatorRetries  prometheus.Counter
	annotatorInFlight prometheus.Gauge

	// Queue Metrics - window dispatch backlog
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker Metrics - dispatch performance
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Store Metrics
	storeOperations *prometheus.CounterVec
	storeLatency    prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.windowsPlanned = m.counter("windows_planned_total", "Total number of analysis windows planned")
	m.rawEventsIngested = m.counter("raw_events_ingested_total", "Total number of raw per-window events accepted")
	m.rawEventsDropped = m.counterVec("raw_events_dropped_total", "Raw events dropped as malformed, by reason", "reason")
	m.positionsRescaled = m.counterVec("positions_rescaled_total", "Positions rescaled or clamped during scale disambiguation", "kind")

	m.eventsMerged = m.counter("events_merged_total", "Raw events folded into an existing canonical event")
	m.canonicalEvents = m.counter("canonical_events_total", "Canonical events produced")
	m.enrichedFields = m.counterVec("enriched_fields_total", "Enrichment fields populated, by field", "field")
	m.counterAttacks = m.counter("counter_attacks_total", "Counter-attacks detected")
	m.formationChanges = m.counterVec("formation_changes_total", "Formation changes detected, by trigger", "trigger")
	m.reviewFlagged = m.counter("review_flagged_total", "Canonical events whose confidence assessment needs review")
	m.pipelineRuns = m.counterVec("pipeline_runs_total", "Pipeline runs by status", "status")
	m.pipelineDuration = m.histogram("pipeline_duration_milliseconds", "Reconciliation duration in milliseconds", prometheus.DefBuckets)

	m.annotatorLatency = m.histogram("annotator_latency_milliseconds", "Latency of a single window annotation call", latencyBuckets)
	m.annotatorErrors = m.counter("annotator_errors_total", "Failed window annotation calls")
	m.annotatorRetries = m.counter("annotator_retries_total", "Retried window annotation calls")
	m.annotatorInFlight = m.gauge("annotator_in_flight", "Window annotation calls currently in flight")

	m.queueSize = m.gauge("queue_size", "Current number of windows waiting for dispatch")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum dispatch queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Dispatch queue utilization (size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Windows enqueued for dispatch")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Windows dequeued for dispatch")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Windows rejected by the dispatch queue")

	m.workerActiveCount = m.gauge("worker_active_count", "Number of dispatch workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-window processing latency including retries", latencyBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Windows that failed after all attempts")

	m.storeOperations = m.counterVec("store_operations_total", "Result store operations", "op", "status")
	m.storeLatency = m.histogram("store_latency_milliseconds", "Result store operation latency", prometheus.DefBuckets)

	m.httpRequests = promauto.With(m.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordWindowsPlanned adds n planned windows.
func RecordWindowsPlanned(n int) {
	globalManager.windowsPlanned.Add(float64(n))
}

// RecordRawEventsIngested adds n accepted raw events.
func RecordRawEventsIngested(n int) {
	globalManager.rawEventsIngested.Add(float64(n))
}

// RecordRawEventDropped counts a dropped raw event.
func RecordRawEventDropped(reason string, n int) {
	globalManager.rawEventsDropped.WithLabelValues(reason).Add(float64(n))
}

// RecordPositionRescaled counts a rescaled position by kind (scaled, clamped).
func RecordPositionRescaled(kind string, n int) {
	globalManager.positionsRescaled.WithLabelValues(kind).Add(float64(n))
}

// RecordEventsMerged adds n raw events folded into canonical events.
func RecordEventsMerged(n int) {
	globalManager.eventsMerged.Add(float64(n))
}

// RecordCanonicalEvents adds n canonical events.
func RecordCanonicalEvents(n int) {
	globalManager.canonicalEvents.Add(float64(n))
}

// RecordEnrichedField adds n populated enrichment fields of the given name.
func RecordEnrichedField(field string, n int) {
	globalManager.enrichedFields.WithLabelValues(field).Add(float64(n))
}

// RecordCounterAttacks adds n detected counter-attacks.
func RecordCounterAttacks(n int) {
	globalManager.counterAttacks.Add(float64(n))
}

// RecordFormationChange counts a formation change by trigger.
func RecordFormationChange(trigger string) {
	globalManager.formationChanges.WithLabelValues(trigger).Inc()
}

// RecordReviewFlagged adds n canonical events needing review.
func RecordReviewFlagged(n int) {
	globalManager.reviewFlagged.Add(float64(n))
}

// RecordPipelineRun counts a pipeline run by status (ok, error).
func RecordPipelineRun(status string) {
	globalManager.pipelineRuns.WithLabelValues(status).Inc()
}

// RecordPipelineDuration records reconciliation duration in milliseconds.
func RecordPipelineDuration(latencyMs float64) {
	globalManager.pipelineDuration.Observe(latencyMs)
}

// RecordAnnotatorLatency records one annotation call latency in milliseconds.
func RecordAnnotatorLatency(latencyMs float64) {
	globalManager.annotatorLatency.Observe(latencyMs)
}

// RecordAnnotatorError increments the annotator error counter.
func RecordAnnotatorError() {
	globalManager.annotatorErrors.Inc()
}

// RecordAnnotatorRetry increments the annotator retry counter.
func RecordAnnotatorRetry() {
	globalManager.annotatorRetries.Inc()
}

// AddAnnotatorInFlight moves the in-flight gauge by delta.
func AddAnnotatorInFlight(delta int) {
	globalManager.annotatorInFlight.Add(float64(delta))
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of dispatch workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records per-window processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Store Metrics Functions.

// RecordStoreOperation counts a store operation and its latency.
func RecordStoreOperation(op, status string, latencyMs float64) {
	globalManager.storeOperations.WithLabelValues(op, status).Inc()
	globalManager.storeLatency.Observe(latencyMs)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records errors by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records errors by HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RefreshInterval reports how often callers should refresh the system gauges.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
