// Package metrics provides Prometheus metrics for the pcmatch assignment service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Solve outcomes used as the "outcome" label.
const (
	OutcomeSucceeded  = "succeeded"
	OutcomeInfeasible = "infeasible"
	OutcomeCancelled  = "cancelled"
	OutcomeError      = "error"
)

// Manager manages all Prometheus metrics for the pcmatch service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Core Business Metrics
	solves            *prometheus.CounterVec
	solveLatency      *prometheus.HistogramVec
	assignmentsTotal  *prometheus.CounterVec
	underservedPapers prometheus.Gauge
	conflictPairs     prometheus.Gauge
	duplicateSubmits  prometheus.Counter

	// Queue Metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker Metrics
	workerCount       prometheus.Gauge
	workerActiveCount prometheus.Gauge
	workerErrorRate   prometheus.Counter
	workerRetryCount  prometheus.Counter

	// Store Metrics
	storeLatency *prometheus.HistogramVec
	storeRecords prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
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
		namespace:        "pcmatch",
		subsystem:        "assign",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.solves = auto.NewCounterVec(
		m.counterOpts("solves_total", "Total number of solves by round and outcome"),
		[]string{"round", "outcome"},
	)
	m.solveLatency = auto.NewHistogramVec(
		m.histogramOpts("solve_latency_milliseconds", "Solve pipeline latency in milliseconds"),
		[]string{"round"},
	)
	m.assignmentsTotal = auto.NewCounterVec(
		m.counterOpts("assignments_total", "Total number of reviewer-paper assignments produced"),
		[]string{"round"},
	)
	m.underservedPapers = auto.NewGauge(
		m.gaugeOpts("underserved_papers", "Under-served papers in the most recent infeasible solve"))
	m.conflictPairs = auto.NewGauge(
		m.gaugeOpts("conflict_pairs", "Conflict pairs in the most recent solve"))
	m.duplicateSubmits = auto.NewCounter(
		m.counterOpts("duplicate_submits_total", "Submissions answered from the idempotency registry"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the solve queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Total number of jobs enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Total number of jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Total number of rejected enqueues"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured number of workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Number of workers currently solving"))
	m.workerErrorRate = auto.NewCounter(m.counterOpts("worker_errors_total", "Total number of worker errors"))
	m.workerRetryCount = auto.NewCounter(m.counterOpts("worker_retries_total", "Total number of persistence retries"))

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Store operation latency in milliseconds"),
		[]string{"op"},
	)
	m.storeRecords = auto.NewGauge(m.gaugeOpts("store_records", "Number of solve records in the store"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
}

// RecordSolve counts a finished solve and observes its latency.
func RecordSolve(round, outcome string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.solves.WithLabelValues(round, outcome).Inc()
	globalManager.solveLatency.WithLabelValues(round).Observe(latencyMs)
}

// RecordAssignments adds n produced assignments for a round.
func RecordAssignments(round string, n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.assignmentsTotal.WithLabelValues(round).Add(float64(n))
}

// UpdateUnderservedPapers sets the under-served count of the last infeasible solve.
func UpdateUnderservedPapers(n int) {
	globalManager.underservedPapers.Set(float64(n))
}

// UpdateConflictPairs sets the conflict pair count of the last solve.
func UpdateConflictPairs(n int) {
	globalManager.conflictPairs.Set(float64(n))
}

// RecordDuplicateSubmit increments the duplicate submission counter.
func RecordDuplicateSubmit() {
	globalManager.duplicateSubmits.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
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

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// IncWorkerActive marks one more worker as busy.
func IncWorkerActive() { globalManager.workerActiveCount.Inc() }

// DecWorkerActive marks a worker as idle again.
func DecWorkerActive() { globalManager.workerActiveCount.Dec() }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordWorkerRetry increments the persistence retry counter.
func RecordWorkerRetry() {
	globalManager.workerRetryCount.Inc()
}

// Store Metrics Functions.

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateStoreRecords sets the number of stored solve records.
func UpdateStoreRecords(count int) {
	globalManager.storeRecords.Set(float64(count))
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

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

var runtimeOnce sync.Once //nolint:gochecknoglobals // guards one-time collector registration

// RegisterRuntimeCollectors adds the Go runtime and process collectors to the
// custom registry. Later calls are no-ops.
func RegisterRuntimeCollectors() error {
	var err error
	runtimeOnce.Do(func() {
		err = customRegistry.Register(collectors.NewGoCollector())
		if err != nil {
			return
		}
		err = customRegistry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
	return err
}
