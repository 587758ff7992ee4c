// Package metrics provides Prometheus metrics for the facepunch attendance engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame outcome label values.
const (
	FrameMatched       = "matched"
	FrameUnknown       = "unknown"
	FrameNoFace        = "no_face"
	FrameMultipleFaces = "multiple_faces"
	FrameError         = "error"
)

// Manager manages all Prometheus metrics for the attendance engine.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	distanceBuckets []float64
	constLabels     map[string]string
	registry        prometheus.Registerer

	// Confirmation engine
	framesObserved *prometheus.CounterVec
	matchDistance  prometheus.Histogram
	streakResets   prometheus.Counter
	confirmations  prometheus.Counter
	duplicates     prometheus.Counter

	// Sessions and enrollment
	sessions        *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	enrollments     *prometheus.CounterVec
	enrolledUsers   prometheus.Gauge
	ledgerRecords   prometheus.Gauge
	storageErrors   *prometheus.CounterVec

	// Frame pipeline
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDropped     *prometheus.CounterVec
	detectLatency    prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// Process
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge
	gcPause        prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "facepunch",
		subsystem:       "attendance",
		latencyBuckets:  []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		distanceBuckets: []float64{0.1, 0.2, 0.3, 0.4, 0.45, 0.5, 0.55, 0.6, 0.7, 0.8, 1.0, 1.5},
		constLabels:     map[string]string{},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.framesObserved = m.counterVec("frames_observed_total",
		"Sampled frames fed to the confirmation state machine, by outcome", "outcome")
	m.matchDistance = m.histogram("match_distance",
		"Euclidean distance of the best reference for single-face probes", m.distanceBuckets)
	m.streakResets = m.counter("streak_resets_total",
		"Times a non-empty streak was interrupted by a different or missing identity")
	m.confirmations = m.counter("confirmations_total",
		"Identities confirmed by a sustained streak")
	m.duplicates = m.counter("duplicates_rejected_total",
		"Confirmed identities rejected by the ledger guard as duplicates")

	m.sessions = m.counterVec("sessions_total",
		"Identification sessions by action and outcome", "action", "outcome")
	m.sessionDuration = m.histogram("session_duration_milliseconds",
		"Wall time of identification sessions in milliseconds", m.latencyBuckets)
	m.enrollments = m.counterVec("enrollments_total",
		"Enrollment attempts by outcome", "outcome")
	m.enrolledUsers = m.gauge("enrolled_users",
		"Users currently present in the embedding store")
	m.ledgerRecords = m.gauge("ledger_records",
		"Attendance records held in the ledger")
	m.storageErrors = m.counterVec("storage_errors_total",
		"Persistence failures by operation", "op")

	m.queueSize = m.gauge("frame_queue_size", "Probes waiting in the frame queue")
	m.queueCapacity = m.gauge("frame_queue_capacity", "Capacity of the frame queue")
	m.queueUtilization = m.gauge("frame_queue_utilization", "Frame queue utilization (0-1)")
	m.queueEnqueued = m.counter("frame_queue_enqueued_total", "Probes enqueued")
	m.queueDropped = m.counterVec("frame_queue_rejected_total", "Probes rejected by the frame queue", "reason")
	m.detectLatency = m.histogram("detect_latency_milliseconds",
		"Latency of the external face detector per frame in milliseconds", m.latencyBuckets)

	m.httpRequests = promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")

	m.memoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated by the process")
	m.goroutineCount = m.gauge("system_goroutines", "Number of running goroutines")
	m.gcPause = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds", m.latencyBuckets)
}

// RecordFrame counts a sampled frame by outcome (see Frame* constants).
func RecordFrame(outcome string) {
	globalManager.framesObserved.WithLabelValues(outcome).Inc()
}

// RecordMatchDistance observes the distance of the best reference for a probe.
func RecordMatchDistance(distance float64) {
	globalManager.matchDistance.Observe(distance)
}

// RecordStreakReset counts an interrupted streak.
func RecordStreakReset() {
	globalManager.streakResets.Inc()
}

// RecordConfirmation counts a confirmed identity.
func RecordConfirmation() {
	globalManager.confirmations.Inc()
}

// RecordDuplicate counts a duplicate rejected by the ledger guard.
func RecordDuplicate() {
	globalManager.duplicates.Inc()
}

// RecordSession counts a finished session and observes its duration.
func RecordSession(action, outcome string, durationMs float64) {
	globalManager.sessions.WithLabelValues(action, outcome).Inc()
	globalManager.sessionDuration.Observe(durationMs)
}

// RecordEnrollment counts an enrollment attempt by outcome.
func RecordEnrollment(outcome string) {
	globalManager.enrollments.WithLabelValues(outcome).Inc()
}

// UpdateEnrolledUsers sets the enrolled user gauge.
func UpdateEnrolledUsers(count int) {
	globalManager.enrolledUsers.Set(float64(count))
}

// UpdateLedgerRecords sets the ledger size gauge.
func UpdateLedgerRecords(count int) {
	globalManager.ledgerRecords.Set(float64(count))
}

// RecordStorageError counts a failed persistence operation.
func RecordStorageError(op string) {
	globalManager.storageErrors.WithLabelValues(op).Inc()
	RecordErrorByComponent("storage", op)
}

// UpdateQueueSize sets the current frame queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the frame queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the frame queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued probe.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueRejected counts a probe the queue refused.
func RecordQueueRejected(reason string) {
	globalManager.queueDropped.WithLabelValues(reason).Inc()
}

// RecordDetectLatency observes detector latency in milliseconds.
func RecordDetectLatency(latencyMs float64) {
	globalManager.detectLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.memoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.goroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes an average GC pause in milliseconds.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.gcPause.Observe(ms)
}

// GetRegistry returns the custom registry the global manager uses.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
