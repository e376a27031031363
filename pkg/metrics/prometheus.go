// Package metrics provides Prometheus metrics for the battle64 leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exposed by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Intake
	submissions *prometheus.CounterVec // by result: accepted, duplicate, rejected
	timeOutcome *prometheus.CounterVec // by outcome: valid, repaired, fallback

	// Ranking
	rankings       prometheus.Counter
	rankingLatency prometheus.Histogram
	rankedEntries  prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Store
	storeLatency *prometheus.HistogramVec // by op: append, snapshot
	storeEntries prometheus.Gauge

	// Live updates
	liveSubscribers prometheus.Gauge
	broadcasts      *prometheus.CounterVec // by sink and result

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics singleton

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "battle64",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	counterOpts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
	}
	histogramOpts := func(name, help string, buckets []float64) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets}
	}

	m.submissions = auto.NewCounterVec(counterOpts("submissions_total", "Submissions received by intake result"), []string{"result"})
	m.timeOutcome = auto.NewCounterVec(counterOpts("time_normalizations_total", "Submitted times by normalization outcome"), []string{"outcome"})

	m.rankings = auto.NewCounter(counterOpts("rankings_total", "Number of full ranking computations"))
	m.rankingLatency = auto.NewHistogram(histogramOpts("ranking_latency_milliseconds", "Time spent ranking one event", m.histogramBuckets))
	m.rankedEntries = auto.NewHistogram(histogramOpts("ranked_entries", "Entries per ranking computation",
		prometheus.ExponentialBuckets(1, 4, 8)))

	m.queueSize = auto.NewGauge(gaugeOpts("queue_size", "Submissions waiting in the queue"))
	m.queueCapacity = auto.NewGauge(gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueEnqueueErrors = auto.NewCounter(counterOpts("queue_enqueue_errors_total", "Rejected enqueue attempts"))

	m.workerCount = auto.NewGauge(gaugeOpts("worker_count", "Active submission workers"))
	m.workerProcessingLatency = auto.NewHistogram(histogramOpts("worker_processing_latency_milliseconds", "Time to record one submission", m.histogramBuckets))
	m.workerErrors = auto.NewCounter(counterOpts("worker_errors_total", "Submissions the workers failed to record"))

	m.storeLatency = auto.NewHistogramVec(histogramOpts("store_latency_milliseconds", "Store operation latency", m.histogramBuckets), []string{"op"})
	m.storeEntries = auto.NewGauge(gaugeOpts("store_entries", "Entries held by the store"))

	m.liveSubscribers = auto.NewGauge(gaugeOpts("live_subscribers", "Connected live leaderboard subscribers"))
	m.broadcasts = auto.NewCounterVec(counterOpts("broadcasts_total", "Leaderboard updates pushed by sink and result"), []string{"sink", "result"})

	m.httpRequests = auto.NewCounterVec(counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(histogramOpts("http_request_duration_milliseconds", "HTTP request duration", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(counterOpts("errors_total", "Errors by component and type"), []string{"component", "type"})
}

// RecordSubmission counts a submission by intake result.
func (m *Manager) RecordSubmission(result string) { m.submissions.WithLabelValues(result).Inc() }

// RecordTimeOutcome counts a submitted time by normalization outcome.
func (m *Manager) RecordTimeOutcome(outcome string) { m.timeOutcome.WithLabelValues(outcome).Inc() }

// RecordRanking observes one ranking computation.
func (m *Manager) RecordRanking(latencyMs float64, entries int) {
	m.rankings.Inc()
	m.rankingLatency.Observe(latencyMs)
	m.rankedEntries.Observe(float64(entries))
}

// UpdateQueueSize sets the queue depth.
func (m *Manager) UpdateQueueSize(size int) { m.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func (m *Manager) UpdateQueueCapacity(capacity int) { m.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueueError counts a rejected enqueue.
func (m *Manager) RecordQueueEnqueueError() { m.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the number of workers.
func (m *Manager) UpdateWorkerCount(count int) { m.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency observes the time to record one submission.
func (m *Manager) RecordWorkerProcessingLatency(latencyMs float64) {
	m.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed submission.
func (m *Manager) RecordWorkerError() { m.workerErrors.Inc() }

// RecordStoreLatency observes a store operation.
func (m *Manager) RecordStoreLatency(op string, latencyMs float64) {
	m.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateStoreEntries sets the number of stored entries.
func (m *Manager) UpdateStoreEntries(count int) { m.storeEntries.Set(float64(count)) }

// UpdateLiveSubscribers sets the number of live subscribers.
func (m *Manager) UpdateLiveSubscribers(count int) { m.liveSubscribers.Set(float64(count)) }

// RecordBroadcast counts a pushed update.
func (m *Manager) RecordBroadcast(sink, result string) { m.broadcasts.WithLabelValues(sink, result).Inc() }

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordError counts an error raised by a component.
func (m *Manager) RecordError(component, errorType string) {
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// Package-level helpers delegate to the global manager.

func RecordSubmission(result string)                     { globalManager.RecordSubmission(result) }
func RecordTimeOutcome(outcome string)                   { globalManager.RecordTimeOutcome(outcome) }
func RecordRanking(latencyMs float64, entries int)       { globalManager.RecordRanking(latencyMs, entries) }
func UpdateQueueSize(size int)                           { globalManager.UpdateQueueSize(size) }
func UpdateQueueCapacity(capacity int)                   { globalManager.UpdateQueueCapacity(capacity) }
func RecordQueueEnqueueError()                           { globalManager.RecordQueueEnqueueError() }
func UpdateWorkerCount(count int)                        { globalManager.UpdateWorkerCount(count) }
func RecordWorkerProcessingLatency(latencyMs float64)    { globalManager.RecordWorkerProcessingLatency(latencyMs) }
func RecordWorkerError()                                 { globalManager.RecordWorkerError() }
func RecordStoreLatency(op string, latencyMs float64)    { globalManager.RecordStoreLatency(op, latencyMs) }
func UpdateStoreEntries(count int)                       { globalManager.UpdateStoreEntries(count) }
func UpdateLiveSubscribers(count int)                    { globalManager.UpdateLiveSubscribers(count) }
func RecordBroadcast(sink, result string)                { globalManager.RecordBroadcast(sink, result) }
func RecordError(component, errorType string)            { globalManager.RecordError(component, errorType) }
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
