package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricKey is a strongly typed metric identifier.
type MetricKey string

// Metric keys (centralized)
const (
	// Predictions
	PredictionRequestsTotal   MetricKey = "prediction_requests_total"
	PredictionSuccessTotal    MetricKey = "prediction_success_total"
	PredictionFailuresTotal   MetricKey = "prediction_failures_total"
	PredictionTimeoutsTotal   MetricKey = "prediction_timeouts_total"
	PredictionTransportTotal  MetricKey = "prediction_transport_errors_total"
	PredictionServerErrTotal  MetricKey = "prediction_server_errors_total"
	ContractViolationsTotal   MetricKey = "prediction_contract_violations_total"
	ValidationErrorsTotal     MetricKey = "validation_errors_total"
	SubmitsRejectedTotal      MetricKey = "submits_rejected_total"
	PredictRateLimitedTotal   MetricKey = "predict_rate_limited_total"
	HTTPPanicsRecoveredTotal  MetricKey = "http_panics_recovered_total"
	HistoryPointsTotal        MetricKey = "history_points_total"
	HistoryAppendsTotal       MetricKey = "history_appends_total"
	HistoryAppendFailureTotal MetricKey = "history_append_failures_total"

	// TTL
	TTLCleanupRunsTotal   MetricKey = "ttl_cleanup_runs_total"
	TTLPointsRemovedTotal MetricKey = "ttl_points_removed_total"

	// Backend
	BackendHealthy       MetricKey = "backend_healthy"
	BackendUnhealthy     MetricKey = "backend_unhealthy"
	BackendFailuresTotal MetricKey = "backend_failures_total"

	// Heartbeat metrics
	HeartbeatRunsTotal     MetricKey = "heartbeat_runs_total"
	HeartbeatSuccessTotal  MetricKey = "heartbeat_success_total"
	HeartbeatFailuresTotal MetricKey = "heartbeat_failures_total"
)

// Registry stores all metrics.
type Registry struct {
	mu       sync.RWMutex
	counters map[MetricKey]*int64

	prom    *prometheus.Registry
	latency *prometheus.HistogramVec
}

// NewRegistry creates a metrics registry.
func NewRegistry() *Registry {
	r := &Registry{
		counters: make(map[MetricKey]*int64),
		prom:     prometheus.NewRegistry(),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_latency_seconds",
			Help:      "Round trip time of prediction requests by subsystem and outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"subsystem", "outcome"}),
	}
	r.prom.MustRegister(r.latency, &snapshotCollector{registry: r})
	return r
}

// Inc increments a metric by 1.
func (r *Registry) Inc(key MetricKey) {
	r.Add(key, 1)
}

// Add increments a metric by delta.
func (r *Registry) Add(key MetricKey, delta int64) {
	atomic.AddInt64(r.counter(key), delta)
}

// Set overwrites a metric, used for gauge-like values.
func (r *Registry) Set(key MetricKey, value int64) {
	atomic.StoreInt64(r.counter(key), value)
}

func (r *Registry) counter(key MetricKey) *int64 {
	r.mu.RLock()
	ptr, ok := r.counters[key]
	r.mu.RUnlock()

	if ok {
		return ptr
	}

	// Slow path: metric not yet initialized
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if ptr, ok = r.counters[key]; ok {
		return ptr
	}

	var val int64
	r.counters[key] = &val
	return &val
}
