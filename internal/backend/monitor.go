package backend

import (
	"sync"
	"time"

	"rul-dashboard/internal/metrics"
)

// State is the liveness of the prediction backend as last observed.
type State string

const (
	Unknown   State = "unknown"
	Healthy   State = "healthy"
	Unhealthy State = "unhealthy"
)

// Status is a copy of the monitor state, safe to serialize.
type Status struct {
	URL          string    `json:"url"`
	State        State     `json:"state"`
	Version      string    `json:"version,omitempty"`
	FailureCount int       `json:"failure_count"`
	SuccessCount int       `json:"success_count"`
	LastError    string    `json:"last_error,omitempty"`
	LastCheck    time.Time `json:"last_check"`
}

// Monitor tracks the health state of the prediction backend. A fresh monitor
// is Unknown until the first check lands.
type Monitor struct {
	mu      sync.RWMutex
	status  Status
	config  MonitorConfig
	metrics *metrics.Registry
}

// NewMonitor creates a Monitor for the backend rooted at url
func NewMonitor(url string, cfg MonitorConfig, reg *metrics.Registry) *Monitor {
	return &Monitor{
		status:  Status{URL: url, State: Unknown},
		config:  cfg,
		metrics: reg,
	}
}

// MarkFailure records a failed check
func (m *Monitor) MarkFailure(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.Inc(metrics.BackendFailuresTotal)

	m.status.FailureCount++
	m.status.SuccessCount = 0
	m.status.LastError = reason
	m.status.LastCheck = time.Now()
	if m.status.FailureCount >= m.config.Health.FailureThreshold {
		m.status.State = Unhealthy
	}
	m.publish()
}

// MarkSuccess records a successful check and the version the backend reported
func (m *Monitor) MarkSuccess(version string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.SuccessCount++
	m.status.FailureCount = 0
	m.status.LastError = ""
	m.status.LastCheck = time.Now()
	if version != "" {
		m.status.Version = version
	}
	if m.status.SuccessCount >= m.config.Health.SuccessThreshold {
		m.status.State = Healthy
	}
	m.publish()
}

// publish mirrors the state into gauges; caller holds the lock.
func (m *Monitor) publish() {
	healthy, unhealthy := int64(0), int64(0)
	switch m.status.State {
	case Healthy:
		healthy = 1
	case Unhealthy:
		unhealthy = 1
	}
	m.metrics.Set(metrics.BackendHealthy, healthy)
	m.metrics.Set(metrics.BackendUnhealthy, unhealthy)
}

func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.State == Healthy
}

func (m *Monitor) Snapshot() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
