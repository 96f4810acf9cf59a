package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"rul-dashboard/internal/logs"
	"rul-dashboard/internal/metrics"

	"github.com/stretchr/testify/assert"
)

func fastConfig() MonitorConfig {
	cfg := DefaultMonitorConfig()
	cfg.Retry = RetryPolicy{MaxRetries: 0}
	cfg.Health.FailureThreshold = 1
	cfg.Heartbeat.Interval = 5 * time.Millisecond
	cfg.Heartbeat.CheckTimeout = 200 * time.Millisecond
	return cfg
}

func newWorker(url string, cfg MonitorConfig) (*HeartbeatWorker, *Monitor, *metrics.Registry) {
	reg := metrics.NewRegistry()
	m := NewMonitor(url, cfg, reg)
	return NewHeartbeatWorker(m, url, cfg, logs.NewLogger(20, logs.DEBUG), reg), m, reg
}

func TestHeartbeatWorker_RunOnce_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	}))
	defer server.Close()

	worker, m, reg := newWorker(server.URL, fastConfig())
	worker.runOnce(context.Background())

	assert.True(t, m.IsHealthy())
	assert.Equal(t, "1.0.0", m.Snapshot().Version)

	snap := reg.Snapshot()
	assert.Equal(t, int64(1), snap[string(metrics.HeartbeatRunsTotal)])
	assert.Equal(t, int64(1), snap[string(metrics.HeartbeatSuccessTotal)])
}

func TestHeartbeatWorker_RunOnce_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	worker, m, reg := newWorker(server.URL, fastConfig())
	worker.runOnce(context.Background())

	assert.Equal(t, Unhealthy, m.Snapshot().State)
	assert.Equal(t, "unexpected status 500", m.Snapshot().LastError)
	assert.Equal(t, int64(1), reg.Value(metrics.HeartbeatFailuresTotal))
}

func TestHeartbeatWorker_RetriesBeforeFailing(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := fastConfig()
	cfg.Retry = RetryPolicy{MaxRetries: 2, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

	worker, m, reg := newWorker(server.URL, cfg)
	worker.runOnce(context.Background())

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.True(t, m.IsHealthy())
	assert.Equal(t, int64(0), reg.Value(metrics.HeartbeatFailuresTotal))
}

func TestHeartbeatWorker_RunOnce_NetworkError(t *testing.T) {
	worker, m, reg := newWorker("http://127.0.0.1:0", fastConfig())
	worker.runOnce(context.Background())

	assert.Equal(t, Unhealthy, m.Snapshot().State)
	assert.Equal(t, int64(1), reg.Value(metrics.HeartbeatFailuresTotal))
}

func TestHeartbeatWorker_RequestCreationError(t *testing.T) {
	// Malformed URL forces http.NewRequestWithContext to fail
	worker, m, reg := newWorker("http://\n", fastConfig())
	worker.runOnce(context.Background())

	assert.Equal(t, Unhealthy, m.Snapshot().State)
	assert.Equal(t, int64(1), reg.Value(metrics.HeartbeatFailuresTotal))
}

func TestHeartbeatWorker_ContextCancellation(t *testing.T) {
	worker, m, _ := newWorker("http://127.0.0.1:0", fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() {
		worker.Start(ctx)
	})
	assert.Equal(t, Unknown, m.Snapshot().State)
}

func TestHeartbeatWorker_Start_ExecutesRunOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	worker, m, reg := newWorker(server.URL, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Start(ctx)

	assert.Eventually(t, func() bool {
		return m.IsHealthy() && reg.Value(metrics.HeartbeatRunsTotal) >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestHeartbeatWorker_Start_NonPositiveIntervalChecksOnce(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := fastConfig()
	cfg.Heartbeat.Interval = 0
	worker, m, _ := newWorker(server.URL, cfg)

	assert.NotPanics(t, func() {
		worker.Start(context.Background())
	})
	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, m.IsHealthy())
}
