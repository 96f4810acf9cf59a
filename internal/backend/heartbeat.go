package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rul-dashboard/internal/logs"
	"rul-dashboard/internal/metrics"
)

// HeartbeatWorker periodically checks backend liveness
type HeartbeatWorker struct {
	monitor *Monitor
	baseURL string
	client  *http.Client
	config  MonitorConfig
	logger  *logs.Scoped
	metrics *metrics.Registry
}

// NewHeartbeatWorker creates a new heartbeat worker probing baseURL
func NewHeartbeatWorker(
	monitor *Monitor,
	baseURL string,
	cfg MonitorConfig,
	logger *logs.Logger,
	reg *metrics.Registry,
) *HeartbeatWorker {
	return &HeartbeatWorker{
		monitor: monitor,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		config:  cfg,
		logger:  logger.With("backend"),
		metrics: reg,
	}
}

// Start checks once immediately, then on every interval. A non-positive
// interval leaves it at the single check.
// Stops when the ctx is cancelled
func (hw *HeartbeatWorker) Start(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	hw.runOnce(ctx)

	if hw.config.Heartbeat.Interval <= 0 {
		hw.logger.Warn(fmt.Sprintf("heartbeat stopped after one check: non-positive interval %s", hw.config.Heartbeat.Interval))
		return
	}
	ticker := time.NewTicker(hw.config.Heartbeat.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hw.runOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (hw *HeartbeatWorker) runOnce(ctx context.Context) {
	hw.metrics.Inc(metrics.HeartbeatRunsTotal)

	var version string
	err := Retry(ctx, hw.config.Retry, func(ctx context.Context) error {
		v, err := hw.check(ctx)
		version = v
		return err
	})

	if err != nil {
		hw.metrics.Inc(metrics.HeartbeatFailuresTotal)
		hw.monitor.MarkFailure(err.Error())
		hw.logger.Warn("heartbeat failed: " + err.Error())
		return
	}

	hw.metrics.Inc(metrics.HeartbeatSuccessTotal)
	hw.monitor.MarkSuccess(version)
}

func (hw *HeartbeatWorker) check(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, hw.config.Heartbeat.CheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		hw.baseURL+hw.config.Heartbeat.Path,
		nil,
	)
	if err != nil {
		return "", err
	}

	resp, err := hw.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// The body is informational; a 200 with an unreadable body is still alive.
	var body healthResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)
	return body.Version, nil
}
