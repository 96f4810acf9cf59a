package diagnostics

import (
	"strings"
	"sync"
	"time"

	"rul-dashboard/internal/logs"
	"rul-dashboard/internal/metrics"
)

// DefaultWindow is how long a counted failure or logged problem keeps the
// report degraded.
const DefaultWindow = 5 * time.Minute

// samplesPerWindow bounds how many baselines are kept per window.
const samplesPerWindow = 10

type sample struct {
	at     time.Time
	values map[string]int64
}

// Analyzer converts metrics + logs into a health report.
//
// Counter rules compare the current snapshot with the newest sample that is
// at least one window old, so a burst stops counting after the window once
// /health is polled. Without an old enough sample every count since start
// is recent.
type Analyzer struct {
	metrics *metrics.Registry
	logger  *logs.Logger
	rules   []Rule
	window  time.Duration
	now     func() time.Time

	mu      sync.Mutex
	samples []sample
}

type Option func(*Analyzer)

// WithWindow overrides DefaultWindow.
func WithWindow(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.window = d
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(
	reg *metrics.Registry,
	logger *logs.Logger,
	opts ...Option,
) *Analyzer {
	a := &Analyzer{
		metrics: reg,
		logger:  logger,
		rules: []Rule{
			BackendUnhealthyRule,
			PredictionTimeoutRule,
			ServerErrorRule,
			ContractViolationRule,
			HeartbeatFailureRule,
		},
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// recent returns the increase of every counter since the baseline and
// records current as a new sample.
func (a *Analyzer) recent(now time.Time, current map[string]int64) map[string]int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := now.Add(-a.window)
	base := -1
	for i, s := range a.samples {
		if s.at.After(cutoff) {
			break
		}
		base = i
	}

	var baseline map[string]int64
	if base >= 0 {
		baseline = a.samples[base].values
		a.samples = a.samples[base:]
	}

	if n := len(a.samples); n == 0 || now.Sub(a.samples[n-1].at) >= a.window/samplesPerWindow {
		a.samples = append(a.samples, sample{at: now, values: current})
	}

	delta := make(map[string]int64, len(current))
	for k, v := range current {
		delta[k] = v - baseline[k]
	}
	return delta
}

// Analyze evaluates metrics and logs and returns a health report.
func (a *Analyzer) Analyze() Report {
	now := a.now()
	snapshot := a.metrics.Snapshot()
	window := Window{Current: snapshot, Recent: a.recent(now, snapshot)}

	var (
		signals         = []string{}
		recommendations = []string{}
		status          = StatusOK
	)

	escalate := func(severity Status) {
		if severity == StatusCritical {
			status = StatusCritical
		} else if severity == StatusDegraded && status == StatusOK {
			status = StatusDegraded
		}
	}

	/* ---------- METRICS-BASED RULES ---------- */

	for _, rule := range a.rules {
		result := rule(window)
		if !result.Triggered {
			continue
		}

		signals = append(signals, result.Signal)
		recommendations = append(recommendations, result.Recommendation)
		escalate(result.Severity)
	}

	/* ---------- LOG-BASED SIGNALS ---------- */

	predictionFailures := 0
	panicCount := 0

	cutoff := now.Add(-a.window)
	for _, entry := range a.logger.GetLast(100) {
		if entry.TimeStamp.Before(cutoff) {
			continue
		}
		if entry.Level == logs.WARN &&
			strings.Contains(entry.Message, "prediction failed") {
			predictionFailures++
		}

		if entry.Level == logs.ERROR &&
			strings.Contains(entry.Message, "panic") {
			panicCount++
		}
	}

	if predictionFailures >= 3 {
		signals = append(signals,
			"Repeated prediction failures detected in logs",
		)
		recommendations = append(recommendations,
			"Review the failing subsystem inputs and backend connectivity",
		)
		escalate(StatusDegraded)
	}

	if panicCount > 0 {
		signals = append(signals,
			"Application panics detected in logs",
		)
		recommendations = append(recommendations,
			"Inspect stack traces and stabilize error handling",
		)
		escalate(StatusCritical)
	}

	/* ---------- SUMMARY ---------- */

	summary := "Dashboard is healthy"
	if status != StatusOK {
		summary = "Dashboard health issues detected"
	}

	return Report{
		OverallStatus:   status,
		Summary:         summary,
		Signals:         signals,
		Recommendations: recommendations,
	}
}
