package diagnostics

import "rul-dashboard/internal/metrics"

// RuleResult represents the outcome of a single rule.
type RuleResult struct {
	Triggered      bool
	Signal         string
	Recommendation string
	Severity       Status
}

// Window is what a rule sees: the current snapshot, and for counters the
// increase over the analyzer's trailing window.
type Window struct {
	Current map[string]int64
	Recent  map[string]int64
}

// Rule evaluates a metrics window.
type Rule func(w Window) RuleResult

func triggered(severity Status, signal, recommendation string) RuleResult {
	return RuleResult{
		Triggered:      true,
		Signal:         signal,
		Recommendation: recommendation,
		Severity:       severity,
	}
}

// counterRule triggers when key increased within the window.
func counterRule(key metrics.MetricKey, severity Status, signal, recommendation string) Rule {
	return func(w Window) RuleResult {
		if w.Recent[string(key)] <= 0 {
			return RuleResult{}
		}
		return triggered(severity, signal, recommendation)
	}
}

// gaugeRule triggers while key is above zero.
func gaugeRule(key metrics.MetricKey, severity Status, signal, recommendation string) Rule {
	return func(w Window) RuleResult {
		if w.Current[string(key)] <= 0 {
			return RuleResult{}
		}
		return triggered(severity, signal, recommendation)
	}
}

// ---------- RULES ----------

// An unreachable backend makes every module unusable.
var BackendUnhealthyRule = gaugeRule(
	metrics.BackendUnhealthy,
	StatusCritical,
	"Prediction backend is unhealthy",
	"Check that the prediction service is running and API_BASE_URL points at it",
)

var PredictionTimeoutRule = counterRule(
	metrics.PredictionTimeoutsTotal,
	StatusDegraded,
	"Prediction requests timed out",
	"Check backend load or raise PREDICTION_TIMEOUT within its allowed range",
)

var ServerErrorRule = counterRule(
	metrics.PredictionServerErrTotal,
	StatusDegraded,
	"Prediction backend returned error statuses",
	"Inspect backend logs for model loading or input errors",
)

var ContractViolationRule = counterRule(
	metrics.ContractViolationsTotal,
	StatusDegraded,
	"Prediction backend returned responses without a numeric predicted_rul",
	"Verify the backend response schema matches the dashboard contract",
)

var HeartbeatFailureRule = counterRule(
	metrics.HeartbeatFailuresTotal,
	StatusDegraded,
	"Heartbeat failures detected",
	"Check backend availability and its /health endpoint",
)
