package backend

import "time"

// RetryPolicy controls retry behavior of the heartbeat check
type RetryPolicy struct {
	MaxRetries  int           // max retry attempts
	BaseBackoff time.Duration // initial backoff duration
	MaxBackoff  time.Duration // upper bound on backoff
	JitterFn    func(time.Duration) time.Duration
}

// HealthPolicy defines when the backend is considered healthy or recovered
type HealthPolicy struct {
	FailureThreshold int // consecutive failures to mark unhealthy
	SuccessThreshold int // consecutive successes to mark healthy again
}

type HeartbeatPolicy struct {
	Interval     time.Duration
	CheckTimeout time.Duration
	Path         string
}

type MonitorConfig struct {
	Retry     RetryPolicy
	Health    HealthPolicy
	Heartbeat HeartbeatPolicy
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Retry: RetryPolicy{
			MaxRetries:  2,
			BaseBackoff: 200 * time.Millisecond,
			MaxBackoff:  2 * time.Second,
			JitterFn:    func(d time.Duration) time.Duration { return d / 2 }, // default jitter: 50%
		},
		Health: HealthPolicy{
			FailureThreshold: 2,
			SuccessThreshold: 1,
		},
		Heartbeat: HeartbeatPolicy{
			Interval:     15 * time.Second,
			CheckTimeout: 3 * time.Second,
			Path:         "/health",
		},
	}
}
