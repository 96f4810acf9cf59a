package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rul_dashboard"

// snapshotCollector exposes the counter registry to Prometheus. Values can go
// down (history_points_total, backend_healthy) so they are exported untyped.
// It describes nothing up front, which makes it an unchecked collector.
type snapshotCollector struct {
	registry *Registry
}

func (c *snapshotCollector) Describe(chan<- *prometheus.Desc) {}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	for key, value := range c.registry.Snapshot() {
		desc := prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", key),
			"Dashboard counter "+key+".",
			nil, nil,
		)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.UntypedValue, float64(value))
	}
}

// ObserveLatency records one prediction round trip.
func (r *Registry) ObserveLatency(subsystem, outcome string, d time.Duration) {
	r.latency.WithLabelValues(subsystem, outcome).Observe(d.Seconds())
}

// Handler serves the Prometheus text exposition of this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}
