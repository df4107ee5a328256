// Package observability owns the Prometheus registry and the LMS collectors.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the LMS collectors on a private registry.
//
// It satisfies account.Metrics and realtime.Metrics.
type Metrics struct {
	registry *prometheus.Registry

	logins        *prometheus.CounterVec
	forcedLogouts *prometheus.CounterVec
	connections   prometheus.Gauge
	wsDrops       *prometheus.CounterVec
	supersedeTime prometheus.Histogram
}

// New creates a registry with the Go and process collectors plus the LMS metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		forcedLogouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_forced_logouts_total",
			Help: "Forced-logout notifications by delivery result.",
		}, []string{"result"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lms_realtime_connections",
			Help: "Live realtime connections.",
		}),
		wsDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_realtime_events_dropped_total",
			Help: "Realtime events that could not be enqueued, by reason.",
		}, []string{"reason"}),
		supersedeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lms_session_supersede_seconds",
			Help:    "Latency of the atomic session swap.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.logins, m.forcedLogouts, m.connections, m.wsDrops, m.supersedeTime)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) LoginResult(result string) {
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) ForcedLogout(delivered bool) {
	result := "delivered"
	if !delivered {
		result = "dropped"
	}
	m.forcedLogouts.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSupersede(d time.Duration) {
	m.supersedeTime.Observe(d.Seconds())
}

func (m *Metrics) ConnectionsChanged(n int) {
	m.connections.Set(float64(n))
}

func (m *Metrics) EventDropped(reason string) {
	m.wsDrops.WithLabelValues(reason).Inc()
}
