// Package metrics exposes Prometheus instrumentation for the build loop,
// the live-reload notifier and the forwarder.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Path is where the metrics endpoint is mounted.
const Path = "/__devserve/metrics"

// Metrics holds all Prometheus metrics for devserve.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	BuildsTotal     *prometheus.CounterVec
	BuildDuration   *prometheus.HistogramVec
	BroadcastsTotal *prometheus.CounterVec
	LiveSockets     prometheus.Gauge
	ForwardedTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		BuildsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "devserve",
				Name:      "builds_total",
				Help:      "Build actions executed",
			},
			[]string{"kind", "result"}, // kind=bundle/style/copy/command, result=ok/error
		),
		BuildDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "devserve",
				Name:      "build_duration_seconds",
				Help:      "Build action duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		BroadcastsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "devserve",
				Name:      "broadcasts_total",
				Help:      "Live-reload frames broadcast",
			},
			[]string{"type"}, // type=reload/keepalive
		),
		LiveSockets: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "devserve",
				Name:      "live_sockets",
				Help:      "Number of connected live-reload sockets",
			},
		),
		ForwardedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "devserve",
				Name:      "forwarded_requests_total",
				Help:      "Requests forwarded to upstream services",
			},
			[]string{"rule", "result"}, // result=ok/error
		),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveBuild records one build action of the given kind.
func (m *Metrics) ObserveBuild(kind string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.BuildsTotal.WithLabelValues(kind, result(err)).Inc()
	m.BuildDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// ObserveBroadcast records one broadcast of the given frame type.
func (m *Metrics) ObserveBroadcast(frameType string) {
	if m == nil {
		return
	}
	m.BroadcastsTotal.WithLabelValues(frameType).Inc()
}

// SetLiveSockets records the current live socket count.
func (m *Metrics) SetLiveSockets(n int) {
	if m == nil {
		return
	}
	m.LiveSockets.Set(float64(n))
}

// ObserveForward records one forwarded request for rule.
func (m *Metrics) ObserveForward(rule string, err error) {
	if m == nil {
		return
	}
	m.ForwardedTotal.WithLabelValues(rule, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
