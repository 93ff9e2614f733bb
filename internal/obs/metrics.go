package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide metrics registry, shaped after
// internal/metrics/collector.go's Collector: one struct owning a
// private prometheus.Registry plus the individual gauge/counter
// handles the rest of the code mutates directly.
type Metrics struct {
	registry *prometheus.Registry

	ActiveCameras  prometheus.Gauge
	QueueDepth     prometheus.Gauge
	QueueFullTotal prometheus.Counter
	DispatchOK     prometheus.Counter
	DispatchFailed prometheus.Counter
	SweepDuration  prometheus.Histogram
	TracksActive   prometheus.Gauge
	TracksFinished prometheus.Counter
}

// NewMetrics builds and registers all trackerd metrics on a fresh
// registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.ActiveCameras = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trackerd_active_cameras",
		Help: "Number of cameras currently streaming.",
	})
	m.QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trackerd_dispatch_queue_depth",
		Help: "Current depth of the best-event dispatch queue.",
	})
	m.QueueFullTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackerd_dispatch_queue_full_total",
		Help: "Number of best events dropped because the dispatch queue was full.",
	})
	m.DispatchOK = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackerd_dispatch_success_total",
		Help: "Number of best events successfully submitted to the backend.",
	})
	m.DispatchFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackerd_dispatch_failed_total",
		Help: "Number of best events that failed backend submission.",
	})
	m.SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trackerd_sweep_duration_seconds",
		Help:    "Duration of a TTL sweeper pass.",
		Buckets: prometheus.DefBuckets,
	})
	m.TracksActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trackerd_tracks_active",
		Help: "Number of tracks currently live in the registry.",
	})
	m.TracksFinished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackerd_tracks_finished_total",
		Help: "Number of tracks finalized (TTL expiry or manual finish); saturation alone does not finalize a track.",
	})

	reg.MustRegister(
		m.ActiveCameras,
		m.QueueDepth,
		m.QueueFullTotal,
		m.DispatchOK,
		m.DispatchFailed,
		m.SweepDuration,
		m.TracksActive,
		m.TracksFinished,
	)
	return m
}

// Handler returns the HTTP handler to mount at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSweepDuration records one TTL sweeper pass duration.
func (m *Metrics) ObserveSweepDuration(seconds float64) {
	m.SweepDuration.Observe(seconds)
}

// SetTracksActive records the current live-track count observed by a
// sweeper pass.
func (m *Metrics) SetTracksActive(n float64) {
	m.TracksActive.Set(n)
}

// IncTracksFinished records one finalized track.
func (m *Metrics) IncTracksFinished() {
	m.TracksFinished.Inc()
}

// SetActiveCameras records the camera monitor's current active-camera
// count.
func (m *Metrics) SetActiveCameras(n float64) {
	m.ActiveCameras.Set(n)
}
