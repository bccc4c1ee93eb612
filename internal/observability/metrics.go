package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the hub and pipeline export.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	StepDuration  *prometheus.HistogramVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	WebhookEvents *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// GetMetrics returns the process-wide metrics, registering them on the
// default registry exactly once.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = newMetrics(prometheus.DefaultRegisterer)
	})
	return metrics
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sc3kit_pipeline_runs_total",
			Help: "Pipeline runs by trigger event and terminal status.",
		}, []string{"event", "status"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sc3kit_pipeline_step_duration_seconds",
			Help:    "Wall time of each pipeline step.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"step"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sc3kit_http_requests_total",
			Help: "HTTP requests handled by the hub.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sc3kit_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sc3kit_webhook_events_total",
			Help: "Webhook deliveries by event and outcome.",
		}, []string{"event", "outcome"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sc3kit_queue_depth",
			Help: "Pipeline runs waiting in the hub queue.",
		}),
	}
	reg.MustRegister(
		m.RunsTotal,
		m.StepDuration,
		m.HTTPRequests,
		m.HTTPDuration,
		m.WebhookEvents,
		m.QueueDepth,
	)
	return m
}
