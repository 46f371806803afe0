package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the hub's instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	EventsIngested   prometheus.Counter
	FramesDelivered  prometheus.Counter
	DeliveryFailures prometheus.Counter
	Subscribers      prometheus.Gauge
	ScoreRequests    *prometheus.CounterVec
}

// New creates and registers the hub metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netsentry_events_ingested_total",
			Help: "Events accepted by the hub across all transports.",
		}),
		FramesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netsentry_frames_delivered_total",
			Help: "Broadcast frames successfully handed to subscribers.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netsentry_delivery_failures_total",
			Help: "Subscriber sends that failed and caused removal.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netsentry_subscribers",
			Help: "Currently attached live subscribers.",
		}),
		ScoreRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netsentry_score_requests_total",
			Help: "Score calls by resulting label.",
		}, []string{"label"}),
	}
	m.registry.MustRegister(
		m.EventsIngested,
		m.FramesDelivered,
		m.DeliveryFailures,
		m.Subscribers,
		m.ScoreRequests,
	)
	return m
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
