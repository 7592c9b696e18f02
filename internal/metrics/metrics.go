package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for worker requests.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeDropped  = "dropped"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	queueDepth  prometheus.Gauge
	clientFails *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wordvec_worker_requests_total",
			Help: "Requests handled by the inference worker.",
		}, []string{"kind", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wordvec_worker_request_seconds",
			Help:    "Time the worker spent on a request.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wordvec_worker_queue_depth",
			Help: "Requests waiting in the worker inbox.",
		}),
		clientFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wordvec_client_failures_total",
			Help: "Caller-side channel failures, by error.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.requests, m.latency, m.queueDepth, m.clientFails)
	return m
}

// ObserveRequest records one handled request.
func (m *Metrics) ObserveRequest(kind, outcome string, took time.Duration, depth int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind, outcome).Inc()
	m.latency.WithLabelValues(kind).Observe(took.Seconds())
	m.queueDepth.Set(float64(depth))
}

// ClientFailure records a request that never got an answer.
func (m *Metrics) ClientFailure(reason string) {
	if m == nil {
		return
	}
	m.clientFails.WithLabelValues(reason).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
