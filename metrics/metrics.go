package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ocppnet"

// Metrics is a Prometheus-backed Instrumenter with its own registry
type Metrics struct {
	Registry *prometheus.Registry

	framesReceived   *prometheus.CounterVec
	framesSent       *prometheus.CounterVec
	framesForwarded  prometheus.Counter
	framesDropped    *prometheus.CounterVec
	parseFailures    prometheus.Counter
	signatureFailure *prometheus.CounterVec
	requestsSent     prometheus.Counter
	requestsReceived prometheus.Counter
	requestOutcomes  *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	pendingRequests  prometheus.Gauge
	connections      prometheus.Gauge
}

var _ Instrumenter = (*Metrics)(nil)

// New creates a new Metrics instance with a custom Prometheus registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Total frames received from connections, by frame type.",
		}, []string{"type"}),

		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Total frames written to connections, by frame type.",
		}, []string{"type"}),

		framesForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_forwarded_total",
			Help:      "Total messages relayed to another node.",
		}),

		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total messages dropped, by reason.",
		}, []string{"reason"}),

		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Total frames that could not be parsed.",
		}),

		signatureFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signature_failures_total",
			Help:      "Total signing or verification failures, by direction.",
		}, []string{"direction"}),

		requestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_sent_total",
			Help:      "Total requests originated by this node.",
		}),

		requestsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_received_total",
			Help:      "Total requests dispatched to local handlers.",
		}),

		requestOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_outcomes_total",
			Help:      "Total completed requests, by outcome.",
		}, []string{"outcome"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from sending a request until its outcome, in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 333},
		}, []string{"outcome"}),

		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Number of requests awaiting an outcome.",
		}),

		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of connected neighbour nodes.",
		}),
	}

	reg.MustRegister(
		m.framesReceived,
		m.framesSent,
		m.framesForwarded,
		m.framesDropped,
		m.parseFailures,
		m.signatureFailure,
		m.requestsSent,
		m.requestsReceived,
		m.requestOutcomes,
		m.requestDuration,
		m.pendingRequests,
		m.connections,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry in Prometheus format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) FrameReceived(frameType string) {
	m.framesReceived.WithLabelValues(frameType).Inc()
}

func (m *Metrics) FrameSent(frameType string) {
	m.framesSent.WithLabelValues(frameType).Inc()
}

func (m *Metrics) FrameForwarded() {
	m.framesForwarded.Inc()
}

func (m *Metrics) FrameDropped(reason string) {
	m.framesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ParseFailed() {
	m.parseFailures.Inc()
}

func (m *Metrics) SignatureFailed(direction string) {
	m.signatureFailure.WithLabelValues(direction).Inc()
}

func (m *Metrics) RequestSent() {
	m.requestsSent.Inc()
}

func (m *Metrics) RequestReceived() {
	m.requestsReceived.Inc()
}

func (m *Metrics) RequestCompleted(outcome string, elapsed time.Duration) {
	m.requestOutcomes.WithLabelValues(outcome).Inc()
	m.requestDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) SetPendingRequests(n int) {
	m.pendingRequests.Set(float64(n))
}

func (m *Metrics) SetConnections(n int) {
	m.connections.Set(float64(n))
}
