package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 语音网关的全部 Prometheus 指标，使用独立 registry
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  *prometheus.CounterVec

	FramesTotal        *prometheus.CounterVec
	UtterancesTotal    prometheus.Counter
	UtteranceDuration  prometheus.Histogram
	TasksDroppedTotal  prometheus.Counter
	LateResultsDropped prometheus.Counter
	OutboundOverflow   *prometheus.CounterVec

	ASRTotal    *prometheus.CounterVec
	ASRDuration *prometheus.HistogramVec

	ReplyTotal    *prometheus.CounterVec
	ReplyDuration prometheus.Histogram

	PoolInFlight prometheus.Gauge

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance with all collectors registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lingecho"
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voice_connections_active",
			Help:      "Number of open voice connections",
		}),
		ConnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_connections_total",
			Help:      "Voice connection lifecycle events",
		}, []string{"event"}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vad_frames_total",
			Help:      "Audio frames classified by the VAD",
		}, []string{"kind"}),
		UtterancesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Completed utterances submitted for recognition",
		}),
		UtteranceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "utterance_duration_seconds",
			Help:      "Audio length of completed utterances",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 20, 30, 60},
		}),
		TasksDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_tasks_dropped_total",
			Help:      "Tasks rejected because a session queue was full",
		}),
		LateResultsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "late_results_dropped_total",
			Help:      "Outbound messages discarded after the connection closed",
		}),
		OutboundOverflow: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_messages_overflow_total",
			Help:      "Outbound messages discarded because the writer buffer was full",
		}, []string{"label"}),
		ASRTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asr_requests_total",
			Help:      "Recognition requests by vendor and outcome",
		}, []string{"vendor", "outcome"}),
		ASRDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "asr_duration_seconds",
			Help:      "Recognition round-trip latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"vendor"}),
		ReplyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_requests_total",
			Help:      "Reply generation requests by outcome",
		}, []string{"outcome"}),
		ReplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_duration_seconds",
			Help:      "Reply generation latency",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		PoolInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_pool_in_flight",
			Help:      "Background tasks currently holding a worker slot",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	registry.MustRegister(
		m.ConnectionsActive,
		m.ConnectionsTotal,
		m.FramesTotal,
		m.UtterancesTotal,
		m.UtteranceDuration,
		m.TasksDroppedTotal,
		m.LateResultsDropped,
		m.OutboundOverflow,
		m.ASRTotal,
		m.ASRDuration,
		m.ReplyTotal,
		m.ReplyDuration,
		m.PoolInFlight,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Registry 底层 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordConnectionOpened() {
	m.ConnectionsActive.Inc()
	m.ConnectionsTotal.WithLabelValues("opened").Inc()
}

func (m *Metrics) RecordConnectionClosed() {
	m.ConnectionsActive.Dec()
	m.ConnectionsTotal.WithLabelValues("closed").Inc()
}

// RecordFrame kind: speech | non_speech | invalid
func (m *Metrics) RecordFrame(kind string) {
	m.FramesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordUtterance(d time.Duration) {
	m.UtterancesTotal.Inc()
	m.UtteranceDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordTaskDropped() {
	m.TasksDroppedTotal.Inc()
}

func (m *Metrics) RecordLateResultDropped() {
	m.LateResultsDropped.Inc()
}

// RecordOutboundOverflow 写缓冲区满导致的下行消息丢弃
func (m *Metrics) RecordOutboundOverflow(label string) {
	m.OutboundOverflow.WithLabelValues(label).Inc()
}

// RecordASR outcome: ok | empty | error | canceled
func (m *Metrics) RecordASR(vendor, outcome string, d time.Duration) {
	m.ASRTotal.WithLabelValues(vendor, outcome).Inc()
	if outcome != "canceled" {
		m.ASRDuration.WithLabelValues(vendor).Observe(d.Seconds())
	}
}

func (m *Metrics) RecordReply(outcome string, d time.Duration) {
	m.ReplyTotal.WithLabelValues(outcome).Inc()
	m.ReplyDuration.Observe(d.Seconds())
}

func (m *Metrics) SetPoolInFlight(n int64) {
	m.PoolInFlight.Set(float64(n))
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
