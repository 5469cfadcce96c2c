package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Client with prometheus counters.
type Prometheus struct {
	requests        prometheus.Counter
	responses       *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
	flushes         prometheus.Counter
	flushTraces     prometheus.Counter
	flushBytes      prometheus.Counter
	dropped         *prometheus.CounterVec
	parseErrors     prometheus.Counter
	probes          *prometheus.CounterVec
}

// NewPrometheus creates a prometheus-backed metrics client and registers its
// collectors with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	m := &Prometheus{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traceship_requests_total",
			Help: "Transport dispatches, probes included.",
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "traceship_responses_total",
			Help: "Collector responses by HTTP status code.",
		}, []string{"status"}),
		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "traceship_transport_errors_total",
			Help: "Failed transport calls by error kind.",
		}, []string{"kind"}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traceship_flushes_total",
			Help: "Payloads handed to the async sender.",
		}),
		flushTraces: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traceship_flush_traces_total",
			Help: "Traces contained in flushed payloads.",
		}),
		flushBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traceship_flush_bytes_total",
			Help: "Encoded payload bytes handed to the async sender.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "traceship_traces_dropped_total",
			Help: "Traces dropped by reason.",
		}, []string{"reason"}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traceship_response_parse_errors_total",
			Help: "Collector response bodies that were not a valid rate table.",
		}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "traceship_probes_total",
			Help: "Negotiation probes by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.requests,
		m.responses,
		m.transportErrors,
		m.flushes,
		m.flushTraces,
		m.flushBytes,
		m.dropped,
		m.parseErrors,
		m.probes,
	)
	return m
}

// RecordRequest counts a transport dispatch.
func (m *Prometheus) RecordRequest() {
	m.requests.Inc()
}

// RecordResponse counts a received response by status code.
func (m *Prometheus) RecordResponse(statusCode int) {
	m.responses.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordTransportError counts a failed transport call by error kind.
func (m *Prometheus) RecordTransportError(kind string) {
	m.transportErrors.WithLabelValues(kind).Inc()
}

// RecordFlush counts a payload hand-off.
func (m *Prometheus) RecordFlush(traces, bytes int) {
	m.flushes.Inc()
	m.flushTraces.Add(float64(traces))
	m.flushBytes.Add(float64(bytes))
}

// RecordDropped counts dropped traces by reason.
func (m *Prometheus) RecordDropped(reason string, traces int) {
	m.dropped.WithLabelValues(reason).Add(float64(traces))
}

// RecordResponseParseError counts an unparseable rate table.
func (m *Prometheus) RecordResponseParseError() {
	m.parseErrors.Inc()
}

// RecordProbe counts a negotiation probe by outcome.
func (m *Prometheus) RecordProbe(outcome string) {
	m.probes.WithLabelValues(outcome).Inc()
}
