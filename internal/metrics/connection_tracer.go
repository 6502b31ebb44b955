// Package metrics exposes connection-lifecycle counters and histograms
// through Prometheus, backing the Observer notification surface. Grounded
// on quic-go's metrics/connection_tracer.go.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mvfst"

var (
	connectionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name: "connections_started_total",
			Help: "QUIC connections that transitioned to Open.",
	})
	connectionsClosed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name: "connections_closed_total",
			Help: "QUIC connections that transitioned to Closed, labeled by close reason class.",
		}, []string{"reason"})
	bytesSent = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name: "bytes_sent_total",
			Help: "Total bytes written to the socket across all connections.",
	})
	bytesReceived = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name: "bytes_received_total",
			Help: "Total bytes read from the socket across all connections.",
	})
	smoothedRTT = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name: "smoothed_rtt_seconds",
			Help: "Smoothed RTT samples reported on ACK byte events.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	})
	ecnValidationOutcome = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name: "ecn_validation_total",
			Help: "ECN validation attempts, labeled by outcome.",
		}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(connectionsStarted, connectionsClosed, bytesSent, bytesReceived, smoothedRTT, ecnValidationOutcome)
}

// ConnectionTracer is the Prometheus-backed observer the connection core
// notifies at connection start and close, packet accounting, RTT
// telemetry, and ECN validation outcome.
type ConnectionTracer struct{}

// NewConnectionTracer constructs a tracer; there is no per-connection state
// to hold since every metric is a shared, labeled collector.
func NewConnectionTracer() *ConnectionTracer { return &ConnectionTracer{} }

func (t *ConnectionTracer) ConnectionStarted() { connectionsStarted.Inc() }

// ConnectionClosed records the terminal reason class, e.g. "no_error",
// "idle_timeout", "reset", "abandoned", "transport_error".
func (t *ConnectionTracer) ConnectionClosed(reasonClass string) {
	connectionsClosed.WithLabelValues(reasonClass).Inc()
}

func (t *ConnectionTracer) PacketsWritten(bytes int) { bytesSent.Add(float64(bytes)) }

func (t *ConnectionTracer) PacketsReceived(bytes int) { bytesReceived.Add(float64(bytes)) }

func (t *ConnectionTracer) RTTSample(rtt time.Duration) { smoothedRTT.Observe(rtt.Seconds()) }

func (t *ConnectionTracer) ECNValidationOutcome(outcome string) {
	ecnValidationOutcome.WithLabelValues(outcome).Inc()
}
