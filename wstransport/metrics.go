// Prometheus-style metrics for the reconnecting WebSocket transport.
//
// # Prometheus text format
//
// Handler returns an [net/http.Handler] that serves the registered metrics
// in the standard Prometheus text exposition format on every GET request:
//
//	m := wstransport.NewMetrics()
//	client, err := wstransport.NewClient(url, wstransport.WithMetrics(m))
//	http.Handle("/metrics", m.Handler())
//
// # Metric catalogue
//
//	wstransport_connection_attempts_total   – counter: connect() calls made
//	wstransport_connection_errors_total     – counter: connect() calls that failed
//	wstransport_reconnect_attempts_total    – counter: reconnect cycles after an unplanned close
//	wstransport_auth_failures_total         – counter: auth token rejected or insecure
//	wstransport_heartbeat_timeouts_total    – counter: missed-pong liveness failures
//	wstransport_messages_sent_total         – counter: application messages written to the socket
//	wstransport_messages_received_total     – counter: application messages delivered to Receive
//	wstransport_queue_overflows_total       – counter: send/receive queue overflow events
//	wstransport_connected                   – gauge:   1 while state is Connected, 0 otherwise
package wstransport

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

// Metrics holds all Prometheus counters and gauges for a Client. The zero
// value is ready to use.
type Metrics struct {
	ConnectionAttempts atomic.Int64
	ConnectionErrors   atomic.Int64
	ReconnectAttempts  atomic.Int64
	AuthFailures       atomic.Int64
	HeartbeatTimeouts  atomic.Int64
	MessagesSent       atomic.Int64
	MessagesReceived   atomic.Int64
	QueueOverflows     atomic.Int64

	Connected atomic.Int64
}

// NewMetrics allocates a Metrics value with all counters at zero.
func NewMetrics() *Metrics {
	return &Metrics{}
}

type metricLine struct {
	help  string
	kind  string
	name  string
	value int64
}

func (m *Metrics) snapshot() []metricLine {
	return []metricLine{
		{"Total number of WebSocket connect attempts.", "counter", "wstransport_connection_attempts_total", m.ConnectionAttempts.Load()},
		{"Total number of connect attempts that failed.", "counter", "wstransport_connection_errors_total", m.ConnectionErrors.Load()},
		{"Total number of reconnect cycles started after an unplanned close.", "counter", "wstransport_reconnect_attempts_total", m.ReconnectAttempts.Load()},
		{"Total number of auth failures (rejected token or insecure scheme).", "counter", "wstransport_auth_failures_total", m.AuthFailures.Load()},
		{"Total number of heartbeat liveness timeouts.", "counter", "wstransport_heartbeat_timeouts_total", m.HeartbeatTimeouts.Load()},
		{"Total number of application messages written to the socket.", "counter", "wstransport_messages_sent_total", m.MessagesSent.Load()},
		{"Total number of application messages delivered to a receiver.", "counter", "wstransport_messages_received_total", m.MessagesReceived.Load()},
		{"Total number of send/receive queue overflow events.", "counter", "wstransport_queue_overflows_total", m.QueueOverflows.Load()},
		{"1 while the transport is in the Connected state, 0 otherwise.", "gauge", "wstransport_connected", m.Connected.Load()},
	}
}

// Handler returns an http.Handler serving all metrics in the Prometheus
// text exposition format on every GET request.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		writeMetrics(w, m.snapshot())
	})
}

func writeMetrics(w io.Writer, lines []metricLine) {
	for _, l := range lines {
		fmt.Fprintf(w, "# HELP %s %s\n", l.name, l.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", l.name, l.kind)
		fmt.Fprintf(w, "%s %d\n", l.name, l.value)
	}
}
