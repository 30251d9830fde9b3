package wstransport_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dorpc/rpc/wstransport"
)

func TestMetricsHandlerServesPrometheusText(t *testing.T) {
	m := wstransport.NewMetrics()
	m.ConnectionAttempts.Add(3)
	m.ConnectionErrors.Add(1)
	m.ReconnectAttempts.Add(2)
	m.AuthFailures.Add(1)
	m.HeartbeatTimeouts.Add(1)
	m.MessagesSent.Add(10)
	m.MessagesReceived.Add(8)
	m.QueueOverflows.Add(4)
	m.Connected.Store(1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q; want text/plain prefix", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"wstransport_connection_attempts_total 3",
		"wstransport_connection_errors_total 1",
		"wstransport_reconnect_attempts_total 2",
		"wstransport_auth_failures_total 1",
		"wstransport_heartbeat_timeouts_total 1",
		"wstransport_messages_sent_total 10",
		"wstransport_messages_received_total 8",
		"wstransport_queue_overflows_total 4",
		"wstransport_connected 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q; got:\n%s", want, body)
		}
	}
}

func TestMetricsHandlerIncludesHelpAndType(t *testing.T) {
	m := wstransport.NewMetrics()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "# HELP wstransport_connected") {
		t.Error("missing HELP line for wstransport_connected")
	}
	if !strings.Contains(body, "# TYPE wstransport_connected gauge") {
		t.Error("missing TYPE gauge line for wstransport_connected")
	}
	if !strings.Contains(body, "# TYPE wstransport_messages_sent_total counter") {
		t.Error("missing TYPE counter line for wstransport_messages_sent_total")
	}
}

func TestNewMetricsStartsAtZero(t *testing.T) {
	m := wstransport.NewMetrics()
	if got := m.ConnectionAttempts.Load(); got != 0 {
		t.Errorf("ConnectionAttempts = %d; want 0", got)
	}
	if got := m.Connected.Load(); got != 0 {
		t.Errorf("Connected = %d; want 0", got)
	}
}
