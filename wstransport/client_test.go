package wstransport_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dorpc/rpc/auth"
	"github.com/dorpc/rpc/errs"
	"github.com/dorpc/rpc/internal/wire"
	"github.com/dorpc/rpc/wstransport"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// echoServer accepts one or more WebSocket connections and, for every
// RequestEnvelope it receives, replies with a ResponseEnvelope carrying the
// first arg as Result. It replies to ping with pong. The onMessage hook lets
// tests intercept individual inbound messages (e.g. to swallow requests or
// pings).
type echoServer struct {
	mu          sync.Mutex
	connections int
	lastToken   string
	rejectAuth  bool
	onMessage   func(conn *websocket.Conn, data []byte) bool // true = handled, skip default
}

func newEchoServer() *echoServer { return &echoServer{} }

func (s *echoServer) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.connections++
	s.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var sniff wire.TypeOnly
		_ = json.Unmarshal(data, &sniff)

		if s.onMessage != nil && s.onMessage(conn, data) {
			continue
		}

		switch sniff.Type {
		case wire.FrameTypeAuth:
			var f wire.AuthFrame
			_ = json.Unmarshal(data, &f)
			s.mu.Lock()
			s.lastToken = f.Token
			reject := s.rejectAuth
			s.mu.Unlock()
			result := wire.AuthResultFrame{Type: wire.FrameTypeAuthResult, Success: !reject}
			if reject {
				result.Error = &wire.ErrorMessage{Message: "bad token"}
			}
			out, _ := json.Marshal(result)
			_ = conn.WriteMessage(websocket.TextMessage, out)
		case wire.FrameTypePing:
			out, _ := json.Marshal(wire.PongFrame{Type: wire.FrameTypePong})
			_ = conn.WriteMessage(websocket.TextMessage, out)
		default:
			var env wire.RequestEnvelope
			if json.Unmarshal(data, &env) == nil && env.ID != nil {
				var result any
				if len(env.Args) > 0 {
					result = env.Args[0]
				}
				resp := wire.ResponseEnvelope{ID: env.ID, Result: result}
				out, _ := json.Marshal(resp)
				_ = conn.WriteMessage(websocket.TextMessage, out)
				continue
			}
			// Not a request: echo the raw bytes back so Receive tests see it.
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

func (s *echoServer) connectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientCallRoundTrip(t *testing.T) {
	srv := newEchoServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	c, err := wstransport.NewClient("http://"+ts.Listener.Addr().String(), wstransport.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := c.Call(ctx, "db.users.find", []any{float64(42)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result != float64(42) {
		t.Errorf("Call result = %v; want 42", result)
	}
	if got := c.State(); got != wstransport.Connected {
		t.Errorf("State() = %v; want Connected", got)
	}
}

func TestClientSendsAuthToken(t *testing.T) {
	srv := newEchoServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	c, err := wstransport.NewClient("http://"+ts.Listener.Addr().String(),
		wstransport.WithAuth(auth.Static("secret-token")),
		wstransport.WithAllowInsecureAuth(true),
		wstransport.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		srv.mu.Lock()
		tok := srv.lastToken
		srv.mu.Unlock()
		if tok == "secret-token" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server never observed the auth token")
}

func TestClientRefusesInsecureAuthByDefault(t *testing.T) {
	srv := newEchoServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	c, err := wstransport.NewClient("http://"+ts.Listener.Addr().String(),
		wstransport.WithAuth(auth.Static("secret-token")),
		wstransport.WithAutoReconnect(false),
		wstransport.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = c.Connect(ctx)
	if err == nil {
		t.Fatal("expected Connect to fail for insecure auth over ws://")
	}
	if !errs.IsTransportCode(err, errs.CodeInsecureConnection) {
		t.Errorf("Connect error code = %v, want InsecureConnection", err)
	}
	if got := c.State(); got != wstransport.Closed {
		t.Errorf("State() = %v; want Closed after terminal insecure-auth failure", got)
	}
}

func TestClientLogsServerAuthRejection(t *testing.T) {
	srv := newEchoServer()
	srv.rejectAuth = true
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	c, err := wstransport.NewClient("http://"+ts.Listener.Addr().String(),
		wstransport.WithAuth(auth.Static("secret-token")),
		wstransport.WithAllowInsecureAuth(true),
		wstransport.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// auth_result is advisory only: the connection still completes and Call
	// still works even when the server reports a rejected token.
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := c.Call(ctx, "ping", []any{"ok"}); err != nil {
		t.Fatalf("Call: %v", err)
	}
}

func TestClientGivesUpAfterMaxReconnectAttempts(t *testing.T) {
	srv := newEchoServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	ts.Close() // server is already gone: every dial attempt fails

	c, err := wstransport.NewClient("http://"+ts.Listener.Addr().String(),
		wstransport.WithReconnectBackoff(5*time.Millisecond, 10*time.Millisecond, 2),
		wstransport.WithMaxReconnectAttempts(2),
		wstransport.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = c.Connect(ctx)
	if err == nil {
		t.Fatal("expected Connect to fail once reconnect attempts are exhausted")
	}
	if !errs.IsTransportCode(err, errs.CodeReconnectFailed) {
		t.Errorf("Connect error code = %v, want ReconnectFailed", err)
	}
	if got := c.State(); got != wstransport.Closed {
		t.Errorf("State() = %v; want Closed", got)
	}
}

func TestClientCallTimeout(t *testing.T) {
	srv := newEchoServer()
	srv.onMessage = func(conn *websocket.Conn, data []byte) bool {
		// Silently swallow every request so Call never gets a response.
		var sniff wire.TypeOnly
		_ = json.Unmarshal(data, &sniff)
		return sniff.Type == ""
	}
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	c, err := wstransport.NewClient("http://"+ts.Listener.Addr().String(),
		wstransport.WithCallTimeout(100*time.Millisecond),
		wstransport.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = c.Call(ctx, "never.responds", nil)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if !errs.IsTransportCode(err, errs.CodeRequestTimeout) {
		t.Errorf("err = %v; want RequestTimeout", err)
	}
}

func TestClientSendAndReceive(t *testing.T) {
	srv := newEchoServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	c, err := wstransport.NewClient("http://"+ts.Listener.Addr().String(), wstransport.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.Send(ctx, map[string]any{"hello": "world"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer recvCancel()
	msg, err := c.Receive(recvCtx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	m, ok := msg.(map[string]any)
	if !ok || m["hello"] != "world" {
		t.Errorf("Receive = %v; want echoed {hello: world}", msg)
	}
}

func TestClientCloseIsIdempotent(t *testing.T) {
	srv := newEchoServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	c, err := wstransport.NewClient("http://"+ts.Listener.Addr().String(), wstransport.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if got := c.State(); got != wstransport.Closed {
		t.Errorf("State() = %v; want Closed", got)
	}
}

func TestClientCallAfterCloseFailsFast(t *testing.T) {
	srv := newEchoServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	c, err := wstransport.NewClient("http://"+ts.Listener.Addr().String(), wstransport.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_ = c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = c.Call(ctx, "anything", nil)
	if err == nil {
		t.Fatal("expected Call to fail on a closed client")
	}
	if !errs.IsTransportCode(err, errs.CodeConnectionLost) {
		t.Errorf("err = %v; want ConnectionLost", err)
	}
}

func TestClientRejectsUnsupportedScheme(t *testing.T) {
	_, err := wstransport.NewClient("ftp://example.com/rpc")
	if err == nil {
		t.Fatal("expected an error for an unsupported URL scheme")
	}
	if !strings.Contains(err.Error(), "scheme") {
		t.Errorf("err = %v; want mention of scheme", err)
	}
}

func TestClientHeartbeatTimeoutTriggersReconnect(t *testing.T) {
	srv := newEchoServer()
	srv.onMessage = func(conn *websocket.Conn, data []byte) bool {
		var sniff wire.TypeOnly
		_ = json.Unmarshal(data, &sniff)
		// Never answer pings: the client should notice the missed pong.
		return sniff.Type == wire.FrameTypePing
	}
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	c, err := wstransport.NewClient("http://"+ts.Listener.Addr().String(),
		wstransport.WithHeartbeat(30*time.Millisecond, 30*time.Millisecond),
		wstransport.WithReconnectBackoff(10*time.Millisecond, 20*time.Millisecond, 2),
		wstransport.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if srv.connectionCount() >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected the server to see a reconnect; saw %d connections", srv.connectionCount())
}
