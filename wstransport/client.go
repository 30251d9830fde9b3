// Package wstransport implements the reconnecting WebSocket transport: the
// hard core of this module. It maintains one logical bidirectional channel
// to a remote endpoint, transparently healing transient disconnections,
// multiplexing concurrent calls with correlation ids, guaranteeing
// liveness via application-level heartbeats, and producing precise, typed
// failure modes.
//
// # Usage
//
//	client, err := wstransport.NewClient("wss://api.example.com/rpc",
//	    wstransport.WithAuth(auth.Static("secret")),
//	    wstransport.WithHeartbeat(30*time.Second, 5*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	result, err := client.Call(ctx, "db.users.find", []any{42})
//
// # Metrics
//
// Attach a [Metrics] value to collect operational counters while the
// client runs:
//
//	m := wstransport.NewMetrics()
//	client, err := wstransport.NewClient(url, wstransport.WithMetrics(m))
//	http.Handle("/metrics", m.Handler())
//
// # Reconnection
//
// On any unplanned disconnect, Client backs off and reconnects
// automatically while AutoReconnect is true. The backoff doubles (or
// whatever BackoffMultiplier is configured) on each failed attempt starting
// at ReconnectBackoff and capped at MaxReconnectBackoff, resetting to
// ReconnectBackoff after a successful connection.
package wstransport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dorpc/rpc/errs"
	"github.com/dorpc/rpc/internal/wire"
)

// defaultCallTimeout bounds how long a single Call waits for its response once the
// request has been handed to the connection. It is not one of the
// connection-level configuration knobs, but is required to give every Call
// a deadline timer even when ctx carries none; expose it as an Option
// rather than hard-coding it.
const defaultCallTimeout = 30 * time.Second

// WithCallTimeout overrides the default per-call deadline. A deadline on the
// ctx passed to Call takes precedence only when it comes sooner.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Config) { c.callTimeout = d }
}

// Client is a reconnecting WebSocket RPC transport. The zero value is not
// usable; construct with NewClient. Client implements transport.Transport.
type Client struct {
	cfg    Config
	wsURL  string
	scheme string // "ws" or "wss", after scheme normalization

	mu                sync.Mutex
	writeMu           sync.Mutex // serializes WriteMessage calls on the active conn (gorilla/websocket requires a single writer)
	state             ConnectionState
	conn              *websocket.Conn
	reconnectAttempts int
	backoff           time.Duration
	reconnectTimer    *time.Timer
	heartbeatTimer    *time.Timer
	heartbeatPending  bool
	lastPongAt        time.Time

	connectedCh chan struct{} // closed when state becomes Connected; replaced each cycle
	closedCh    chan struct{} // closed exactly once, when state becomes Closed

	sendQ       *boundedQueue[[]byte]
	recvQ       *boundedQueue[json.RawMessage]
	recvWaiters []chan recvHandoff

	nextID  int64
	pending map[int64]*pendingRequest

	closeCause error // set by terminalClose before closedCh is closed
	closeOnce  sync.Once
}

type recvHandoff struct {
	data json.RawMessage
}

// NewClient builds a Client targeting rawURL (an ws://, wss://, http:// or
// https:// URL; http/https are rewritten to ws/wss). It does not connect
// until the first Send, Call, or an explicit Connect.
func NewClient(rawURL string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	cfg.URL = rawURL
	cfg.callTimeout = defaultCallTimeout
	for _, opt := range opts {
		opt(&cfg)
	}

	normalized, scheme, err := normalizeWebSocketURL(rawURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:         cfg,
		wsURL:       normalized,
		scheme:      scheme,
		state:       Disconnected,
		backoff:     cfg.ReconnectBackoff,
		connectedCh: make(chan struct{}),
		closedCh:    make(chan struct{}),
		sendQ:       newBoundedQueue[[]byte]("send", cfg.MaxQueueSize, cfg.QueueFullBehavior),
		recvQ:       newBoundedQueue[json.RawMessage]("receive", cfg.MaxQueueSize, cfg.QueueFullBehavior),
		pending:     make(map[int64]*pendingRequest),
	}
	return c, nil
}

// normalizeWebSocketURL rewrites http→ws and https→wss, leaving
// ws/wss untouched, and reports the resulting scheme.
func normalizeWebSocketURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("wstransport: parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", "", fmt.Errorf("wstransport: unsupported url scheme %q", u.Scheme)
	}
	return u.String(), u.Scheme, nil
}

// State reports the current ConnectionState.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect establishes the connection explicitly rather than waiting for the
// first Send or Call. It blocks until Connected, Closed, or ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Closed {
		err := c.closedErrorLocked()
		c.mu.Unlock()
		return err
	}
	if c.state == Disconnected {
		c.state = Connecting
	}
	c.mu.Unlock()

	go c.attemptConnect(context.Background())
	return c.ensureConnected(ctx)
}

// ensureConnected blocks until Connected is reached, ctx is done, or the
// client closes. It waits on a channel that is closed and replaced each
// connect generation, rather than polling.
func (c *Client) ensureConnected(ctx context.Context) error {
	deadline := c.cfg.ConnectionTimeout
	var timeoutC <-chan time.Time
	if deadline > 0 {
		timer := time.NewTimer(deadline)
		defer timer.Stop()
		timeoutC = timer.C
	}

	for {
		c.mu.Lock()
		switch c.state {
		case Connected:
			c.mu.Unlock()
			return nil
		case Closed:
			err := c.closedErrorLocked()
			c.mu.Unlock()
			return err
		}
		if c.state == Disconnected {
			c.state = Connecting
			go c.attemptConnect(context.Background())
		}
		waitCh := c.connectedCh
		closedCh := c.closedCh
		c.mu.Unlock()

		select {
		case <-waitCh:
			continue // re-check state; connectedCh also fires on generation change
		case <-closedCh:
			continue
		case <-ctx.Done():
			return ctx.Err()
		case <-timeoutC:
			return errs.NewTransportError(errs.CodeConnectionTimeout, "wstransport: timed out waiting to connect")
		}
	}
}

// attemptConnect performs one dial+auth connect sequence. It is called for
// the first connect and for every scheduled reconnect retry. It has no
// return value; callers wait for its outcome through ensureConnected.
func (c *Client) attemptConnect(ctx context.Context) {
	c.incMetric(func(m *Metrics) { m.ConnectionAttempts.Add(1) })

	dialCtx := ctx
	var cancel context.CancelFunc
	if c.cfg.ConnectionTimeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectionTimeout)
		defer cancel()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.wsURL, nil)
	if err != nil {
		c.incMetric(func(m *Metrics) { m.ConnectionErrors.Add(1) })
		c.cfg.Logger.Warn("wstransport: dial failed", slog.String("url", c.wsURL), slog.Any("error", err))
		c.onConnectFailure(errs.WrapTransportError(errs.CodeConnectionFailed, "dial failed", err))
		return
	}

	if c.cfg.Auth != nil {
		token, err := c.cfg.Auth.Token(ctx)
		if err != nil {
			_ = conn.Close()
			c.onConnectFailure(errs.WrapTransportError(errs.CodeAuthFailed, "auth token fetch failed", err))
			return
		}
		if token != "" {
			if c.scheme == "ws" && !c.cfg.AllowInsecureAuth {
				c.writeMu.Lock()
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(4001, "insecure auth"))
				c.writeMu.Unlock()
				_ = conn.Close()
				c.incMetric(func(m *Metrics) { m.AuthFailures.Add(1) })
				c.onInsecureAuth()
				return
			}
			frame := wire.AuthFrame{Type: wire.FrameTypeAuth, Token: token}
			data, _ := json.Marshal(frame)
			c.writeMu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, data)
			c.writeMu.Unlock()
			if err != nil {
				_ = conn.Close()
				c.onConnectFailure(errs.WrapTransportError(errs.CodeAuthFailed, "failed to send auth frame", err))
				return
			}
		}
	}

	c.onConnected(conn)
	go c.readLoop(conn)
}

// onConnected transitions to Connected, resets the reconnect backoff,
// starts the heartbeat, and flushes any queued sends in FIFO order.
func (c *Client) onConnected(conn *websocket.Conn) {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state = Connected
	c.reconnectAttempts = 0
	c.backoff = c.cfg.ReconnectBackoff
	queued := c.sendQ.drain()
	close(c.connectedCh)
	c.connectedCh = make(chan struct{})
	c.mu.Unlock()

	c.incMetric(func(m *Metrics) { m.Connected.Store(1) })
	c.cfg.Logger.Info("wstransport: connected", slog.String("url", c.wsURL))

	for _, data := range queued {
		c.writeMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		c.writeMu.Unlock()
		if err != nil {
			c.cfg.Logger.Warn("wstransport: failed to flush queued send", slog.Any("error", err))
			break
		}
		c.incMetric(func(m *Metrics) { m.MessagesSent.Add(1) })
	}

	c.armHeartbeat()
}

// onConnectFailure is invoked whenever a connect attempt fails for a
// reason other than insecure-auth (which is terminal, see onInsecureAuth).
func (c *Client) onConnectFailure(err error) {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if c.cfg.AutoReconnect {
		c.scheduleReconnect()
		return
	}
	c.terminalClose(err)
}

// onInsecureAuth handles the one non-retryable connect failure kind: an auth
// token configured over a plain ws:// connection.
func (c *Client) onInsecureAuth() {
	c.terminalClose(errs.NewTransportError(errs.CodeInsecureConnection,
		"wstransport: refusing to send auth token over an insecure connection"))
}

// scheduleReconnect arms the backoff timer for the next connect attempt,
// or transitions to Closed with ReconnectFailed once the attempt cap is
// exceeded.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return
	}
	c.reconnectAttempts++
	attempts := c.reconnectAttempts
	max := c.cfg.MaxReconnectAttempts
	if max > 0 && attempts > max {
		c.mu.Unlock()
		c.terminalClose(errs.NewTransportError(errs.CodeReconnectFailed, "wstransport: max reconnect attempts exceeded").
			WithData(map[string]any{"attempts": attempts}))
		return
	}
	c.state = Reconnecting
	delay := c.backoff
	c.backoff = backoffNext(c.backoff, c.cfg.MaxReconnectBackoff, c.cfg.BackoffMultiplier)
	c.mu.Unlock()

	c.incMetric(func(m *Metrics) { m.ReconnectAttempts.Add(1) })
	c.cfg.Logger.Warn("wstransport: reconnecting", slog.Int("attempt", attempts), slog.Duration("delay", delay))

	timer := time.AfterFunc(delay, func() { c.attemptConnect(context.Background()) })
	c.mu.Lock()
	c.reconnectTimer = timer
	c.mu.Unlock()
}

// readLoop owns one connection's inbound frames until it errors or is
// superseded by a newer connection: one goroutine per physical connection,
// rather than a single reinstalled listener, so a stale connection's
// goroutine simply exits instead of accumulating.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}
		c.handleFrame(data)
	}
}

// handleFrame dispatches one inbound application frame: control frames
// (pong) are swallowed, correlated responses resolve a PendingRequest, and
// everything else is delivered to Receive.
func (c *Client) handleFrame(data []byte) {
	var sniff wire.TypeOnly
	if err := json.Unmarshal(data, &sniff); err != nil {
		c.cfg.Logger.Warn("wstransport: malformed inbound frame, ignoring", slog.Any("error", err))
		return
	}

	switch sniff.Type {
	case wire.FrameTypePong:
		c.mu.Lock()
		c.heartbeatPending = false
		c.lastPongAt = time.Now()
		c.mu.Unlock()
		return
	case wire.FrameTypeAuthResult:
		var f wire.AuthResultFrame
		if err := json.Unmarshal(data, &f); err == nil && !f.Success {
			c.incMetric(func(m *Metrics) { m.AuthFailures.Add(1) })
			c.cfg.Logger.Warn("wstransport: server rejected auth", slog.Any("error", f.Error))
		}
		return
	}

	var env wire.ResponseEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.ID != nil {
		if c.completePending(*env.ID, env.Result, rpcErrorFromPayload(env.Error)) {
			return
		}
		// Unknown id: ignore, do not tear down.
		c.cfg.Logger.Warn("wstransport: response with unknown id, ignoring", slog.Int64("id", *env.ID))
		return
	}

	c.incMetric(func(m *Metrics) { m.MessagesReceived.Add(1) })
	c.deliverToReceiver(json.RawMessage(data))
}

// deliverToReceiver hands data directly to a waiting Receive call if one
// exists, otherwise buffers it subject to the configured overflow policy.
func (c *Client) deliverToReceiver(data json.RawMessage) {
	c.mu.Lock()
	if len(c.recvWaiters) > 0 {
		w := c.recvWaiters[0]
		c.recvWaiters = c.recvWaiters[1:]
		c.mu.Unlock()
		w <- recvHandoff{data: data}
		return
	}
	_, evicted, err := c.recvQ.push(data)
	c.mu.Unlock()
	if err != nil {
		c.incMetric(func(m *Metrics) { m.QueueOverflows.Add(1) })
		c.cfg.Logger.Warn("wstransport: receive queue full, message dropped", slog.Any("error", err))
		return
	}
	if evicted {
		c.incMetric(func(m *Metrics) { m.QueueOverflows.Add(1) })
	}
}

// Receive yields the next application message in arrival order, excluding
// control frames.
func (c *Client) Receive(ctx context.Context) (any, error) {
	c.mu.Lock()
	if item, ok := c.recvQ.pop(); ok {
		c.mu.Unlock()
		return decodeMessage(item)
	}
	if c.state == Closed {
		err := c.closedErrorLocked()
		c.mu.Unlock()
		return nil, err
	}
	ch := make(chan recvHandoff, 1)
	c.recvWaiters = append(c.recvWaiters, ch)
	c.mu.Unlock()

	select {
	case h := <-ch:
		return decodeMessage(h.data)
	case <-c.closedCh:
		return nil, c.closedError()
	case <-ctx.Done():
		c.removeRecvWaiter(ch)
		return nil, ctx.Err()
	}
}

func (c *Client) removeRecvWaiter(target chan recvHandoff) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ch := range c.recvWaiters {
		if ch == target {
			c.recvWaiters = append(c.recvWaiters[:i], c.recvWaiters[i+1:]...)
			return
		}
	}
}

func decodeMessage(data json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errs.NewRpcErrorWithData(errs.CodeParseError, "malformed message", map[string]any{"cause": err.Error()})
	}
	return v, nil
}

// Send transmits message (succeeding when handed to the socket or enqueued
// under the configured backpressure policy).
func (c *Client) Send(ctx context.Context, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return errs.NewRpcErrorWithData(errs.CodeRequestError, "failed to encode message", map[string]any{"cause": err.Error()})
	}
	return c.sendRaw(data)
}

func (c *Client) sendRaw(data []byte) error {
	c.mu.Lock()
	if c.state == Closed {
		err := c.closedErrorLocked()
		c.mu.Unlock()
		return err
	}
	if c.state != Connected {
		if c.state == Disconnected {
			c.state = Connecting
			go c.attemptConnect(context.Background())
		}
		_, evicted, err := c.sendQ.push(data)
		c.mu.Unlock()
		if err != nil {
			return err
		}
		if evicted {
			c.incMetric(func(m *Metrics) { m.QueueOverflows.Add(1) })
		}
		return nil
	}
	conn := c.conn
	c.mu.Unlock()

	c.writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return errs.WrapTransportError(errs.CodeConnectionLost, "wstransport: write failed", err)
	}
	c.incMetric(func(m *Metrics) { m.MessagesSent.Add(1) })
	return nil
}

// Call implements transport.Transport, correlating a RequestEnvelope with
// its ResponseEnvelope over the multiplexed connection.
func (c *Client) Call(ctx context.Context, path string, args []any) (any, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	id := atomic.AddInt64(&c.nextID, 1)
	req := &pendingRequest{id: id, resultC: make(chan pendingResult, 1)}

	timeout := c.cfg.callTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 && d < timeout {
			timeout = d
		}
	}
	req.timer = time.AfterFunc(timeout, func() {
		c.completePending(id, nil, errs.NewTransportError(errs.CodeRequestTimeout, "wstransport: call timed out").
			WithData(map[string]any{"timeout_ms": timeout.Milliseconds()}))
	})

	c.mu.Lock()
	c.pending[id] = req
	c.mu.Unlock()

	env := wire.RequestEnvelope{ID: &id, Path: path, Args: args}
	data, err := json.Marshal(env)
	if err != nil {
		c.completePending(id, nil, errs.NewRpcError(errs.CodeRequestError, "failed to encode request"))
	} else if err := c.sendRaw(data); err != nil {
		c.completePending(id, nil, err)
	}

	select {
	case res := <-req.resultC:
		return res.value, res.err
	case <-ctx.Done():
		c.completePending(id, nil, ctx.Err())
		return nil, ctx.Err()
	}
}

// completePending resolves and removes the pending request for id exactly
// once. It returns false if id is unknown (already resolved, or never
// existed — e.g. an unrecognized inbound correlation id).
func (c *Client) completePending(id int64, value any, err error) bool {
	c.mu.Lock()
	req, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	req.timer.Stop()
	req.resolve(value, err)
	return true
}

// drainPending completes every outstanding pending request with err; it is
// used whenever the client transitions to Closed.
func (c *Client) drainPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]*pendingRequest)
	c.mu.Unlock()
	for _, req := range pending {
		req.timer.Stop()
		req.resolve(nil, err)
	}
}

// armHeartbeat starts the periodic ping/pong liveness cycle. A zero
// HeartbeatInterval disables it entirely.
func (c *Client) armHeartbeat() {
	if c.cfg.HeartbeatInterval <= 0 {
		return
	}
	c.mu.Lock()
	if c.heartbeatTimer != nil {
		c.heartbeatTimer.Stop()
	}
	c.lastPongAt = time.Now()
	c.heartbeatTimer = time.AfterFunc(c.cfg.HeartbeatInterval, c.heartbeatTick)
	c.mu.Unlock()
}

func (c *Client) heartbeatTick() {
	c.mu.Lock()
	if c.state != Connected {
		c.mu.Unlock()
		return
	}
	if c.heartbeatPending && time.Since(c.lastPongAt) > c.cfg.HeartbeatTimeout+c.cfg.HeartbeatInterval {
		conn := c.conn
		c.mu.Unlock()
		c.incMetric(func(m *Metrics) { m.HeartbeatTimeouts.Add(1) })
		c.cfg.Logger.Warn("wstransport: heartbeat timeout, closing connection")
		if conn != nil {
			c.writeMu.Lock()
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(4002, "heartbeat timeout"))
			c.writeMu.Unlock()
			_ = conn.Close()
		}
		return
	}
	c.heartbeatPending = true
	conn := c.conn
	c.heartbeatTimer = time.AfterFunc(c.cfg.HeartbeatInterval, c.heartbeatTick)
	c.mu.Unlock()

	frame := wire.PingFrame{Type: wire.FrameTypePing, T: time.Now().UnixMilli()}
	data, _ := json.Marshal(frame)
	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteMessage(websocket.TextMessage, data)
		c.writeMu.Unlock()
	}
}

// handleDisconnect is invoked by readLoop when a connection's ReadMessage
// fails. It is a no-op if conn is no longer the active connection (a stale
// goroutine from a superseded connection).
func (c *Client) handleDisconnect(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.heartbeatTimer != nil {
		c.heartbeatTimer.Stop()
	}
	wasClosed := c.state == Closed
	c.mu.Unlock()

	c.incMetric(func(m *Metrics) { m.Connected.Store(0) })
	if wasClosed {
		return
	}

	c.cfg.Logger.Warn("wstransport: connection lost", slog.Any("error", cause))

	if !c.cfg.AutoReconnect {
		c.terminalClose(errs.WrapTransportError(errs.CodeConnectionLost, "wstransport: connection closed", cause))
		return
	}
	c.scheduleReconnect()
}

// terminalClose transitions to Closed with the given cause, rejecting all
// pending requests and receivers, and is used by every non-retryable
// failure path.
func (c *Client) terminalClose(cause error) {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return
	}
	c.state = Closed
	c.closeCause = cause
	conn := c.conn
	c.conn = nil
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	if c.heartbeatTimer != nil {
		c.heartbeatTimer.Stop()
	}
	c.recvWaiters = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	// Waiting Receive calls are unblocked via closedCh below, not by closing
	// their individual channels: closing them here would race closedCh in
	// Receive's select and could surface a bogus decode error instead of
	// ConnectionLost.
	c.drainPending(cause)
	c.closeOnce.Do(func() { close(c.closedCh) })
	c.incMetric(func(m *Metrics) { m.Connected.Store(0) })
}

// closedErrorLocked returns the terminal cause recorded by terminalClose.
// Callers must hold c.mu. It falls back to a generic ConnectionLost only if
// the client somehow reached Closed without terminalClose ever running.
func (c *Client) closedErrorLocked() error {
	if c.closeCause != nil {
		return c.closeCause
	}
	return errs.NewTransportError(errs.CodeConnectionLost, "wstransport: client is closed")
}

// closedError is closedErrorLocked for callers that have already observed
// closedCh and so do not hold c.mu.
func (c *Client) closedError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closedErrorLocked()
}

// Abort is equivalent to Close(reason); idempotent.
func (c *Client) Abort(reason string) error {
	return c.closeWithReason(reason)
}

// Close implements transport.Transport: idempotent, transitions to Closed,
// cancels pending timers, rejects every pending receiver with a terminal
// ConnectionLost, and disposes the socket.
func (c *Client) Close() error {
	return c.closeWithReason("closed")
}

func (c *Client) closeWithReason(reason string) error {
	c.terminalClose(errs.NewTransportError(errs.CodeConnectionLost, "wstransport: "+reason))
	return nil
}

func (c *Client) incMetric(f func(*Metrics)) {
	if c.cfg.Metrics != nil {
		f(c.cfg.Metrics)
	}
}
