package wstransport

import (
	"log/slog"
	"time"

	"github.com/dorpc/rpc/auth"
)

// OverflowPolicy governs what happens when a bounded queue is full.
type OverflowPolicy string

const (
	// OverflowError fails the insert with a QueueFull error.
	OverflowError OverflowPolicy = "error"
	// OverflowDropOldest evicts the oldest queued entry to make room.
	OverflowDropOldest OverflowPolicy = "drop-oldest"
	// OverflowDropNewest silently discards the entry being inserted.
	OverflowDropNewest OverflowPolicy = "drop-newest"
)

// Config holds every connection-level configuration knob. The zero value is
// not meaningful; use NewClient, which applies defaults, or Option values
// to override individual fields.
type Config struct {
	// URL is the WebSocket endpoint. An http/https scheme is rewritten to
	// ws/wss.
	URL string

	// Auth produces the first-message auth token. auth.None if omitted.
	Auth auth.Provider

	AutoReconnect        bool
	MaxReconnectAttempts int // 0 means unbounded
	ReconnectBackoff     time.Duration
	MaxReconnectBackoff  time.Duration
	BackoffMultiplier    float64

	HeartbeatInterval time.Duration // 0 disables heartbeats
	HeartbeatTimeout  time.Duration

	AllowInsecureAuth bool

	MaxQueueSize      int
	QueueFullBehavior OverflowPolicy

	ConnectionTimeout time.Duration

	Logger  *slog.Logger
	Metrics *Metrics

	// callTimeout bounds every Call unless its ctx carries a sooner
	// deadline; see WithCallTimeout in client.go.
	callTimeout time.Duration
}

// defaultConfig returns the documented defaults.
func defaultConfig() Config {
	return Config{
		Auth:                 auth.None,
		AutoReconnect:        true,
		MaxReconnectAttempts: 0,
		ReconnectBackoff:     time.Second,
		MaxReconnectBackoff:  30 * time.Second,
		BackoffMultiplier:    2,
		HeartbeatInterval:    30 * time.Second,
		HeartbeatTimeout:     5 * time.Second,
		AllowInsecureAuth:    false,
		MaxQueueSize:         1000,
		QueueFullBehavior:    OverflowError,
		ConnectionTimeout:    30 * time.Second,
		Logger:               slog.New(slog.DiscardHandler),
	}
}

// Option customizes a Client at construction time, following the
// functional-options idiom.
type Option func(*Config)

// WithAuth sets the auth provider used on every (re)connection.
func WithAuth(p auth.Provider) Option { return func(c *Config) { c.Auth = p } }

// WithAutoReconnect enables or disables automatic reconnection.
func WithAutoReconnect(enabled bool) Option { return func(c *Config) { c.AutoReconnect = enabled } }

// WithMaxReconnectAttempts caps reconnection attempts; 0 means unbounded.
func WithMaxReconnectAttempts(n int) Option {
	return func(c *Config) { c.MaxReconnectAttempts = n }
}

// WithReconnectBackoff sets the initial and maximum backoff delay and the
// growth multiplier applied between attempts.
func WithReconnectBackoff(initial, max time.Duration, multiplier float64) Option {
	return func(c *Config) {
		c.ReconnectBackoff = initial
		c.MaxReconnectBackoff = max
		c.BackoffMultiplier = multiplier
	}
}

// WithHeartbeat sets the ping interval and liveness timeout; interval 0
// disables heartbeats entirely.
func WithHeartbeat(interval, timeout time.Duration) Option {
	return func(c *Config) {
		c.HeartbeatInterval = interval
		c.HeartbeatTimeout = timeout
	}
}

// WithAllowInsecureAuth permits sending a non-empty auth token over a
// non-TLS (ws://) connection. Defaults to false.
func WithAllowInsecureAuth(allow bool) Option {
	return func(c *Config) { c.AllowInsecureAuth = allow }
}

// WithQueueLimits sets the maximum size shared by the send queue and the
// receive buffer, and the policy applied once that limit is hit.
func WithQueueLimits(maxSize int, policy OverflowPolicy) Option {
	return func(c *Config) {
		c.MaxQueueSize = maxSize
		c.QueueFullBehavior = policy
	}
}

// WithConnectionTimeout bounds how long a call waits for the connection to
// reach Connected before failing.
func WithConnectionTimeout(d time.Duration) Option {
	return func(c *Config) { c.ConnectionTimeout = d }
}

// WithLogger sets the structured logger used for connection lifecycle and
// error events. A nil logger is replaced with one that discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMetrics wires a Metrics value into the client. A nil Metrics is a
// no-op.
func WithMetrics(m *Metrics) Option { return func(c *Config) { c.Metrics = m } }
