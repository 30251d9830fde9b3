// Package config provides YAML configuration parsing and validation for rpc
// clients and servers. Both halves follow the same parse/applyDefaults/
// Validate pipeline: unmarshal, fill in production defaults, then collect
// every validation failure before returning so operators see all problems
// in one pass. The client half rejects unknown YAML fields; the server half
// ignores them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dorpc/rpc/auth"
	"github.com/dorpc/rpc/wstransport"
)

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

// AuthMode selects how a ClientConfig builds its auth.Provider.
type AuthMode string

const (
	AuthModeNone     AuthMode = "none"
	AuthModeStatic   AuthMode = "static"
	AuthModeEnvChain AuthMode = "envchain"
)

var validAuthModes = map[AuthMode]struct{}{
	AuthModeNone:     {},
	AuthModeStatic:   {},
	AuthModeEnvChain: {},
}

// UnmarshalYAML implements yaml.Unmarshaler so auth modes are normalised and
// validated at parse time rather than failing later at dial time.
func (m *AuthMode) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	normalised := AuthMode(strings.ToLower(strings.TrimSpace(raw)))
	if normalised == "" {
		normalised = AuthModeNone
	}
	if _, ok := validAuthModes[normalised]; !ok {
		return fmt.Errorf("invalid auth mode %q: must be one of none, static, envchain", raw)
	}
	*m = normalised
	return nil
}

// AuthConfig selects and parameterises the auth.Provider a client attaches
// on every (re)connection.
type AuthConfig struct {
	// Mode selects the Provider implementation. Defaults to "none".
	Mode AuthMode `yaml:"mode"`
	// Token is the bearer token sent on every connection when Mode is
	// "static". Ignored otherwise.
	Token string `yaml:"token"`
	// AllowInsecure permits sending a non-empty token over a non-TLS (ws://)
	// connection. Defaults to false.
	AllowInsecure bool `yaml:"allow_insecure"`
}

// Provider builds the auth.Provider described by c.
func (c AuthConfig) Provider() (auth.Provider, error) {
	switch c.Mode {
	case "", AuthModeNone:
		return auth.None, nil
	case AuthModeStatic:
		if c.Token == "" {
			return nil, errors.New("auth.token must not be empty when auth.mode is \"static\"")
		}
		return auth.Static(c.Token), nil
	case AuthModeEnvChain:
		return auth.NewEnvChainProvider(), nil
	default:
		return nil, fmt.Errorf("auth.mode %q is not a recognised provider", c.Mode)
	}
}

// ---------------------------------------------------------------------------
// Reconnect
// ---------------------------------------------------------------------------

// ReconnectConfig governs the client's automatic reconnection behaviour.
type ReconnectConfig struct {
	// Enabled turns automatic reconnection on or off. Defaults to true.
	Enabled bool `yaml:"enabled"`
	// MaxAttempts caps reconnection attempts; 0 means unbounded.
	MaxAttempts int `yaml:"max_attempts"`
	// InitialBackoff is the delay before the first reconnection attempt.
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	// MaxBackoff is the upper bound on exponential backoff growth.
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// Multiplier is the growth factor applied between attempts.
	Multiplier float64 `yaml:"multiplier"`
}

// ---------------------------------------------------------------------------
// Heartbeat
// ---------------------------------------------------------------------------

// HeartbeatConfig governs periodic liveness pings. Interval 0 disables
// heartbeats entirely.
type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ---------------------------------------------------------------------------
// Queue
// ---------------------------------------------------------------------------

// QueueConfig bounds the client's internal send/receive buffers.
type QueueConfig struct {
	// MaxSize is the maximum number of buffered messages. Defaults to 1000.
	MaxSize int `yaml:"max_size"`
	// OverflowPolicy is one of "error", "drop-oldest", or "drop-newest".
	// Defaults to "error".
	OverflowPolicy wstransport.OverflowPolicy `yaml:"overflow_policy"`
}

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

// LogLevel specifies the minimum level of messages emitted by the
// structured logger.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var validLogLevels = map[LogLevel]struct{}{
	LogLevelDebug: {},
	LogLevelInfo:  {},
	LogLevelWarn:  {},
	LogLevelError: {},
}

// ---------------------------------------------------------------------------
// ClientConfig (top-level)
// ---------------------------------------------------------------------------

// ClientConfig is the root configuration for an rpc client. It is populated
// by parsing a YAML file with ParseClientFile and translates directly into
// wstransport.Option values via Options.
type ClientConfig struct {
	// Endpoint is the WebSocket (or http/https, rewritten to ws/wss) server
	// address. Required.
	Endpoint string `yaml:"endpoint"`

	// Auth configures the auth.Provider attached to every connection.
	Auth AuthConfig `yaml:"auth"`

	// Reconnect configures automatic reconnection behaviour.
	Reconnect ReconnectConfig `yaml:"reconnect"`

	// Heartbeat configures periodic liveness pings.
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`

	// Queue bounds the client's internal send/receive buffers.
	Queue QueueConfig `yaml:"queue"`

	// ConnectionTimeout bounds how long a call waits for the connection to
	// become ready before failing.
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`

	// LogLevel is the minimum log level for connection lifecycle events.
	// Defaults to "info".
	LogLevel LogLevel `yaml:"log_level"`
}

// applyClientDefaults fills in omitted fields with the same production
// defaults wstransport.defaultConfig would apply, so a YAML file only needs
// to specify what it overrides. Reconnect.Enabled and the heartbeat
// settings, whose zero values are meaningful, are seeded by ParseClient
// before decoding instead.
func applyClientDefaults(cfg *ClientConfig) {
	if cfg.Reconnect.InitialBackoff == 0 {
		cfg.Reconnect.InitialBackoff = time.Second
	}
	if cfg.Reconnect.MaxBackoff == 0 {
		cfg.Reconnect.MaxBackoff = 30 * time.Second
	}
	if cfg.Reconnect.Multiplier == 0 {
		cfg.Reconnect.Multiplier = 2
	}
	if cfg.Queue.MaxSize == 0 {
		cfg.Queue.MaxSize = 1000
	}
	if cfg.Queue.OverflowPolicy == "" {
		cfg.Queue.OverflowPolicy = wstransport.OverflowError
	}
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = 30 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogLevelInfo
	}
}

// ValidateClient checks cfg for semantic errors and returns all of them at
// once. An empty slice means the configuration is valid.
func ValidateClient(cfg *ClientConfig) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.Endpoint == "" {
		add("endpoint must not be empty")
	}

	if cfg.Auth.Mode == AuthModeStatic && cfg.Auth.Token == "" {
		add("auth.token must not be empty when auth.mode is \"static\"")
	}

	if cfg.Reconnect.MaxAttempts < 0 {
		add("reconnect.max_attempts must be >= 0 (use 0 for unbounded)")
	}
	if cfg.Reconnect.InitialBackoff <= 0 {
		add("reconnect.initial_backoff must be positive")
	}
	if cfg.Reconnect.MaxBackoff <= 0 {
		add("reconnect.max_backoff must be positive")
	}
	if cfg.Reconnect.MaxBackoff < cfg.Reconnect.InitialBackoff {
		add("reconnect.max_backoff (%v) must be >= initial_backoff (%v)",
			cfg.Reconnect.MaxBackoff, cfg.Reconnect.InitialBackoff)
	}
	if cfg.Reconnect.Multiplier < 1 {
		add("reconnect.multiplier must be >= 1")
	}

	if cfg.Heartbeat.Interval < 0 {
		add("heartbeat.interval must be >= 0 (use 0 to disable)")
	}
	if cfg.Heartbeat.Interval > 0 && cfg.Heartbeat.Timeout <= 0 {
		add("heartbeat.timeout must be positive when heartbeat.interval is set")
	}

	if cfg.Queue.MaxSize <= 0 {
		add("queue.max_size must be positive")
	}
	switch cfg.Queue.OverflowPolicy {
	case wstransport.OverflowError, wstransport.OverflowDropOldest, wstransport.OverflowDropNewest:
		// valid
	default:
		add("queue.overflow_policy %q is invalid; must be one of error, drop-oldest, drop-newest",
			cfg.Queue.OverflowPolicy)
	}

	if cfg.ConnectionTimeout <= 0 {
		add("connection_timeout must be positive")
	}

	if _, ok := validLogLevels[cfg.LogLevel]; !ok {
		add("log_level %q is invalid; must be one of debug, info, warn, error", cfg.LogLevel)
	}

	return errs
}

// ParseClientFile reads the YAML file at path, applies defaults, and
// validates the resulting configuration.
func ParseClientFile(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client config file %q: %w", path, err)
	}
	return ParseClient(data)
}

// ParseClient decodes YAML bytes, applies defaults, and validates the
// configuration. Callers who already have the YAML in memory (e.g. tests)
// should use this function directly.
func ParseClient(data []byte) (*ClientConfig, error) {
	// yaml.v3 leaves fields absent from the document untouched, so seeding
	// them here defaults only omitted keys while an explicit false or 0
	// stays as written.
	cfg := ClientConfig{
		Reconnect: ReconnectConfig{Enabled: true},
		Heartbeat: HeartbeatConfig{Interval: 30 * time.Second, Timeout: 5 * time.Second},
	}
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	applyClientDefaults(&cfg)

	if errs := ValidateClient(&cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid client configuration:\n  - %s", strings.Join(msgs, "\n  - "))
	}

	return &cfg, nil
}

// Options translates cfg into the wstransport.Option values NewClient
// expects, building the configured auth.Provider along the way.
func (cfg *ClientConfig) Options() ([]wstransport.Option, error) {
	provider, err := cfg.Auth.Provider()
	if err != nil {
		return nil, err
	}

	opts := []wstransport.Option{
		wstransport.WithAuth(provider),
		wstransport.WithAutoReconnect(cfg.Reconnect.Enabled),
		wstransport.WithMaxReconnectAttempts(cfg.Reconnect.MaxAttempts),
		wstransport.WithReconnectBackoff(cfg.Reconnect.InitialBackoff, cfg.Reconnect.MaxBackoff, cfg.Reconnect.Multiplier),
		wstransport.WithHeartbeat(cfg.Heartbeat.Interval, cfg.Heartbeat.Timeout),
		wstransport.WithAllowInsecureAuth(cfg.Auth.AllowInsecure),
		wstransport.WithQueueLimits(cfg.Queue.MaxSize, cfg.Queue.OverflowPolicy),
		wstransport.WithConnectionTimeout(cfg.ConnectionTimeout),
	}
	return opts, nil
}

// checkFileReadable returns an error if path does not exist or is not
// readable. It does not validate the file's content.
func checkFileReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	f.Close()
	return nil
}
