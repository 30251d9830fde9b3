package config

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dorpc/rpc/rpcserver"
)

// ---------------------------------------------------------------------------
// TLS
// ---------------------------------------------------------------------------

// TLSConfig holds the certificate and key paths used when a server listens
// with TLS. Both fields must be set together or both left empty.
type TLSConfig struct {
	// CertPath is the path to the server's PEM-encoded certificate.
	CertPath string `yaml:"cert_path"`
	// KeyPath is the path to the server's PEM-encoded private key.
	KeyPath string `yaml:"key_path"`
}

// Enabled reports whether TLS is configured at all.
func (t TLSConfig) Enabled() bool {
	return t.CertPath != "" || t.KeyPath != ""
}

// ---------------------------------------------------------------------------
// Server auth
// ---------------------------------------------------------------------------

// ServerAuthMode selects the AuthMiddleware a ServerConfig builds.
type ServerAuthMode string

const (
	ServerAuthModeNone ServerAuthMode = "none"
	ServerAuthModeJWT  ServerAuthMode = "jwt"
)

var validServerAuthModes = map[ServerAuthMode]struct{}{
	ServerAuthModeNone: {},
	ServerAuthModeJWT:  {},
}

// ServerAuthConfig selects and parameterises the rpcserver.AuthMiddleware a
// server installs in front of its dispatch target.
type ServerAuthConfig struct {
	// Mode is one of "none" or "jwt". Defaults to "none".
	Mode ServerAuthMode `yaml:"mode"`
	// JWTPublicKeyPath is the path to a PEM-encoded RSA public key used to
	// verify RS256 bearer tokens. Required when Mode is "jwt".
	JWTPublicKeyPath string `yaml:"jwt_public_key_path"`
}

// Middleware builds the rpcserver.AuthMiddleware described by c.
func (c ServerAuthConfig) Middleware() (rpcserver.AuthMiddleware, error) {
	switch c.Mode {
	case "", ServerAuthModeNone:
		return rpcserver.NoAuth(), nil
	case ServerAuthModeJWT:
		pubKey, err := loadRSAPublicKey(c.JWTPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("auth.jwt_public_key_path: %w", err)
		}
		return rpcserver.BearerAuth(rpcserver.JWTVerifier(pubKey)), nil
	default:
		return nil, fmt.Errorf("auth.mode %q is not a recognised server auth mode", c.Mode)
	}
}

// loadRSAPublicKey reads and parses a PEM-encoded RSA public key, accepting
// both PKIX ("PUBLIC KEY") and PKCS1 ("RSA PUBLIC KEY") encodings.
func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%q does not contain PEM data", path)
	}
	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%q does not contain an RSA public key", path)
		}
		return rsaKey, nil
	}
	return x509.ParsePKCS1PublicKey(block.Bytes)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// HealthConfig controls an optional liveness endpoint a host application may
// serve alongside the RPC router.
type HealthConfig struct {
	// Enabled controls whether the health endpoint should be served.
	Enabled bool `yaml:"enabled"`
	// Address is the listen address in "host:port" form. Defaults to
	// "127.0.0.1:9090".
	Address string `yaml:"address"`
}

// ---------------------------------------------------------------------------
// ServerConfig (top-level)
// ---------------------------------------------------------------------------

// ServerConfig is the root configuration for an rpc server. It is populated
// by parsing a YAML file with ParseServerFile.
type ServerConfig struct {
	// ListenAddr is the HTTP listen address in "host:port" form. Required.
	ListenAddr string `yaml:"listen_addr"`

	// TLS optionally configures the listener to terminate TLS directly. Both
	// fields must be set together or both left empty.
	TLS TLSConfig `yaml:"tls"`

	// Auth selects the AuthMiddleware installed in front of dispatch.
	Auth ServerAuthConfig `yaml:"auth"`

	// Health optionally configures a liveness endpoint.
	Health HealthConfig `yaml:"health"`

	// LogLevel is the minimum log level for the server's structured logger.
	// Defaults to "info".
	LogLevel LogLevel `yaml:"log_level"`
}

// applyServerDefaults fills in omitted fields with sensible production
// values. It is called by ParseServerFile before validation so that
// validation can rely on defaults being present.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Health.Address == "" {
		cfg.Health.Address = "127.0.0.1:9090"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogLevelInfo
	}
}

// ValidateServer checks cfg for semantic errors and returns all of them at
// once so operators can see and fix every problem in a single run.
func ValidateServer(cfg *ServerConfig) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.ListenAddr == "" {
		add("listen_addr must not be empty")
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		add("listen_addr %q is not a valid host:port address: %v", cfg.ListenAddr, err)
	}

	hasCert := cfg.TLS.CertPath != ""
	hasKey := cfg.TLS.KeyPath != ""
	if hasCert != hasKey {
		add("tls.cert_path and tls.key_path must both be set or both be empty")
	}
	if hasCert {
		if err := checkFileReadable(cfg.TLS.CertPath); err != nil {
			add("tls.cert_path: %v", err)
		}
	}
	if hasKey {
		if err := checkFileReadable(cfg.TLS.KeyPath); err != nil {
			add("tls.key_path: %v", err)
		}
	}

	if _, ok := validServerAuthModes[cfg.Auth.Mode]; cfg.Auth.Mode != "" && !ok {
		add("auth.mode %q is invalid; must be one of none, jwt", cfg.Auth.Mode)
	}
	if cfg.Auth.Mode == ServerAuthModeJWT {
		if cfg.Auth.JWTPublicKeyPath == "" {
			add("auth.jwt_public_key_path must not be empty when auth.mode is \"jwt\"")
		} else if err := checkFileReadable(cfg.Auth.JWTPublicKeyPath); err != nil {
			add("auth.jwt_public_key_path: %v", err)
		}
	}

	if cfg.Health.Enabled {
		if cfg.Health.Address == "" {
			add("health.address must not be empty when health.enabled is true")
		} else if _, _, err := net.SplitHostPort(cfg.Health.Address); err != nil {
			add("health.address %q is not a valid host:port address: %v", cfg.Health.Address, err)
		}
	}

	if _, ok := validLogLevels[cfg.LogLevel]; !ok {
		add("log_level %q is invalid; must be one of debug, info, warn, error", cfg.LogLevel)
	}

	return errs
}

// ParseServerFile reads the YAML file at path, applies defaults, and
// validates the resulting configuration.
func ParseServerFile(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading server config file %q: %w", path, err)
	}
	return ParseServer(data)
}

// ParseServer decodes YAML bytes, applies defaults, and validates the
// configuration.
func ParseServer(data []byte) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	applyServerDefaults(&cfg)

	if errs := ValidateServer(&cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid server configuration: %w", errors.Join(errs...))
	}

	return &cfg, nil
}
