// Package auth provides the token-producing abstraction shared by every
// transport in this module. A Provider yields an opaque bearer token (or ""
// to mean "no auth") on demand; CachingProvider, CompositeProvider and
// EnvChainProvider build richer behaviour on top of that one method.
package auth

import "context"

// Provider produces an opaque auth token. Token may be invoked on every
// (re)connection; implementations that are expensive to call should wrap
// themselves in a CachingProvider. A Provider that never requires
// authentication returns "", nil.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context) (string, error)

// Token implements Provider.
func (f ProviderFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Static returns a Provider that always yields token unchanged. Useful in
// tests and for statically configured deployments.
func Static(token string) Provider {
	return ProviderFunc(func(context.Context) (string, error) { return token, nil })
}

// None is a Provider that never sends a token.
var None Provider = Static("")
