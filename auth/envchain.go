package auth

import (
	"context"
	"os"
)

// defaultEnvChain is the lookup order used by EnvChainProvider when none is
// given explicitly: an admin override takes precedence over the regular
// token, mirroring how the previous process-wide-global lookup behaved
// (Design Note: "replace process-wide token globals with explicit
// configuration").
var defaultEnvChain = []string{"DO_ADMIN_TOKEN", "DO_TOKEN"}

// EnvChainProvider reads an auth token from the first set environment
// variable in Names, in order. It exists so that callers who relied on
// ambient process environment for credentials (rather than explicit
// configuration) have an explicit, inspectable Provider to opt into instead
// of the library reaching into os.Environ on its own.
type EnvChainProvider struct {
	Names []string
}

// NewEnvChainProvider returns an EnvChainProvider checking DO_ADMIN_TOKEN
// then DO_TOKEN.
func NewEnvChainProvider() *EnvChainProvider {
	return &EnvChainProvider{Names: defaultEnvChain}
}

// Token implements Provider. It returns "" with no error if none of Names
// are set; an empty token means "no auth" to every transport in this
// module.
func (e *EnvChainProvider) Token(ctx context.Context) (string, error) {
	names := e.Names
	if len(names) == 0 {
		names = defaultEnvChain
	}
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v, nil
		}
	}
	return "", nil
}
