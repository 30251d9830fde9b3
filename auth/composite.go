package auth

import (
	"context"
	"errors"
	"fmt"
)

// CompositeProvider tries each child Provider in order and returns the first
// token fetched without error. It is used to express "try the caller's
// explicit token, then fall back to the ambient environment" style auth
// chains without hard-coding the fallback order into a transport.
type CompositeProvider struct {
	children []Provider
}

// NewCompositeProvider builds a CompositeProvider from children, tried in
// the given order. At least one child must be supplied.
func NewCompositeProvider(children ...Provider) *CompositeProvider {
	return &CompositeProvider{children: children}
}

// Token implements Provider. It returns the first non-error result; if every
// child fails, it returns a joined error from all of them.
func (c *CompositeProvider) Token(ctx context.Context) (string, error) {
	var errs []error
	for _, p := range c.children {
		tok, err := p.Token(ctx)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("auth: composite provider has no children configured")
	}
	return "", fmt.Errorf("auth: all providers failed: %w", errors.Join(errs...))
}
