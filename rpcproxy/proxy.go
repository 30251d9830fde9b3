// Package rpcproxy is the typed client façade over a transport.Transport.
// Go has no dynamic attribute-access protocol to mimic the dotted-path proxy
// object other runtimes use here, so this package exposes the same
// capability through an explicit, chainable Path builder plus a generic
// Invoke helper, per design note 9(c): "an explicit call(path, args) API
// with a thin type-safe wrapper; the wire contract is independent of which
// surface syntax is chosen."
package rpcproxy

import (
	"context"
	"sync"

	"github.com/dorpc/rpc/errs"
	"github.com/dorpc/rpc/methodpath"
	"github.com/dorpc/rpc/transport"
)

// Factory lazily produces the Transport backing a Client. It is invoked at
// most once, the first time the Client is used, regardless of how many
// goroutines call concurrently.
type Factory func(ctx context.Context) (transport.Transport, error)

// Client is the root of the proxy: a lazily or eagerly bound Transport plus
// the chainable Path builder rooted at it.
type Client struct {
	transport transport.Transport
	factory   Factory

	mu   sync.Mutex
	once bool
	err  error
}

// New wraps an already-constructed Transport.
func New(t transport.Transport) *Client {
	return &Client{transport: t}
}

// NewLazy wraps a Factory that produces the Transport on first use. factory
// is invoked exactly once, even under concurrent first calls.
func NewLazy(factory Factory) *Client {
	return &Client{factory: factory}
}

// resolve returns the bound Transport, invoking factory at most once.
func (c *Client) resolve(ctx context.Context) (transport.Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport != nil || c.once {
		return c.transport, c.err
	}
	c.once = true
	c.transport, c.err = c.factory(ctx)
	return c.transport, c.err
}

// Call resolves path and invokes it with args against the underlying
// Transport, as the single primitive every other helper in this package
// builds on.
func (c *Client) Call(ctx context.Context, path string, args []any) (any, error) {
	t, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return t.Call(ctx, path, args)
}

// Close releases the underlying Transport, if one was ever resolved.
func (c *Client) Close() error {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		return nil
	}
	return t.Close()
}

// Path is a chainable dotted-path accessor rooted at a Client. Dot
// accumulates segments; Call performs the RPC once the path is complete.
// Path deliberately has no methods named Then, Catch, or Finally: those
// names are reserved in the proxy objects this mirrors so that the object
// is never mistaken for a thenable, and Go has no such hazard, but the
// naming is kept out of this type for the same reason it was reserved
// there — nothing should read "proxy.Then(...)" as promise chaining.
type Path struct {
	client   *Client
	segments []string
}

// Root returns a Path with no segments yet, rooted at client.
func (c *Client) Root() Path {
	return Path{client: c}
}

// Dot appends one or more path segments and returns the extended Path.
func (p Path) Dot(segments ...string) Path {
	next := make([]string, 0, len(p.segments)+len(segments))
	next = append(next, p.segments...)
	next = append(next, segments...)
	return Path{client: p.client, segments: next}
}

// String renders the accumulated path in dotted form.
func (p Path) String() string {
	return methodpath.Join(p.segments)
}

// Call invokes the accumulated path with args.
func (p Path) Call(ctx context.Context, args ...any) (any, error) {
	if len(p.segments) == 0 {
		return nil, errs.NewRpcError(errs.CodeInvalidPath, "rpcproxy: empty path")
	}
	return p.client.Call(ctx, p.String(), args)
}

// Invoke calls path on client and type-asserts the result to T, giving
// callers a statically typed return value without writing a wrapper method
// per remote call.
func Invoke[T any](ctx context.Context, client *Client, path string, args ...any) (T, error) {
	var zero T
	result, err := client.Call(ctx, path, args)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, errs.NewRpcErrorWithData(errs.CodeRequestError,
			"rpcproxy: result type mismatch", map[string]any{"path": path})
	}
	return typed, nil
}
