// Package transport defines the minimal contract every RPC transport in
// this module implements, plus the three transports that do not need a
// persistent connection: HTTP batch, local binding, and composite fallback.
// The reconnecting WebSocket transport, the fourth and largest
// implementation, lives in package wstransport because its state machine
// pulls in a much larger dependency surface.
package transport

import "context"

// Transport is the minimal contract: resolve a dotted method path and a
// list of positional arguments to a result, plus an optional teardown.
// Every component in this module — the client proxy, the server dispatcher,
// streaming helpers — is built against this interface rather than any one
// implementation.
type Transport interface {
	// Call invokes path with args and returns its result. The error, if
	// any, is usually *errs.TransportError or *errs.RpcError; ctx.Err() and
	// an error returned by a locally invoked function are passed through
	// as they are.
	Call(ctx context.Context, path string, args []any) (any, error)

	// Close releases any resources (sessions, connections, queues) held by
	// the transport and returns the teardown error, if any. Close is
	// idempotent.
	Close() error
}
