package transport

import (
	"context"

	"github.com/dorpc/rpc/methodpath"
)

// LocalTransport routes calls directly into an in-process object graph,
// with no serialization and no network hop. It is the transport used when
// an RPC client and its target live in the same process (e.g. tests, or a
// single-binary deployment that wants the RPC façade without the wire
// cost).
type LocalTransport struct {
	target any
}

// NewLocalTransport wraps target, which must be a map[string]any / struct
// graph terminating in plain functions, in a Transport.
func NewLocalTransport(target any) *LocalTransport {
	return &LocalTransport{target: target}
}

// Call implements Transport. It navigates target using the
// UnknownNamespace/UnknownMethod vocabulary and invokes the resolved
// function with args.
func (t *LocalTransport) Call(ctx context.Context, path string, args []any) (any, error) {
	p, err := methodpath.Parse(path)
	if err != nil {
		return nil, err
	}
	fn, err := methodpath.NavigateNamespace(t.target, p)
	if err != nil {
		return nil, err
	}
	return methodpath.Invoke(fn, ctx, args)
}

// Close implements Transport. The local transport owns no resources.
func (t *LocalTransport) Close() error { return nil }
