package transport

import "context"

// CompositeTransport tries each child Transport in order, returning the
// first successful result. On exhaustion it rethrows the last error.
type CompositeTransport struct {
	children []Transport
}

// NewCompositeTransport builds a CompositeTransport over children, tried in
// the given order.
func NewCompositeTransport(children ...Transport) *CompositeTransport {
	return &CompositeTransport{children: children}
}

// Call implements Transport.
func (c *CompositeTransport) Call(ctx context.Context, path string, args []any) (any, error) {
	var lastErr error
	for _, child := range c.children {
		result, err := child.Call(ctx, path, args)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Close implements Transport, closing every child regardless of whether an
// earlier one fails, and returning the first error encountered (if any).
func (c *CompositeTransport) Close() error {
	var firstErr error
	for _, child := range c.children {
		if err := child.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
