package transport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dorpc/rpc/transport"
)

type stubTransport struct {
	result    any
	err       error
	closed    bool
	closeErr  error
	callCount int
}

func (s *stubTransport) Call(ctx context.Context, path string, args []any) (any, error) {
	s.callCount++
	return s.result, s.err
}

func (s *stubTransport) Close() error {
	s.closed = true
	return s.closeErr
}

func TestCompositeTransportFallsThroughToFirstSuccess(t *testing.T) {
	t1 := &stubTransport{err: errors.New("a")}
	t2 := &stubTransport{result: map[string]any{"ok": true}}
	c := transport.NewCompositeTransport(t1, t2)

	result, err := c.Call(context.Background(), "x.y", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m, ok := result.(map[string]any); !ok || m["ok"] != true {
		t.Errorf("got %v, want {ok: true}", result)
	}
}

func TestCompositeTransportRethrowsLastError(t *testing.T) {
	t1 := &stubTransport{err: errors.New("a")}
	t2 := &stubTransport{err: errors.New("b")}
	c := transport.NewCompositeTransport(t1, t2)

	_, err := c.Call(context.Background(), "x.y", nil)
	if err == nil || err.Error() != "b" {
		t.Fatalf("got %v, want error \"b\"", err)
	}
}

func TestCompositeTransportCloseClosesAllChildren(t *testing.T) {
	t1 := &stubTransport{}
	t2 := &stubTransport{}
	c := transport.NewCompositeTransport(t1, t2)

	if err := c.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !t1.closed || !t2.closed {
		t.Error("expected both children closed")
	}
}
