package methodpath_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dorpc/rpc/methodpath"
)

func TestInvokeVariadicAnyError(t *testing.T) {
	fn := func(args ...any) (any, error) {
		return len(args), nil
	}
	result, err := methodpath.Invoke(fn, context.Background(), []any{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 3 {
		t.Errorf("got %v, want 3", result)
	}
}

func TestInvokeWithContextFirstParam(t *testing.T) {
	type ctxKey struct{}
	fn := func(ctx context.Context, name string) (string, error) {
		if ctx.Value(ctxKey{}) != "present" {
			return "", errors.New("context not threaded through")
		}
		return "hello " + name, nil
	}
	ctx := context.WithValue(context.Background(), ctxKey{}, "present")
	result, err := methodpath.Invoke(fn, ctx, []any{"world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "hello world" {
		t.Errorf("got %v, want %q", result, "hello world")
	}
}

func TestInvokeErrorOnlyReturn(t *testing.T) {
	fn := func() error { return errors.New("boom") }
	_, err := methodpath.Invoke(fn, context.Background(), nil)
	if err == nil || err.Error() != "boom" {
		t.Fatalf("got %v, want boom", err)
	}
}

func TestInvokeNotCallable(t *testing.T) {
	_, err := methodpath.Invoke(42, context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for non-func value")
	}
}
