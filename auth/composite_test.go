package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dorpc/rpc/auth"
)

func TestCompositeProviderFirstSuccess(t *testing.T) {
	failing := auth.ProviderFunc(func(context.Context) (string, error) {
		return "", errors.New("no token here")
	})
	c := auth.NewCompositeProvider(failing, auth.Static("fallback"), auth.Static("unreachable"))

	tok, err := c.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "fallback" {
		t.Errorf("got %q, want fallback", tok)
	}
}

func TestCompositeProviderAllFail(t *testing.T) {
	boom := auth.ProviderFunc(func(context.Context) (string, error) {
		return "", errors.New("boom")
	})
	c := auth.NewCompositeProvider(boom, boom)

	_, err := c.Token(context.Background())
	if err == nil {
		t.Fatal("expected error when every child fails")
	}
}
