package auth_test

import (
	"context"
	"testing"

	"github.com/dorpc/rpc/auth"
)

func TestEnvChainProviderPrefersAdminToken(t *testing.T) {
	t.Setenv("DO_ADMIN_TOKEN", "admin-tok")
	t.Setenv("DO_TOKEN", "regular-tok")

	e := auth.NewEnvChainProvider()
	tok, err := e.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "admin-tok" {
		t.Errorf("got %q, want admin-tok", tok)
	}
}

func TestEnvChainProviderFallsBackToToken(t *testing.T) {
	t.Setenv("DO_ADMIN_TOKEN", "")
	t.Setenv("DO_TOKEN", "regular-tok")

	e := auth.NewEnvChainProvider()
	tok, err := e.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "regular-tok" {
		t.Errorf("got %q, want regular-tok", tok)
	}
}

func TestEnvChainProviderNoneSet(t *testing.T) {
	e := &auth.EnvChainProvider{Names: []string{"DORPC_TEST_UNSET_VAR"}}
	tok, err := e.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "" {
		t.Errorf("got %q, want empty string", tok)
	}
}
