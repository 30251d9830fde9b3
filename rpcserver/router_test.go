package rpcserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dorpc/rpc/rpcserver"
)

func TestRouterDispatchesPostRPC(t *testing.T) {
	target := &stubTarget{onCall: func(context.Context, string, []any) (any, error) { return "pong", nil }}
	router := rpcserver.NewRouter(rpcserver.NewHandler(target, nil, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"path":"ping"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200, body=%s", rec.Code, rec.Body.String())
	}
}

func TestRouterOmitsWebSocketRouteWhenNil(t *testing.T) {
	target := &stubTarget{onCall: func(context.Context, string, []any) (any, error) { return nil, nil }}
	router := rpcserver.NewRouter(rpcserver.NewHandler(target, nil, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/rpc/ws", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want 404 when no WSHandler is wired", rec.Code)
	}
}

func TestRouterUnknownRouteIs404(t *testing.T) {
	target := &stubTarget{onCall: func(context.Context, string, []any) (any, error) { return nil, nil }}
	router := rpcserver.NewRouter(rpcserver.NewHandler(target, nil, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", rec.Code)
	}
}
