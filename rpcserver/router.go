package rpcserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires Handler and, if ws is non-nil, WSHandler behind chi's
// standard observability/hygiene middleware stack: request IDs, real
// client IPs behind a proxy, and panic recovery so a single bad dispatch
// can't take the whole process down.
//
// Route layout:
//
//	POST /rpc      – request/response dispatch
//	GET  /rpc/ws   – WebSocket upgrade dispatch (only when ws != nil)
func NewRouter(h *Handler, ws *WSHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/rpc", h.ServeHTTP)
	if ws != nil {
		r.Get("/rpc/ws", ws.ServeHTTP)
	}
	return r
}
