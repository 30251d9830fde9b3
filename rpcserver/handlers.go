package rpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dorpc/rpc/errs"
	"github.com/dorpc/rpc/internal/wire"
)

// Target is the dispatch surface a Handler or WSHandler calls into.
// rpctarget.Target satisfies this directly; anything with the same Call
// signature works, which keeps rpcserver decoupled from how the callable
// surface was built.
type Target interface {
	Call(ctx context.Context, path string, args []any) (any, error)
}

// Handler is an http.Handler implementing the HTTP POST JSON half of the
// server dispatcher: decode the request envelope, authenticate, dispatch,
// and respond with the envelope shapes the wire protocol defines.
type Handler struct {
	target Target
	auth   AuthMiddleware
	logger *slog.Logger
}

// NewHandler returns a Handler dispatching onto target. auth defaults to
// NoAuth when nil; logger defaults to a discarding logger when nil.
func NewHandler(target Target, auth AuthMiddleware, logger *slog.Logger) *Handler {
	if auth == nil {
		auth = NoAuth()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{target: target, auth: auth, logger: logger}
}

// ServeHTTP implements the HTTP POST branch of the server dispatcher.
// Non-POST requests get 405; a malformed body gets 400; a failed auth
// middleware gets 401 with WWW-Authenticate: Bearer; a dispatch error gets
// 500; otherwise 200 with the call's result.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var env wire.RequestEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil || env.Path == "" {
		h.writeError(w, nil, http.StatusBadRequest, "Invalid message format")
		return
	}

	auth := h.auth(r)
	if !auth.Authorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
		h.writeError(w, env.ID, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx := withAuthContext(r.Context(), auth.Context)
	result, err := h.target.Call(ctx, env.Path, env.Args)
	if err != nil {
		h.logger.Debug("rpcserver: dispatch failed",
			slog.String("path", env.Path), slog.Any("error", err))
		h.writeError(w, env.ID, http.StatusInternalServerError, errorMessage(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(wire.ResponseEnvelope{ID: env.ID, Result: result})
}

func (h *Handler) writeError(w http.ResponseWriter, id *int64, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(wire.HTTPErrorEnvelope{ID: id, Error: msg})
}

// errorPayload classifies err into the structured {code, message, data} shape
// WebSocket responses use, falling back to errs.CodeUnknownError for errors
// that don't carry one of this module's own typed codes.
func errorPayload(err error) *wire.ErrorPayload {
	var re *errs.RpcError
	if errors.As(err, &re) {
		return &wire.ErrorPayload{Code: string(re.Code), Message: re.Message, Data: re.Data}
	}
	var te *errs.TransportError
	if errors.As(err, &te) {
		return &wire.ErrorPayload{Code: string(te.Code), Message: te.Message}
	}
	return &wire.ErrorPayload{Code: string(errs.CodeUnknownError), Message: err.Error()}
}

// errorMessage extracts the bare message HTTP's simple error form uses,
// preferring a typed error's Message field over its full Error() string.
func errorMessage(err error) string {
	var re *errs.RpcError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	var te *errs.TransportError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return err.Error()
}
