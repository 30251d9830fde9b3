package rpcserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dorpc/rpc/internal/wire"
)

// WSHandler is the WebSocket-upgrade half of the server dispatcher: one
// request/response envelope per inbound text frame, over a persistent
// connection instead of one HTTP round trip per call.
type WSHandler struct {
	target   Target
	auth     AuthMiddleware
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler returns a WSHandler dispatching onto target. auth defaults
// to NoAuth when nil; logger defaults to a discarding logger when nil.
func NewWSHandler(target Target, auth AuthMiddleware, logger *slog.Logger) *WSHandler {
	if auth == nil {
		auth = NoAuth()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WSHandler{
		target: target,
		auth:   auth,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// ServeHTTP authenticates before upgrading — a failed auth never upgrades
// the socket, it responds 401 with WWW-Authenticate: Bearer — then accepts
// the connection and dispatches every inbound frame in turn.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	auth := h.auth(r)
	if !auth.Authorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("rpcserver: websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx := withAuthContext(r.Context(), auth.Context)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.handleFrame(ctx, conn, data)
	}
}

// handleFrame dispatches one inbound text frame. Requests are handled
// sequentially on this goroutine, which is also the connection's only
// writer, so no extra synchronization is needed for gorilla/websocket's
// single-writer requirement. Control frames (ping, the post-upgrade auth
// handshake) are sniffed and answered before anything is treated as a
// RequestEnvelope, mirroring wstransport.Client's own frame dispatch.
func (h *WSHandler) handleFrame(ctx context.Context, conn *websocket.Conn, data []byte) {
	var sniff wire.TypeOnly
	if err := json.Unmarshal(data, &sniff); err == nil {
		switch sniff.Type {
		case wire.FrameTypePing:
			h.writeFrame(conn, wire.PongFrame{Type: wire.FrameTypePong})
			return
		case wire.FrameTypeAuth:
			h.writeFrame(conn, wire.AuthResultFrame{Type: wire.FrameTypeAuthResult, Success: true})
			return
		}
	}

	var env wire.RequestEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Path == "" {
		h.writeEnvelope(conn, wire.ResponseEnvelope{
			Error: &wire.ErrorPayload{Code: "ParseError", Message: "Invalid message format"},
		})
		return
	}

	result, err := h.target.Call(ctx, env.Path, env.Args)
	if err != nil {
		h.writeEnvelope(conn, wire.ResponseEnvelope{ID: env.ID, Error: errorPayload(err)})
		return
	}
	h.writeEnvelope(conn, wire.ResponseEnvelope{ID: env.ID, Result: result})
}

func (h *WSHandler) writeEnvelope(conn *websocket.Conn, v wire.ResponseEnvelope) {
	h.writeFrame(conn, v)
}

func (h *WSHandler) writeFrame(conn *websocket.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("rpcserver: marshal response failed", slog.Any("error", err))
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		h.logger.Warn("rpcserver: write response failed", slog.Any("error", err))
	}
}
