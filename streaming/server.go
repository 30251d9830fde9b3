package streaming

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dorpc/rpc/errs"
	"github.com/dorpc/rpc/eventstore"
	"github.com/dorpc/rpc/internal/wire"
)

// SubscriptionHandler upgrades HTTP connections to WebSocket and serves the
// subscribe/unsubscribe/ack/data/error protocol against a Broadcaster,
// replaying eventstore.Store history when a subscribe frame asks for
// includeHistory or startFrom.
type SubscriptionHandler struct {
	bc       *Broadcaster
	store    eventstore.Store
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewSubscriptionHandler wires bc as the live event source and store
// (which may be nil, disabling history replay) as the history source.
func NewSubscriptionHandler(bc *Broadcaster, store eventstore.Store, logger *slog.Logger) *SubscriptionHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SubscriptionHandler{
		bc:     bc,
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (h *SubscriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("streaming: websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var writeMu sync.Mutex
	write := func(v any) {
		body, err := json.Marshal(v)
		if err != nil {
			return
		}
		writeMu.Lock()
		err = conn.WriteMessage(websocket.TextMessage, body)
		writeMu.Unlock()
		if err != nil {
			h.logger.Warn("streaming: write failed", slog.Any("error", err))
		}
	}

	active := map[string]func(){}
	defer func() {
		for _, cleanup := range active {
			cleanup()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var sniff wire.TypeOnly
		if err := json.Unmarshal(data, &sniff); err != nil {
			continue
		}

		switch sniff.Type {
		case wire.FrameTypePing:
			write(wire.PongFrame{Type: wire.FrameTypePong})
			continue
		case wire.FrameTypeAuth:
			write(wire.AuthResultFrame{Type: wire.FrameTypeAuthResult, Success: true})
			continue
		}

		var frame wire.SubscribeFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case wire.FrameTypeSubscribe:
			h.handleSubscribe(ctx, write, active, frame)
		case wire.FrameTypeUnsubscribe:
			if cleanup, ok := active[frame.SubscriptionID]; ok {
				cleanup()
				delete(active, frame.SubscriptionID)
			}
		}
	}
}

func (h *SubscriptionHandler) handleSubscribe(ctx context.Context, write func(any), active map[string]func(), frame wire.SubscribeFrame) {
	ch := h.bc.Register(frame.Topic, frame.SubscriptionID)
	active[frame.SubscriptionID] = func() { h.bc.Unregister(frame.Topic, frame.SubscriptionID) }
	write(wire.AckFrame{Type: wire.FrameTypeAck, SubscriptionID: frame.SubscriptionID})

	if (frame.IncludeHistory || frame.StartFrom != "") && h.store != nil {
		fromID, _ := strconv.ParseInt(frame.StartFrom, 10, 64)
		events, err := h.store.Since(ctx, frame.Topic, fromID)
		if err != nil {
			write(wire.SubscriptionErrorFrame{
				Type:           wire.FrameTypeError,
				SubscriptionID: frame.SubscriptionID,
				Error:          wire.ErrorPayload{Code: string(errs.CodeModuleError), Message: err.Error()},
			})
		} else {
			for _, e := range events {
				write(wire.DataFrame{Type: wire.FrameTypeData, SubscriptionID: frame.SubscriptionID, Data: e.Payload})
			}
		}
	}

	go h.pump(ctx, write, frame.SubscriptionID, ch)
}

func (h *SubscriptionHandler) pump(ctx context.Context, write func(any), subscriptionID string, ch <-chan any) {
	for {
		select {
		case data, ok := <-ch:
			if !ok {
				return
			}
			write(wire.DataFrame{Type: wire.FrameTypeData, SubscriptionID: subscriptionID, Data: data})
		case <-ctx.Done():
			return
		}
	}
}
