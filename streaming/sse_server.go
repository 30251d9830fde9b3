package streaming

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dorpc/rpc/eventstore"
)

// SSEHandler serves a single topic as a Server-Sent Events stream, replaying
// eventstore.Store history when the client presents a Last-Event-ID header
// before switching to live Broadcaster delivery.
type SSEHandler struct {
	bc    *Broadcaster
	store eventstore.Store
	topic string
}

// NewSSEHandler serves topic's events. store may be nil, disabling resume.
func NewSSEHandler(bc *Broadcaster, store eventstore.Store, topic string) *SSEHandler {
	return &SSEHandler{bc: bc, store: store, topic: topic}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	subscriptionID := fmt.Sprintf("sse-%p", r)
	ch := h.bc.Register(h.topic, subscriptionID)
	defer h.bc.Unregister(h.topic, subscriptionID)

	if lastID := r.Header.Get("Last-Event-ID"); h.store != nil && lastID != "" {
		fromID, _ := strconv.ParseInt(lastID, 10, 64)
		events, err := h.store.Since(r.Context(), h.topic, fromID)
		if err == nil {
			for _, e := range events {
				writeSSE(w, strconv.FormatInt(e.ID, 10), e.Payload)
			}
			flusher.Flush()
		}
	}

	for {
		select {
		case data, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, "", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, id string, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		return
	}
	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	fmt.Fprintf(w, "data: %s\n\n", body)
}
