package streaming_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dorpc/rpc/eventstore"
	"github.com/dorpc/rpc/internal/wire"
	"github.com/dorpc/rpc/streaming"
	"github.com/dorpc/rpc/wstransport"
)

func newSubscriber(t *testing.T, h *streaming.SubscriptionHandler) (*streaming.Subscriber, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := wstransport.NewClient(wsURL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return streaming.NewSubscriber(client), srv
}

func TestSubscriberReceivesPublishedEvents(t *testing.T) {
	bc := streaming.NewBroadcaster(nil, 16)
	defer bc.Close()
	h := streaming.NewSubscriptionHandler(bc, nil, nil)
	sub := mustSubscriber(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	subscription, err := sub.Subscribe(ctx, "orders")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer subscription.Close()

	// Give the server a moment to finish registering before publishing.
	time.Sleep(50 * time.Millisecond)
	bc.Publish("orders", map[string]any{"id": float64(1)})

	v, err := subscription.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	data, ok := v.(map[string]any)
	if !ok || data["id"] != float64(1) {
		t.Errorf("Next = %v", v)
	}
}

func TestSubscriberIncludeHistoryReplaysStoredEvents(t *testing.T) {
	bc := streaming.NewBroadcaster(nil, 16)
	defer bc.Close()
	store, err := eventstore.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := store.Append(ctx, "orders", "first"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := store.Append(ctx, "orders", "second"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	h := streaming.NewSubscriptionHandler(bc, store, nil)
	sub := mustSubscriber(t, h)

	subscription, err := sub.Subscribe(ctx, "orders", streaming.WithIncludeHistory())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer subscription.Close()

	first, err := subscription.Next(ctx)
	if err != nil {
		t.Fatalf("Next 1: %v", err)
	}
	second, err := subscription.Next(ctx)
	if err != nil {
		t.Fatalf("Next 2: %v", err)
	}
	if first != "first" || second != "second" {
		t.Errorf("got %v, %v; want first, second", first, second)
	}
}

func TestSubscriberUnsubscribeStopsDelivery(t *testing.T) {
	bc := streaming.NewBroadcaster(nil, 16)
	defer bc.Close()
	h := streaming.NewSubscriptionHandler(bc, nil, nil)
	sub := mustSubscriber(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	subscription, err := sub.Subscribe(ctx, "orders")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	subscription.Close()
	time.Sleep(50 * time.Millisecond)

	bc.Publish("orders", "should not be received")

	shortCtx, shortCancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer shortCancel()
	if _, err := subscription.Next(shortCtx); err == nil {
		t.Error("expected Next to fail after Close, got nil error")
	}
}

func TestSubscriptionHandlerRepliesPongToPing(t *testing.T) {
	bc := streaming.NewBroadcaster(nil, 16)
	defer bc.Close()
	h := streaming.NewSubscriptionHandler(bc, nil, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req, _ := json.Marshal(wire.PingFrame{Type: wire.FrameTypePing, T: 1})
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var pong wire.PongFrame
	if err := json.Unmarshal(data, &pong); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pong.Type != wire.FrameTypePong {
		t.Errorf("type = %q; want %q", pong.Type, wire.FrameTypePong)
	}
}

func TestSubscriptionHandlerAcknowledgesAuthFrame(t *testing.T) {
	bc := streaming.NewBroadcaster(nil, 16)
	defer bc.Close()
	h := streaming.NewSubscriptionHandler(bc, nil, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req, _ := json.Marshal(wire.AuthFrame{Type: wire.FrameTypeAuth, Token: "tok"})
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var result wire.AuthResultFrame
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Type != wire.FrameTypeAuthResult || !result.Success {
		t.Errorf("result = %+v; want success auth_result", result)
	}

	// The connection must still accept subscribe frames afterward.
	req2, _ := json.Marshal(wire.SubscribeFrame{Type: wire.FrameTypeSubscribe, SubscriptionID: "sub-1", Topic: "orders"})
	if err := conn.WriteMessage(websocket.TextMessage, req2); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	_, ackData, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	var ack wire.AckFrame
	if err := json.Unmarshal(ackData, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Type != wire.FrameTypeAck || ack.SubscriptionID != "sub-1" {
		t.Errorf("ack = %+v", ack)
	}
}

func mustSubscriber(t *testing.T, h *streaming.SubscriptionHandler) *streaming.Subscriber {
	t.Helper()
	sub, _ := newSubscriber(t, h)
	return sub
}
