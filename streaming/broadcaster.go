package streaming

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Broadcaster fans published events out to every subscriber currently
// registered for a topic, generalizing the dashboard's original
// single-topic alert fan-out to arbitrary named topics.
//
// Each subscriber has a dedicated buffered channel. Publish uses a
// non-blocking, drop-oldest send so a slow subscriber never applies
// back-pressure to the publishing goroutine.
type Broadcaster struct {
	mu     sync.Mutex
	topics map[string]map[string]chan any // topic -> subscriptionId -> channel

	bufSize int
	logger  *slog.Logger
	closed  atomic.Bool
}

// NewBroadcaster creates a Broadcaster whose per-subscriber channels hold
// up to bufSize undelivered events (default 64). A nil logger discards
// log output.
func NewBroadcaster(logger *slog.Logger, bufSize int) *Broadcaster {
	if bufSize <= 0 {
		bufSize = 64
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Broadcaster{topics: map[string]map[string]chan any{}, bufSize: bufSize, logger: logger}
}

// Register opens a delivery channel for subscriptionID on topic. The
// returned channel is closed when Unregister is called or when Close is
// called on the Broadcaster.
func (b *Broadcaster) Register(topic, subscriptionID string) <-chan any {
	ch := make(chan any, b.bufSize)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = map[string]chan any{}
		b.topics[topic] = subs
	}
	subs[subscriptionID] = ch
	return ch
}

// Unregister removes subscriptionID from topic and closes its channel. A
// second call for the same ID is a no-op.
func (b *Broadcaster) Unregister(topic, subscriptionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	if ch, ok := subs[subscriptionID]; ok {
		delete(subs, subscriptionID)
		close(ch)
	}
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
}

// Publish delivers data to every subscriber currently registered for
// topic. A subscriber whose channel is full has its oldest buffered event
// dropped to make room, rather than stalling the publisher.
func (b *Broadcaster) Publish(topic string, data any) {
	if b.closed.Load() {
		return
	}

	// Held for the whole delivery pass, not just the map read: Unregister
	// and Close close a subscriber's channel under this same lock, and
	// every send below is non-blocking (buffered channel + default), so
	// holding it here is cheap and rules out sending on a channel another
	// goroutine is concurrently closing.
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.topics[topic] {
		select {
		case ch <- data:
			continue
		default:
		}
		select {
		case <-ch: // drop oldest
		default:
		}
		select {
		case ch <- data:
		default:
			b.logger.Warn("streaming: subscriber buffer full, dropping event", slog.String("topic", topic))
		}
	}
}

// Close unregisters every subscriber across every topic and closes their
// channels. Subsequent Register calls return an already-closed channel.
func (b *Broadcaster) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, subs := range b.topics {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(b.topics, topic)
	}
}
