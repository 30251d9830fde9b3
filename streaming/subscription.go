package streaming

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dorpc/rpc/errs"
	"github.com/dorpc/rpc/internal/wire"
	"github.com/dorpc/rpc/wstransport"
)

// subscribeConfig carries the optional parameters of a Subscribe call.
type subscribeConfig struct {
	filter         any
	startFrom      string
	includeHistory bool
	bufferSize     int
}

// SubscribeOption configures a Subscribe call.
type SubscribeOption func(*subscribeConfig)

// WithFilter attaches a server-interpreted filter to the subscription.
func WithFilter(filter any) SubscribeOption {
	return func(c *subscribeConfig) { c.filter = filter }
}

// WithStartFrom resumes a subscription from a previously observed cursor.
func WithStartFrom(cursor string) SubscribeOption {
	return func(c *subscribeConfig) { c.startFrom = cursor }
}

// WithIncludeHistory asks the server to replay retained history before
// switching to live delivery.
func WithIncludeHistory() SubscribeOption {
	return func(c *subscribeConfig) { c.includeHistory = true }
}

// WithBufferSize overrides the default 64-item drop-oldest delivery buffer.
func WithBufferSize(n int) SubscribeOption {
	return func(c *subscribeConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// Subscriber opens subscriptions over a single wstransport.Client,
// demultiplexing inbound subscribe/ack/data/error/heartbeat frames by
// subscriptionId into independent Subscription values. A Subscriber owns
// conn's receive loop: callers must not call conn.Receive directly once a
// Subscriber has been created on it.
type Subscriber struct {
	conn *wstransport.Client

	mu      sync.Mutex
	pending map[string]chan error
	subs    map[string]*Subscription
	started bool
}

// NewSubscriber wraps conn.
func NewSubscriber(conn *wstransport.Client) *Subscriber {
	return &Subscriber{
		conn:    conn,
		pending: map[string]chan error{},
		subs:    map[string]*Subscription{},
	}
}

// Subscribe opens a subscription to topic. It blocks until the server's ack
// frame arrives, an error frame arrives instead, or ctx is cancelled.
func (s *Subscriber) Subscribe(ctx context.Context, topic string, opts ...SubscribeOption) (*Subscription, error) {
	s.ensurePump()

	cfg := subscribeConfig{bufferSize: 64}
	for _, o := range opts {
		o(&cfg)
	}

	id := uuid.NewString()
	ack := make(chan error, 1)
	s.mu.Lock()
	s.pending[id] = ack
	s.mu.Unlock()

	frame := wire.SubscribeFrame{
		Type:           wire.FrameTypeSubscribe,
		SubscriptionID: id,
		Topic:          topic,
		Filter:         cfg.filter,
		StartFrom:      cfg.startFrom,
		IncludeHistory: cfg.includeHistory,
	}
	if err := s.conn.Send(ctx, frame); err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return nil, err
	}

	select {
	case err := <-ack:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return nil, ctx.Err()
	}

	sub := newSubscription(id, topic, cfg.bufferSize, func() { s.unsubscribe(id, topic) })
	s.mu.Lock()
	s.subs[id] = sub
	s.mu.Unlock()
	return sub, nil
}

func (s *Subscriber) unsubscribe(id, topic string) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
	_ = s.conn.Send(context.Background(), wire.UnsubscribeFrame{
		Type: wire.FrameTypeUnsubscribe, SubscriptionID: id, Topic: topic,
	})
}

func (s *Subscriber) ensurePump() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()
	go s.pump()
}

// pump runs for the lifetime of conn, fanning out inbound frames to the
// waiting ack channel or the matching Subscription.
func (s *Subscriber) pump() {
	for {
		msg, err := s.conn.Receive(context.Background())
		if err != nil {
			s.failAll(err)
			return
		}
		s.dispatch(msg)
	}
}

func (s *Subscriber) failAll(err error) {
	s.mu.Lock()
	pending := s.pending
	subs := s.subs
	s.pending = map[string]chan error{}
	s.subs = map[string]*Subscription{}
	s.mu.Unlock()

	for _, ch := range pending {
		ch <- err
	}
	for _, sub := range subs {
		sub.fail(err)
	}
}

func (s *Subscriber) dispatch(msg any) {
	frame, ok := msg.(map[string]any)
	if !ok {
		return
	}
	id, _ := frame["subscriptionId"].(string)
	frameType, _ := frame["type"].(string)

	switch frameType {
	case wire.FrameTypeAck:
		s.mu.Lock()
		ack, found := s.pending[id]
		delete(s.pending, id)
		s.mu.Unlock()
		if found {
			ack <- nil
		}

	case wire.FrameTypeData:
		s.mu.Lock()
		sub, found := s.subs[id]
		s.mu.Unlock()
		if found {
			sub.deliver(frame["data"])
		}

	case wire.FrameTypeError:
		err := errorFromFrame(frame)
		s.mu.Lock()
		ack, isPending := s.pending[id]
		if isPending {
			delete(s.pending, id)
		}
		sub, isSub := s.subs[id]
		s.mu.Unlock()
		if isPending {
			ack <- err
		} else if isSub {
			sub.fail(err)
		}

	case wire.FrameTypeHeartbeat:
		// idle keepalive, no action required
	}
}

func errorFromFrame(frame map[string]any) error {
	errObj, _ := frame["error"].(map[string]any)
	message, _ := errObj["message"].(string)
	code, _ := errObj["code"].(string)
	if code == "" {
		code = string(errs.CodeProtocolError)
	}
	if message == "" {
		message = "subscription error"
	}
	return errs.NewRpcErrorWithData(errs.RpcCode(code), message, errObj["data"])
}

// Subscription is a single open subscription to a topic. Data delivered
// faster than the caller drains Next is held in a bounded drop-oldest
// buffer, so a slow consumer loses the oldest unread item rather than
// stalling the underlying connection.
type Subscription struct {
	id    string
	topic string

	mu     sync.Mutex
	buf    []any
	max    int
	err    error
	closed bool
	notify chan struct{}

	unsub     func()
	unsubOnce sync.Once
}

func newSubscription(id, topic string, max int, unsub func()) *Subscription {
	return &Subscription{id: id, topic: topic, max: max, notify: make(chan struct{}, 1), unsub: unsub}
}

// ID returns the subscription's correlation ID.
func (s *Subscription) ID() string { return s.id }

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.topic }

func (s *Subscription) deliver(data any) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.buf) >= s.max {
		s.buf = s.buf[1:] // drop oldest
	}
	s.buf = append(s.buf, data)
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	if !s.closed {
		s.err = err
	}
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until a data item arrives, the subscription fails or closes,
// or ctx is cancelled.
func (s *Subscription) Next(ctx context.Context) (any, error) {
	for {
		s.mu.Lock()
		if len(s.buf) > 0 {
			item := s.buf[0]
			s.buf = s.buf[1:]
			s.mu.Unlock()
			return item, nil
		}
		if s.err != nil {
			err := s.err
			s.mu.Unlock()
			return nil, err
		}
		if s.closed {
			s.mu.Unlock()
			return nil, ErrDone
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close unsubscribes and releases resources. Safe to call more than once.
func (s *Subscription) Close() {
	s.unsubOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.signal()
		if s.unsub != nil {
			s.unsub()
		}
	})
}
