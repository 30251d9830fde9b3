package streaming

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Event is one parsed Server-Sent Event.
type Event struct {
	Event string
	Data  string
	ID    string
}

// SSEStream consumes a Server-Sent Events endpoint, reconnecting with
// exponential backoff and resuming via the Last-Event-ID header on an
// idle or dropped connection, the way Subscriber's underlying
// wstransport.Client reconnects its own WebSocket.
type SSEStream struct {
	url    string
	client *http.Client

	mu          sync.Mutex
	lastEventID string
	buf         []Event
	max         int
	err         error
	closed      bool
	notify      chan struct{}
	cancel      context.CancelFunc
}

// NewSSEStream opens url and starts the background read/reconnect loop.
// A nil httpClient uses http.DefaultClient.
func NewSSEStream(ctx context.Context, url string, httpClient *http.Client) *SSEStream {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	runCtx, cancel := context.WithCancel(ctx)
	s := &SSEStream{
		url:    url,
		client: httpClient,
		max:    256,
		notify: make(chan struct{}, 1),
		cancel: cancel,
	}
	go s.run(runCtx)
	return s
}

func (s *SSEStream) run(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 30 * time.Second

	for ctx.Err() == nil {
		err := s.connectOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		} else {
			b.Reset()
		}

		select {
		case <-time.After(b.NextBackOff()):
		case <-ctx.Done():
			return
		}
	}
}

func (s *SSEStream) connectOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	s.mu.Lock()
	lastID := s.lastEventID
	s.mu.Unlock()
	if lastID != "" {
		req.Header.Set("Last-Event-ID", lastID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("streaming: sse endpoint returned status %d", resp.StatusCode)
	}
	return s.readFrames(resp.Body)
}

// readFrames parses the text/event-stream wire format: event:/data:/id:/
// retry: fields and ":"-prefixed comments, terminated by a blank line.
func (s *SSEStream) readFrames(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var ev Event
	var dataLines []string
	flush := func() {
		if len(dataLines) == 0 && ev.Event == "" && ev.ID == "" {
			return
		}
		ev.Data = strings.Join(dataLines, "\n")
		if ev.ID != "" {
			s.mu.Lock()
			s.lastEventID = ev.ID
			s.mu.Unlock()
		}
		s.deliver(ev)
		ev = Event{}
		dataLines = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, ":"):
			// comment, ignored
		case strings.HasPrefix(line, "event:"):
			ev.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "id:"):
			ev.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case strings.HasPrefix(line, "retry:"):
			// server-suggested reconnect delay, not applied: reconnect
			// backoff here is this stream's own.
		}
	}
	flush()
	return scanner.Err()
}

func (s *SSEStream) deliver(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.buf) >= s.max {
		s.buf = s.buf[1:] // drop oldest
	}
	s.buf = append(s.buf, ev)
	s.mu.Unlock()
	s.signal()
}

func (s *SSEStream) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next returns the next event, blocking until one arrives, the stream is
// closed, or ctx is cancelled.
func (s *SSEStream) Next(ctx context.Context) (any, error) {
	for {
		s.mu.Lock()
		if len(s.buf) > 0 {
			ev := s.buf[0]
			s.buf = s.buf[1:]
			s.mu.Unlock()
			return ev, nil
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

// Close stops the background reconnect loop.
func (s *SSEStream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.signal()
}
