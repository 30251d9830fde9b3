// Package streaming provides long-lived async sequences of events delivered
// either over a WebSocket subscription multiplexed on a wstransport.Client,
// or over a reconnecting Server-Sent Events consumer, plus map/filter/take
// combinators that work over either.
package streaming

import (
	"context"
	"errors"
)

// ErrDone is returned by Next once a sequence has produced every item it
// will ever produce (for example, after Take's count is exhausted).
var ErrDone = errors.New("streaming: sequence exhausted")

// Sequence is the minimal async-iterator surface Map, Filter, and Take
// operate over. *Subscription and *SSEStream both implement it.
type Sequence interface {
	Next(ctx context.Context) (any, error)
	Close()
}

// Map returns a Sequence yielding fn(v) for every v produced by src.
func Map(src Sequence, fn func(any) any) Sequence {
	return &mappedSequence{src: src, fn: fn}
}

type mappedSequence struct {
	src Sequence
	fn  func(any) any
}

func (m *mappedSequence) Next(ctx context.Context) (any, error) {
	v, err := m.src.Next(ctx)
	if err != nil {
		return nil, err
	}
	return m.fn(v), nil
}

func (m *mappedSequence) Close() { m.src.Close() }

// Filter returns a Sequence yielding only the values from src for which
// pred returns true, skipping the rest transparently.
func Filter(src Sequence, pred func(any) bool) Sequence {
	return &filteredSequence{src: src, pred: pred}
}

type filteredSequence struct {
	src  Sequence
	pred func(any) bool
}

func (f *filteredSequence) Next(ctx context.Context) (any, error) {
	for {
		v, err := f.src.Next(ctx)
		if err != nil {
			return nil, err
		}
		if f.pred(v) {
			return v, nil
		}
	}
}

func (f *filteredSequence) Close() { f.src.Close() }

// Take returns a Sequence yielding at most n items from src. Once n items
// have been produced (or src ends first), Take closes src and subsequent
// Next calls return ErrDone.
func Take(src Sequence, n int) Sequence {
	return &takeSequence{src: src, n: n}
}

type takeSequence struct {
	src   Sequence
	n     int
	taken int
	done  bool
}

func (t *takeSequence) Next(ctx context.Context) (any, error) {
	if t.done || t.taken >= t.n {
		if !t.done {
			t.done = true
			t.src.Close()
		}
		return nil, ErrDone
	}
	v, err := t.src.Next(ctx)
	if err != nil {
		if errors.Is(err, ErrDone) {
			t.done = true
			t.src.Close()
		}
		return nil, err
	}
	t.taken++
	if t.taken >= t.n {
		t.done = true
		t.src.Close()
	}
	return v, nil
}

func (t *takeSequence) Close() {
	if !t.done {
		t.done = true
		t.src.Close()
	}
}
