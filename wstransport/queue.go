package wstransport

import "github.com/dorpc/rpc/errs"

// boundedQueue is a small FIFO with a configurable overflow policy. It is
// not safe for concurrent use on its own; callers hold Client.mu around
// every operation.
type boundedQueue[T any] struct {
	items  []T
	max    int
	policy OverflowPolicy
	name   string // used only in QueueFull error messages
}

func newBoundedQueue[T any](name string, max int, policy OverflowPolicy) *boundedQueue[T] {
	return &boundedQueue[T]{name: name, max: max, policy: policy}
}

// push inserts item, applying the overflow policy if the queue is already
// at capacity. evictedOK reports whether an entry was dropped under
// drop-oldest, and evicted is that entry. Under drop-newest item is
// discarded with evictedOK false and a nil err; under the error policy err
// is a QueueFull error.
func (q *boundedQueue[T]) push(item T) (evicted T, evictedOK bool, err error) {
	if len(q.items) < q.max {
		q.items = append(q.items, item)
		return evicted, false, nil
	}

	switch q.policy {
	case OverflowDropOldest:
		evicted = q.items[0]
		q.items = append(q.items[1:], item)
		return evicted, true, nil
	case OverflowDropNewest:
		return evicted, false, nil
	default:
		return evicted, false, errs.NewTransportError(errs.CodeQueueFull, q.name+" queue is full").
			WithData(map[string]any{"queue": q.name, "limit": q.max})
	}
}

// pop removes and returns the oldest item, if any.
func (q *boundedQueue[T]) pop() (item T, ok bool) {
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *boundedQueue[T]) len() int { return len(q.items) }

// drain empties the queue and returns everything it held, in order.
func (q *boundedQueue[T]) drain() []T {
	items := q.items
	q.items = nil
	return items
}
