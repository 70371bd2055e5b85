package workhandler

import (
	"context"
	"sync"
)

// Dispatcher marshals callbacks onto the goroutine that owns the table.
type Dispatcher interface {
	Dispatch(fn func())
}

// EventQueue is a Dispatcher whose callbacks run on whichever goroutine calls
// ProcessEvents or Run. Workers never touch row state directly, they queue a
// callback here instead.
type EventQueue struct {
	mu      sync.Mutex
	pending []func()
	notify  chan struct{}
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{notify: make(chan struct{}, 1)}
}

// Dispatch queues fn. It never blocks.
func (q *EventQueue) Dispatch(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// ProcessEvents runs every queued callback on the calling goroutine and
// returns how many ran.
func (q *EventQueue) ProcessEvents() int {
	total := 0
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		if len(batch) == 0 {
			return total
		}
		for _, fn := range batch {
			fn()
		}
		total += len(batch)
	}
}

// Run processes callbacks as they arrive until ctx is done.
func (q *EventQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.ProcessEvents()
			return
		case <-q.notify:
			q.ProcessEvents()
		}
	}
}

// Immediate runs callbacks on the dispatching goroutine. It is only safe when
// the caller already serialises access to the state the callbacks touch.
type Immediate struct{}

func (Immediate) Dispatch(fn func()) { fn() }
