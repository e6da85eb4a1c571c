package decision

import (
	"context"
	"errors"
	"sync"

	"github.com/arhipvp/docrouter/internal/domain"
)

// ErrQueueClosed is returned once the queue has been shut down.
var ErrQueueClosed = errors.New("decision queue is closed")

// Queue is a strict-FIFO queue of pending decisions with many producers and
// a single consumer. Enqueue never blocks: the backlog is unbounded, limited
// only by process memory. Duplicate request IDs are not collapsed — if two
// decisions share an ID, both reach the resolver.
type Queue struct {
	mu     sync.Mutex
	items  []*domain.PendingDecision
	closed bool

	// wake carries at most one token; the consumer re-checks the backlog
	// after every wakeup, so dropped tokens are harmless.
	wake chan struct{}
	done chan struct{}
}

// NewQueue creates an empty decision queue
func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Enqueue appends a decision to the backlog without blocking the caller
func (q *Queue) Enqueue(d *domain.PendingDecision) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, d)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue blocks until an item is available, the context is cancelled, or
// the queue is closed. This is the single consumer's only suspension point.
func (q *Queue) Dequeue(ctx context.Context) (*domain.PendingDecision, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			d := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return d, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.done:
			// Loop once more to drain anything enqueued before Close.
		case <-q.wake:
		}
	}
}

// Close rejects further producers. The consumer still drains what is already
// queued before seeing ErrQueueClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.done)
}

// Len reports the current backlog size
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
