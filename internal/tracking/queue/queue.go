// Package queue provides the bounded admission queue between the HTTP
// boundary and the ingestion worker. Producers never block: a full queue
// rejects the submission immediately (drop-newest) and the caller surfaces
// that as a throttling response.
package queue

import (
	"sync"
	"sync/atomic"

	"tracklix/tracking/internal/tracking/domain"
)

// DefaultCapacity absorbs bursty client traffic without unbounded memory
// growth.
const DefaultCapacity = 500_000

// Queue is a bounded multi-producer, single-consumer submission buffer.
// Accepted items are delivered FIFO on Items.
type Queue struct {
	ch       chan domain.Submission
	capacity int

	enqueued atomic.Int64
	dropped  atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// Stats is a read-only snapshot of the queue counters, intended for
// operational polling.
type Stats struct {
	Capacity int   `json:"capacity"`
	Depth    int   `json:"depth"`
	Enqueued int64 `json:"enqueued"`
	Dropped  int64 `json:"dropped"`
}

// New returns a queue with the given capacity. Non-positive capacities
// fall back to DefaultCapacity. The buffer is sized once and never grows.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		ch:       make(chan domain.Submission, capacity),
		capacity: capacity,
	}
}

// Submit offers a submission to the queue without blocking. It returns
// false when the queue is full or already closed; the item is discarded,
// not retried. Safe for concurrent producers.
func (q *Queue) Submit(sub domain.Submission) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		return false
	}
	select {
	case q.ch <- sub:
		q.enqueued.Add(1)
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Items is the consumer side of the queue. The channel closes after Close
// once the remaining buffered items have been delivered, so a range loop
// drains naturally on shutdown.
func (q *Queue) Items() <-chan domain.Submission {
	return q.ch
}

// Close stops accepting new submissions and closes the input side. Items
// already accepted stay buffered for the consumer to drain. Safe to call
// more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Capacity returns the fixed buffer size.
func (q *Queue) Capacity() int { return q.capacity }

// Depth returns the number of currently buffered submissions.
func (q *Queue) Depth() int { return len(q.ch) }

// Enqueued returns the cumulative count of accepted submissions.
func (q *Queue) Enqueued() int64 { return q.enqueued.Load() }

// Dropped returns the cumulative count of rejected submissions.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

// Snapshot returns the current counter values.
func (q *Queue) Snapshot() Stats {
	return Stats{
		Capacity: q.capacity,
		Depth:    q.Depth(),
		Enqueued: q.Enqueued(),
		Dropped:  q.Dropped(),
	}
}
