package preview

import (
	"context"
	"sync"

	"movies-db/internal/catalog"
)

// Job asks the pipeline to build a preview for one entry.
type Job struct {
	ID catalog.ID
	// Ext is the media file extension recorded for the entry.
	Ext string
}

// Queue is an unbounded FIFO of jobs with a single consumer. Push never
// blocks, so request handlers can enqueue while the worker is busy.
type Queue struct {
	mu     sync.Mutex
	items  []Job
	closed bool

	notify chan struct{}
	done   chan struct{}
}

// NewQueue returns an empty open queue.
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends job. It reports false when the queue is closed.
func (q *Queue) Push(job Job) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, job)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the oldest job, waiting for one if the queue is empty. It
// reports false once the queue is closed and empty, or when ctx is done.
func (q *Queue) Pop(ctx context.Context) (Job, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			job := q.items[0]
			q.items[0] = Job{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return job, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return Job{}, false
		}

		select {
		case <-q.notify:
		case <-q.done:
		case <-ctx.Done():
			return Job{}, false
		}
	}
}

// Close stops accepting jobs. Jobs already queued can still be popped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
