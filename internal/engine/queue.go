package engine

import (
	"sync"

	"archplan/internal/plan"
)

// task is one accepted batch awaiting execution.
type task struct {
	operationID string
	batch       *plan.Batch
}

// taskQueue is a thread-safe FIFO queue of accepted batches.
//
// Enqueuing is safe from any goroutine (the HTTP intake runs one
// goroutine per connection); only the engine's Run loop dequeues. The
// queue is unbounded: batch admission is bounded upstream by maxChanges
// and the request body limit, and a queued batch is already committed,
// so blocking or dropping here would break the submit contract.
//
// A buffered signal channel lets the Run loop wait without spinning and
// still react to context cancellation.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []*task
	closed bool
	signal chan struct{} // buffered size 1, coalesces wakeups
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]*task, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends a task. Returns false if the queue is closed.
func (q *taskQueue) Enqueue(t *task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the front task without blocking.
func (q *taskQueue) TryDequeue() (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}
	t := q.tasks[0]

	// Nil the slot so the backing array does not retain the batch.
	q.tasks[0] = nil
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return t, true
}

// Wait returns the wakeup channel for select-based waiting. The channel
// closes when the queue closes.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending tasks.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close stops further enqueues and wakes all waiters.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
