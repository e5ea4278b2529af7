package pool

import (
	"context"

	"github.com/rileyhilliard/ipmicollect/internal/poller"
)

// Result is one host's outcome for a cycle.
type Result = poller.Result

// WorkQueue hands hosts to workers. It is created once and reused every
// cycle; a host put once is taken by exactly one worker.
type WorkQueue struct {
	ch chan string
}

// NewWorkQueue creates a queue that holds up to capacity hosts without blocking.
func NewWorkQueue(capacity int) *WorkQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &WorkQueue{ch: make(chan string, capacity)}
}

// Put enqueues host, blocking while the queue is full.
func (q *WorkQueue) Put(ctx context.Context, host string) error {
	select {
	case q.ch <- host:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take blocks until a host is available or ctx is done.
func (q *WorkQueue) Take(ctx context.Context) (string, bool) {
	select {
	case host := <-q.ch:
		return host, true
	case <-ctx.Done():
		return "", false
	}
}

// Len returns the number of hosts waiting to be taken.
func (q *WorkQueue) Len() int {
	return len(q.ch)
}

// Results carries worker output back to the scheduler. Like WorkQueue it
// lives for the whole process.
type Results struct {
	ch chan Result
}

// NewResults creates a results channel buffered for capacity entries.
func NewResults(capacity int) *Results {
	if capacity < 1 {
		capacity = 1
	}
	return &Results{ch: make(chan Result, capacity)}
}

// Send delivers r, giving up when ctx is done.
func (r *Results) Send(ctx context.Context, res Result) bool {
	select {
	case r.ch <- res:
		return true
	case <-ctx.Done():
		return false
	}
}

// Recv blocks until a result arrives or ctx is done.
func (r *Results) Recv(ctx context.Context) (Result, bool) {
	select {
	case res := <-r.ch:
		return res, true
	case <-ctx.Done():
		return Result{}, false
	}
}

// Drain discards buffered results and returns how many there were.
func (r *Results) Drain() int {
	n := 0
	for {
		select {
		case <-r.ch:
			n++
		default:
			return n
		}
	}
}
