package runtime

import (
	"encoding/json"
	"sync"
)

// requestKind distinguishes between request kinds.
type requestKind int

const (
	// requestDispatch is an action to forward to the engine.
	requestDispatch requestKind = iota + 1
	// requestState is a state read answered through a reply channel.
	requestState
)

// stateReply carries the answer to a state read.
type stateReply struct {
	data json.RawMessage
	err  error
}

// request wraps dispatches and state reads for the request queue.
type request struct {
	kind   requestKind
	action Action
	field  string
	reply  chan stateReply // buffered, size 1; requestState only
}

// requestQueue is a thread-safe FIFO queue of engine requests.
//
// The queue is unbounded so fire-and-forget dispatches never block the
// caller, no matter how far the loop is behind.
//
// Thread-safety covers external submission (any goroutine) while the
// Adapter's Run loop dequeues. The queue uses a channel for signaling to
// enable context-aware waiting in the Run loop.
type requestQueue struct {
	mu     sync.Mutex
	reqs   []request
	closed bool
	signal chan struct{} // Signals request availability (buffered, size 1)
}

// newRequestQueue creates an empty request queue.
func newRequestQueue() *requestQueue {
	return &requestQueue{
		reqs:   make([]request, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *requestQueue) Enqueue(r request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.reqs = append(q.reqs, r)

	// Non-blocking signal - buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (request{}, false) if the queue is empty.
func (q *requestQueue) TryDequeue() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.reqs) == 0 {
		return request{}, false
	}

	r := q.reqs[0]

	// Nil out the slot so the backing array does not retain the request's
	// payload and reply channel until reallocation.
	q.reqs[0] = request{}

	if len(q.reqs) == 1 {
		q.reqs = q.reqs[:0]
	} else {
		q.reqs = q.reqs[1:]
	}

	return r, true
}

// Wait returns a channel that signals when requests may be available.
// Use with select for context-aware waiting.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.reqs)
}

// Close signals that no more requests will be accepted.
// Wakes any blocked waiters by closing the signal channel.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Drain removes and returns all pending requests. Used on shutdown to fail
// outstanding state reads instead of leaving their callers waiting.
func (q *requestQueue) Drain() []request {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.reqs
	q.reqs = nil
	return pending
}
