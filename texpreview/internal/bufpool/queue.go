package bufpool

import "sync"

// Queue is the thread-safe FIFO handing filled buffers from the capture
// completion callback to the render worker. Put never blocks; the queue
// grows as needed but is naturally bounded by the pool size since at most
// every pool buffer can be in flight at once.
type Queue struct {
	mu        sync.Mutex
	bufs      []*Buffer
	destroyed bool
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Put appends a buffer to the tail. Safe to call concurrently with
// TryGet. A destroyed queue silently drops the buffer; destruction only
// happens after all producers have stopped.
func (q *Queue) Put(b *Buffer) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.destroyed {
		return
	}
	q.bufs = append(q.bufs, b)
}

// TryGet removes and returns the head buffer. Returns false immediately
// when the queue is empty; it never blocks.
func (q *Queue) TryGet() (*Buffer, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.bufs) == 0 {
		return nil, false
	}

	b := q.bufs[0]
	copy(q.bufs, q.bufs[1:])
	q.bufs = q.bufs[:len(q.bufs)-1]
	return b, true
}

// Len returns the number of queued buffers.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.bufs)
}

// Destroy empties the queue and rejects further puts. Idempotent. Queued
// buffers are not released here; the render worker drains and releases
// them before teardown reaches this point.
func (q *Queue) Destroy() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.destroyed {
		return
	}
	q.destroyed = true
	q.bufs = nil
}
