package bufpool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Internal errors - mapped to public errors in the texpreview package.
var (
	ErrPoolSpec = errors.New("bufpool: pool requires a positive buffer count and size")
)

// Pool is a fixed collection of buffers. Buffers leave the idle list when
// handed to a capture source and come home through Buffer.Release. The
// idle list is FIFO so buffers are recycled in a stable rotation.
type Pool struct {
	mu        sync.Mutex
	idle      []*Buffer
	count     int
	size      int
	destroyed bool

	doubleReleases atomic.Uint64
}

// NewPool allocates count buffers of size bytes each. All buffers start
// on the idle list.
func NewPool(count, size int) (*Pool, error) {
	if count <= 0 || size <= 0 {
		return nil, fmt.Errorf("%w: count=%d size=%d", ErrPoolSpec, count, size)
	}

	p := &Pool{
		count: count,
		size:  size,
		idle:  make([]*Buffer, 0, count),
	}
	for i := 0; i < count; i++ {
		p.idle = append(p.idle, &Buffer{
			pool:    p,
			storage: make([]byte, size),
			idle:    true,
		})
	}
	return p, nil
}

// Get removes and returns the oldest idle buffer. Returns false
// immediately when no buffer is idle or the pool has been destroyed.
func (p *Pool) Get() (*Buffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed || len(p.idle) == 0 {
		return nil, false
	}

	b := p.idle[0]
	copy(p.idle, p.idle[1:])
	p.idle = p.idle[:len(p.idle)-1]
	b.idle = false
	return b, true
}

// put returns a buffer to the idle list. A buffer that is already idle is
// not re-queued; the event is counted so callers can detect the misuse.
func (p *Pool) put(b *Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b.idle {
		p.doubleReleases.Add(1)
		slog.Error("bufpool: buffer released twice, ignoring", "seq", b.Seq)
		return
	}

	b.reset()
	b.idle = true
	if !p.destroyed {
		p.idle = append(p.idle, b)
	}
}

// IdleCount returns the number of buffers currently on the idle list.
// After a clean teardown this equals Count.
func (p *Pool) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Count returns the fixed number of buffers the pool was created with.
func (p *Pool) Count() int { return p.count }

// Size returns the per-buffer storage size in bytes.
func (p *Pool) Size() int { return p.size }

// DoubleReleases returns how many redundant releases were absorbed.
func (p *Pool) DoubleReleases() uint64 { return p.doubleReleases.Load() }

// Destroy releases the pool's hold on its buffers. Idempotent. The caller
// must guarantee no concurrent access; this happens only after the render
// worker has fully stopped.
func (p *Pool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return
	}
	p.destroyed = true
	p.idle = nil
}
