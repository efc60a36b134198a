// Package bufpool implements the fixed buffer pool and the pending FIFO
// queue that carry frames between a capture source and the render worker.
//
// A Buffer is owned by exactly one party at any instant: the pool's idle
// list, the capture source (after being handed out as an empty buffer),
// the pending queue, or the render worker. Ownership moves with the
// buffer; it is never shared across threads.
package bufpool

// Buffer is one reusable frame slot. The backing storage is allocated once
// by the pool and reused across fill cycles; per-cycle fields are reset
// when the buffer returns to the idle list.
type Buffer struct {
	// Payload is the filled view of the buffer for the current cycle,
	// normally a slice of the backing storage. nil means the source
	// delivered no usable handle for this cycle.
	Payload []byte

	// Length is the number of valid payload bytes. A completion with
	// Length == 0 signals end of stream.
	Length int

	// PTS is the presentation timestamp in microseconds as reported by
	// the capture source. May be negative on sources with an unanchored
	// clock; consumers normalize the sign.
	PTS int64

	// Arrival is the wall-clock time in microseconds at which the filled
	// buffer was accepted for rendering. Stamped by the completion
	// callback, not by the source.
	Arrival int64

	// Seq is the source's fill sequence number for this cycle.
	Seq uint64

	// TraceID identifies this fill cycle in logs.
	TraceID string

	pool    *Pool
	storage []byte
	idle    bool
}

// Storage returns the buffer's fixed backing slice. Sources copy frame
// bytes into it and point Payload at the filled prefix.
func (b *Buffer) Storage() []byte { return b.storage }

// Capacity returns the size of the backing storage in bytes.
func (b *Buffer) Capacity() int { return len(b.storage) }

// Release returns the buffer to its origin pool and resets the per-cycle
// fields. Releasing a buffer that is already idle is absorbed and counted
// by the pool; the idle list stays consistent.
func (b *Buffer) Release() {
	b.pool.put(b)
}

func (b *Buffer) reset() {
	b.Payload = nil
	b.Length = 0
	b.PTS = 0
	b.Arrival = 0
	b.Seq = 0
	b.TraceID = ""
}
