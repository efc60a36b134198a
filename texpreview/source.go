package texpreview

// CompletionFunc receives a buffer the capture source has finished with:
// filled with a frame, carrying a zero Length at end of stream, or
// carrying a nil Payload when the source had nothing usable to deliver.
//
// It is invoked on the source's own delivery goroutine and must return
// quickly: implementations classify and enqueue, nothing more. It must
// never block and must never call into GPU or display APIs.
type CompletionFunc func(*Buffer)

// Source is the capture side of the pipeline: a camera, a test feed, or
// any producer that fills buffers with frames.
//
// Buffer flow: the pipeline hands idle buffers to the source through
// SendEmptyBuffer; the source copies frame bytes into Buffer.Storage(),
// points Payload at the filled prefix, sets Length, PTS, Seq and TraceID,
// and delivers the buffer through the completion callback installed by
// Enable. End of stream is delivered as a buffer with Length == 0.
//
// Ownership: a buffer belongs to the source from SendEmptyBuffer until
// the completion callback returns, and must not be touched by the source
// afterwards.
type Source interface {
	// EnableZeroCopy switches the source to handle-only transfer before
	// buffers are sized. Called once during source configuration.
	EnableZeroCopy() error

	// RecommendedBuffers reports how many buffers of what byte size the
	// source wants in rotation. The pipeline sizes the pool from this.
	RecommendedBuffers() (count, size int)

	// Enable installs the completion callback and starts delivery.
	// Either Enable succeeds and the source may begin delivering on its
	// own goroutine, or it fails and the callback is never invoked.
	Enable(complete CompletionFunc) error

	// SendEmptyBuffer hands an idle buffer to the source to be filled.
	// A failure is non-fatal to the session: the pipeline re-idles the
	// buffer and retries on a later refill pass.
	SendEmptyBuffer(b *Buffer) error

	// Disable stops delivery and releases the source's resources.
	// Idempotent. After Disable returns the completion callback is not
	// invoked again.
	Disable() error
}
