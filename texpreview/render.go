package texpreview

import (
	"fmt"
	"math"
	"runtime"
	"time"
)

// renderLoop is the single render worker. It owns the GL context, the
// texture and the current buffer for the lifetime of the session; no
// other goroutine touches them until workerExited is set.
func (p *Pipeline) renderLoop() {
	defer p.wg.Done()

	// GL contexts are bound to an OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := p.rend.CreateWindow(&p.state); err != nil {
		p.setErr(fmt.Errorf("%w: create window: %v", ErrStart, err))
		p.log.Error("texpreview: create window failed", "error", err)
		p.stopping.Store(true)
		p.finishWorker()
		return
	}
	if err := p.scene.Init(&p.state); err != nil {
		p.setErr(fmt.Errorf("%w: scene init: %v", ErrStart, err))
		p.log.Error("texpreview: scene init failed", "error", err)
		p.stopping.Store(true)
		p.finishWorker()
		return
	}

	for !p.stopping.Load() {
		p.refillSource()
		if p.drainAndDraw() == 0 {
			// Nothing pending. Yield briefly instead of spinning.
			time.Sleep(p.pollInterval)
		}
	}

	p.finishWorker()
}

// finishWorker drains the pending queue, tears down the GL side and
// hands the current buffer back. Runs exactly once, on the worker
// goroutine, as its final act.
func (p *Pipeline) finishWorker() {
	drained := 0
	for {
		b, ok := p.queue.TryGet()
		if !ok {
			break
		}
		b.Release()
		drained++
	}
	if drained > 0 {
		p.log.Debug("texpreview: released pending buffers on shutdown", "count", drained)
	}

	p.rend.TerminateGL()

	// The GPU no longer references the current payload once the GL side
	// is gone, so the buffer can rejoin the idle pool.
	if p.current != nil {
		p.current.Release()
		p.current = nil
	}

	p.log.Info("texpreview: render worker exited",
		"frames_rendered", p.framesRendered.Load(),
		"frames_skipped", p.framesSkipped.Load(),
	)
	p.workerExited.Store(true)
}

// refillSource hands every idle buffer back to the capture side. A
// hand-back failure is not fatal: the buffer returns to the idle list
// and the next iteration retries it.
func (p *Pipeline) refillSource() {
	for {
		b, ok := p.pool.Get()
		if !ok {
			return
		}
		if err := p.src.SendEmptyBuffer(b); err != nil {
			p.refillFailures.Add(1)
			p.log.Warn("texpreview: buffer hand-back failed, will retry",
				"seq", b.Seq,
				"error", err,
			)
			b.Release()
			return
		}
	}
}

// drainAndDraw processes every buffer pending in the arrival queue, in
// FIFO order, and reports how many it handled. An import or draw
// failure is fatal to the session: the worker records the error and
// begins shutdown.
func (p *Pipeline) drainAndDraw() int {
	handled := 0
	for {
		b, ok := p.queue.TryGet()
		if !ok {
			return handled
		}
		handled++

		if p.stopping.Load() {
			// Shutdown already in progress. No GPU work; just recycle.
			b.Release()
			continue
		}

		if err := p.draw(b); err != nil {
			p.setErr(err)
			p.log.Error("texpreview: render failed, stopping session", "error", err, "seq", b.Seq)
			p.stopping.Store(true)
			return handled
		}

		// Give the delivery goroutine a chance between frames.
		runtime.Gosched()
	}
}

// draw imports one captured buffer into the texture, retires the buffer
// it supersedes and redraws the scene.
func (p *Pipeline) draw(b *Buffer) error {
	img, err := p.rend.UpdateTexture(b.Payload, &p.state)
	if err != nil {
		b.Release()
		return fmt.Errorf("%w: %v", ErrImport, err)
	}
	if img != nil {
		p.state.Image = img
	}

	// The texture now samples from the new payload, so the previous
	// buffer is no longer referenced and can go back to the pool.
	if p.current != nil {
		p.current.Release()
	}
	p.current = b

	p.state.PrevFrameTime = p.state.FrameTime
	p.state.FrameTime = normalizePTS(b.PTS)
	p.state.FrameSeq = b.Seq
	p.state.TraceID = b.TraceID

	if p.state.Image == nil {
		// No image established yet; keep the buffer current but skip
		// drawing until the renderer produces one.
		p.framesSkipped.Add(1)
		if p.cfg.Verbose {
			p.log.Debug("texpreview: no image yet, skipping draw", "seq", b.Seq)
		}
		return nil
	}

	if err := p.scene.Draw(&p.state); err != nil {
		return fmt.Errorf("texpreview: scene draw: %w", err)
	}
	if err := p.rend.SwapBuffers(); err != nil {
		return fmt.Errorf("texpreview: display swap: %w", err)
	}

	p.framesRendered.Add(1)
	if p.cfg.Verbose {
		p.log.Debug("texpreview: frame rendered",
			"seq", b.Seq,
			"frame_time", p.state.FrameTime,
			"trace_id", b.TraceID,
		)
	}
	return nil
}

// normalizePTS converts a presentation timestamp in microseconds to the
// scene clock in milliseconds. Sources that report timestamps as
// negative values are folded into the same positive timeline.
func normalizePTS(pts int64) float64 {
	return math.Abs(float64(pts) / 1000.0)
}
