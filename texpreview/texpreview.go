package texpreview

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hassaan-janjua/led-localization/texpreview/internal/bufpool"
)

const defaultPollInterval = time.Millisecond

// joinTimeout bounds how long Stop waits for the render worker before
// logging a warning. The loop observes stopping within one iteration, so
// the timeout only fires if a collaborator call wedged.
const joinTimeout = 3 * time.Second

// Pipeline is the zero-copy camera-to-texture session. One Pipeline owns
// one buffer pool, one pending queue and one render worker.
//
// Lifecycle: New → Init → ConfigureSource → Start → Stop → Destroy.
// Stop is idempotent; Destroy refuses to run while the worker is alive.
type Pipeline struct {
	cfg   Config
	log   *slog.Logger
	src   Source
	rend  Renderer
	scene Scene

	mu         sync.Mutex // guards phase, pool/queue/current handles, srcEnabled, started
	phase      Phase
	srcEnabled bool
	started    bool

	state RenderState // mutated only by the render worker after Start

	pool  *bufpool.Pool
	queue *bufpool.Queue

	// current is the buffer whose payload the GPU image points at. Owned
	// by the render worker while it runs; the controller touches it only
	// after the worker has exited.
	current *bufpool.Buffer

	stopping     atomic.Bool
	workerExited atomic.Bool
	wg           sync.WaitGroup

	errMu  sync.Mutex
	runErr error

	pollInterval time.Duration

	framesEnqueued atomic.Uint64
	framesRendered atomic.Uint64
	framesSkipped  atomic.Uint64
	anomalies      atomic.Uint64
	refillFailures atomic.Uint64
	eos            atomic.Bool
}

// New validates the configuration and binds the collaborators. No
// resources are created until Init/ConfigureSource.
func New(cfg Config, src Source, renderer Renderer, scene Scene) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("texpreview: invalid config: %w", err)
	}
	if src == nil {
		return nil, fmt.Errorf("texpreview: capture source cannot be nil")
	}
	if renderer == nil {
		return nil, fmt.Errorf("texpreview: renderer cannot be nil")
	}
	if scene == nil {
		return nil, fmt.Errorf("texpreview: scene cannot be nil")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	poll := cfg.PollInterval
	if poll == 0 {
		poll = defaultPollInterval
	}

	return &Pipeline{
		cfg:          cfg,
		log:          log,
		src:          src,
		rend:         renderer,
		scene:        scene,
		phase:        PhaseUninitialized,
		pollInterval: poll,
	}, nil
}

// Init applies the configured defaults to the shared render state and
// runs the scene's one-time open hook.
func (p *Pipeline) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase != PhaseUninitialized {
		return fmt.Errorf("%w: already initialized (phase %s)", ErrInit, p.phase)
	}

	p.state = RenderState{
		Width:               p.cfg.Width,
		Height:              p.cfg.Height,
		Opacity:             p.cfg.Opacity,
		Verbose:             p.cfg.Verbose,
		LuminanceThreshold:  p.cfg.LuminanceThreshold,
		LEDBlobSize:         p.cfg.LEDBlobSize,
		LEDOneZeroThreshold: p.cfg.LEDOneZeroThreshold,
		LEDFindRadius:       p.cfg.LEDFindRadius,
		LEDRadius:           p.cfg.LEDRadius,
		NumberOfImages:      p.cfg.NumberOfImages,
		OnPixelsInFrame:     p.cfg.OnPixelsInFrame,
		DynamicLuminance:    p.cfg.DynamicLuminance,
		SaveImage:           p.cfg.SaveImage,
		SaveImageWarmup:     p.cfg.SaveImageWarmup,
	}

	if err := p.scene.Open(&p.state); err != nil {
		return fmt.Errorf("%w: scene open: %v", ErrInit, err)
	}

	p.phase = PhaseInitialized
	p.log.Info("texpreview: initialized",
		"width", p.cfg.Width,
		"height", p.cfg.Height,
		"verbose", p.cfg.Verbose,
	)
	return nil
}

// ConfigureSource prepares the capture side: zero-copy handoff, buffer
// pool and pending queue sized to the source's recommendation, and the
// completion callback. Must be called exactly once, between Init and
// Start. On failure no pool or queue is left behind.
func (p *Pipeline) ConfigureSource() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase != PhaseInitialized {
		return fmt.Errorf("%w: must be called exactly once after Init (phase %s)", ErrConfigure, p.phase)
	}

	if err := p.src.EnableZeroCopy(); err != nil {
		return fmt.Errorf("%w: enable zero-copy: %v", ErrConfigure, err)
	}

	count, size := p.src.RecommendedBuffers()
	pool, err := bufpool.NewPool(count, size)
	if err != nil {
		return fmt.Errorf("%w: create pool: %v", ErrAllocation, err)
	}
	queue := bufpool.NewQueue()

	// The callback closes over the queue so a delivery can never observe
	// a half-configured pipeline.
	if err := p.src.Enable(func(b *Buffer) { p.completeBuffer(queue, b) }); err != nil {
		pool.Destroy()
		queue.Destroy()
		return fmt.Errorf("%w: enable source: %v", ErrConfigure, err)
	}

	p.pool = pool
	p.queue = queue
	p.srcEnabled = true
	p.phase = PhaseSourceConfigured
	p.log.Info("texpreview: source configured",
		"buffers", count,
		"buffer_size", size,
	)
	return nil
}

// Start spawns the render worker. Precondition: ConfigureSource
// succeeded.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase != PhaseSourceConfigured {
		return fmt.Errorf("%w: source not configured (phase %s)", ErrStart, p.phase)
	}

	p.wg.Add(1)
	p.started = true
	go p.renderLoop()

	p.phase = PhaseRunning
	p.log.Info("texpreview: render worker started")
	return nil
}

// Stop signals the render worker and waits for it to exit. Idempotent:
// stopping a pipeline that never started, or stopping twice, is a no-op.
// After Stop returns no further GPU or display calls occur.
//
// The return value surfaces the terminal render error when the worker
// died early (image import failure, scene failure); it is nil for a
// clean shutdown.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		p.log.Debug("texpreview: stop with no active worker")
		return nil
	}
	p.phase = PhaseStopping
	p.mu.Unlock()

	if p.stopping.CompareAndSwap(false, true) {
		p.log.Info("texpreview: stopping render worker")
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(joinTimeout):
		p.log.Warn("texpreview: timeout waiting for render worker to exit")
	}

	p.mu.Lock()
	p.phase = PhaseStopped
	p.mu.Unlock()

	return p.Err()
}

// Destroy releases the pool, the queue and the native window, and
// disables the capture source. Precondition: the render worker has
// exited, through Stop or on its own. Safe to call when some resources
// were never created, and safe to call more than once.
func (p *Pipeline) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase == PhaseDestroyed {
		return nil
	}
	if p.started && !p.workerExited.Load() {
		return fmt.Errorf("%w: stop the pipeline before destroy", ErrWorkerActive)
	}

	if p.srcEnabled {
		if err := p.src.Disable(); err != nil {
			p.log.Warn("texpreview: source disable failed", "error", err)
		}
		p.srcEnabled = false
	}

	if p.current != nil {
		p.current.Release()
		p.current = nil
	}
	if p.pool != nil {
		if idle := p.pool.IdleCount(); idle != p.pool.Count() {
			p.log.Warn("texpreview: destroying pool with buffers outstanding",
				"idle", idle,
				"count", p.pool.Count(),
			)
		}
		p.pool.Destroy()
		p.pool = nil
	}
	if p.queue != nil {
		p.queue.Destroy()
		p.queue = nil
	}

	p.rend.DestroyWindow()

	p.phase = PhaseDestroyed
	p.log.Info("texpreview: destroyed")
	return nil
}

// Phase returns the lifecycle phase as driven by the controller calls. A
// session terminated by end of stream or a render error stays in
// PhaseRunning until Stop is called; use Err and Stats to observe early
// termination.
func (p *Pipeline) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Err returns the terminal render error, or nil while the session is
// healthy. Set at most once, by the render worker.
func (p *Pipeline) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.runErr
}

func (p *Pipeline) setErr(err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.runErr == nil {
		p.runErr = err
	}
}

// Stats returns a snapshot of the session counters.
func (p *Pipeline) Stats() PipelineStats {
	p.mu.Lock()
	pool, queue, phase := p.pool, p.queue, p.phase
	p.mu.Unlock()

	st := PipelineStats{
		Phase:          phase,
		FramesEnqueued: p.framesEnqueued.Load(),
		FramesRendered: p.framesRendered.Load(),
		FramesSkipped:  p.framesSkipped.Load(),
		Anomalies:      p.anomalies.Load(),
		RefillFailures: p.refillFailures.Load(),
		EOS:            p.eos.Load(),
	}
	if pool != nil {
		st.IdleBuffers = pool.IdleCount()
		st.DoubleReleases = pool.DoubleReleases()
	}
	if queue != nil {
		st.QueueDepth = queue.Len()
	}
	return st
}

// completeBuffer is the capture completion callback. It runs on the
// source's delivery goroutine and must never block or touch the GPU.
func (p *Pipeline) completeBuffer(queue *bufpool.Queue, b *Buffer) {
	if b.Length == 0 {
		// End of stream. The worker drains and exits; Stop still owns
		// the final phase transition.
		p.log.Info("texpreview: end of stream from source", "seq", b.Seq)
		p.eos.Store(true)
		p.stopping.Store(true)
		b.Release()
		return
	}

	if b.Payload == nil {
		p.anomalies.Add(1)
		p.log.Warn("texpreview: buffer with no payload handle, releasing", "seq", b.Seq)
		b.Release()
		return
	}

	b.Arrival = time.Now().UnixMicro()
	queue.Put(b)
	p.framesEnqueued.Add(1)

	if p.cfg.Verbose {
		p.log.Debug("texpreview: frame enqueued",
			"seq", b.Seq,
			"length", b.Length,
			"pts_us", b.PTS,
			"trace_id", b.TraceID,
		)
	}
}
