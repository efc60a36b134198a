package gstcapture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/hassaan-janjua/led-localization/gstcapture/internal/pipeline"
	"github.com/hassaan-janjua/led-localization/texpreview"
)

// Config holds the capture configuration.
type Config struct {
	// Device is the V4L2 device path (e.g. /dev/video0). Empty selects
	// the synthetic test source, which needs no camera hardware.
	Device string

	// Width and Height select the capture geometry in pixels.
	Width  int
	Height int

	// FPS is the capture framerate. Fractional rates below 1.0 are
	// supported (0.5 → one frame every two seconds).
	FPS float64

	// Buffers is how many frame buffers the source asks the pipeline to
	// allocate. Zero selects the default (3).
	Buffers int

	// Logger receives all capture logging. nil selects slog.Default().
	Logger *slog.Logger
}

const defaultBuffers = 3

// SourceStats holds capture statistics
type SourceStats struct {
	FramesPulled  uint64  // Frames copied into pipeline buffers
	FramesDropped uint64  // Frames dropped because no idle buffer was available
	DropRate      float64 // Percentage of frames dropped
	BytesRead     uint64  // Total payload bytes delivered
	FPSReal       float64 // Measured delivery rate since Enable
	Device        string  // Device path, or "videotestsrc"
	Resolution    string  // "WxH"
	IsCapturing   bool    // True between Enable and Disable
	ErrorsDevice  uint64  // Device errors (missing, busy, permissions)
	ErrorsFormat  uint64  // Format errors (caps negotiation)
	ErrorsUnknown uint64  // Unclassified pipeline errors
}

// CameraSource delivers camera frames into pipeline-owned buffers
// through a GStreamer capture chain. It implements texpreview.Source.
//
// Frames are written into the fixed storage of buffers the render side
// hands back through SendEmptyBuffer; the completion callback then
// receives the filled buffer without any further copies. When no idle
// buffer is available a frame is dropped at the capture boundary and
// counted, never queued.
type CameraSource struct {
	device  string
	width   int
	height  int
	fps     float64
	buffers int
	log     *slog.Logger

	mu       sync.Mutex
	elements *pipeline.Elements
	empties  chan *texpreview.Buffer
	complete texpreview.CompletionFunc
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  time.Time

	zeroCopy   atomic.Bool
	enabled    atomic.Bool
	disabled   atomic.Bool
	eosPending atomic.Bool

	// Statistics (atomic for thread-safety)
	seq           uint64
	framesPulled  uint64
	framesDropped uint64
	bytesRead     uint64
	errorsDevice  uint64
	errorsFormat  uint64
	errorsUnknown uint64
}

// New creates a camera source with fail-fast validation.
//
// Validates configuration at construction time:
//   - Width and Height must be positive
//   - FPS must be between 0.1 and 60.0
//   - Buffers must be between 1 and 32 (or zero for the default)
//
// No GStreamer resources are created until Enable.
func New(cfg Config) (*CameraSource, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf(
			"gstcapture: invalid resolution %dx%d (both dimensions must be positive)",
			cfg.Width, cfg.Height,
		)
	}
	if cfg.FPS < 0.1 || cfg.FPS > 60 {
		return nil, fmt.Errorf(
			"gstcapture: invalid FPS %.2f (must be 0.1-60)",
			cfg.FPS,
		)
	}
	buffers := cfg.Buffers
	if buffers == 0 {
		buffers = defaultBuffers
	}
	if buffers < 1 || buffers > 32 {
		return nil, fmt.Errorf(
			"gstcapture: invalid buffer count %d (must be 1-32)",
			cfg.Buffers,
		)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &CameraSource{
		device:  cfg.Device,
		width:   cfg.Width,
		height:  cfg.Height,
		fps:     cfg.FPS,
		buffers: buffers,
		log:     log,
	}

	log.Info("gstcapture: camera source created",
		"device", s.deviceName(),
		"resolution", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"fps", cfg.FPS,
		"buffers", buffers,
	)

	return s, nil
}

// EnableZeroCopy arms the copy-free handoff: filled buffers are handed
// to the completion callback with their payload aliasing the buffer's
// own storage. Must be called before Enable.
func (s *CameraSource) EnableZeroCopy() error {
	if s.enabled.Load() {
		return fmt.Errorf("gstcapture: zero-copy must be configured before Enable")
	}
	s.zeroCopy.Store(true)
	s.log.Debug("gstcapture: zero-copy handoff enabled")
	return nil
}

// RecommendedBuffers reports the buffer pool geometry this source needs:
// the configured buffer count, each large enough for one RGBA frame.
func (s *CameraSource) RecommendedBuffers() (int, int) {
	return s.buffers, s.width * s.height * 4
}

// Enable builds the capture pipeline, installs the completion callback
// and starts capturing. Either it succeeds and frames may begin arriving
// at the callback, or it fails and the callback is never invoked.
func (s *CameraSource) Enable(complete texpreview.CompletionFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled.Load() {
		return fmt.Errorf("gstcapture: source already enabled")
	}
	if complete == nil {
		return fmt.Errorf("gstcapture: completion callback is required")
	}

	elements, err := pipeline.Create(pipeline.Config{
		Device: s.device,
		Width:  s.width,
		Height: s.height,
		FPS:    s.fps,
	})
	if err != nil {
		return fmt.Errorf("gstcapture: failed to create pipeline: %w", err)
	}

	empties := make(chan *texpreview.Buffer, s.buffers)

	// The callbacks close over the channel and completion function so a
	// sample delivery can never observe a half-enabled source.
	elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return s.pullFrame(sink, empties, complete)
		},
		EOSFunc: func(sink *app.Sink) {
			s.streamEnded(empties, complete)
		},
	})

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		if derr := pipeline.Destroy(elements); derr != nil {
			s.log.Error("gstcapture: teardown after failed start", "error", derr)
		}
		return fmt.Errorf("gstcapture: failed to start pipeline: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.elements = elements
	s.empties = empties
	s.complete = complete
	s.cancel = cancel
	s.started = time.Now()

	s.wg.Add(1)
	go s.monitorBus(ctx, elements.Pipeline)

	s.enabled.Store(true)
	s.log.Info("gstcapture: capture enabled",
		"device", s.deviceName(),
		"resolution", fmt.Sprintf("%dx%d", s.width, s.height),
		"fps", s.fps,
	)
	return nil
}

// SendEmptyBuffer hands an idle buffer back for the camera to fill.
// Never blocks. After end of stream the first hand-back is consumed as
// the stream-end marker instead of being queued.
func (s *CameraSource) SendEmptyBuffer(b *texpreview.Buffer) error {
	s.mu.Lock()
	empties, complete := s.empties, s.complete
	s.mu.Unlock()

	if empties == nil || s.disabled.Load() {
		return fmt.Errorf("gstcapture: source not capturing")
	}

	if s.eosPending.CompareAndSwap(true, false) {
		b.Payload = nil
		b.Length = 0
		complete(b)
		return nil
	}

	select {
	case empties <- b:
		return nil
	default:
		return fmt.Errorf("gstcapture: no slot for idle buffer")
	}
}

// Disable stops capturing and tears the pipeline down. Idempotent. No
// completion callback runs after Disable returns.
func (s *CameraSource) Disable() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled.Load() {
		s.log.Debug("gstcapture: source not enabled, nothing to disable")
		return nil
	}
	if !s.disabled.CompareAndSwap(false, true) {
		return nil
	}

	s.log.Info("gstcapture: disabling capture")

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Debug("gstcapture: bus monitor stopped cleanly")
	case <-time.After(3 * time.Second):
		s.log.Warn("gstcapture: timeout waiting for bus monitor")
	}

	// The NULL transition inside Destroy joins the streaming threads, so
	// no sample callback survives it.
	if s.elements != nil {
		if err := pipeline.Destroy(s.elements); err != nil {
			s.log.Error("gstcapture: failed to destroy pipeline", "error", err)
		}
		s.elements = nil
	}

	// Idle buffers handed back before the stop are still queued here.
	// Return them to their pool so teardown accounting stays exact.
	returned := 0
	if s.empties != nil {
	drain:
		for {
			select {
			case b := <-s.empties:
				b.Release()
				returned++
			default:
				break drain
			}
		}
	}
	if returned > 0 {
		s.log.Debug("gstcapture: returned idle buffers", "count", returned)
	}
	s.empties = nil

	framesPulled := atomic.LoadUint64(&s.framesPulled)
	framesDropped := atomic.LoadUint64(&s.framesDropped)
	s.log.Info("gstcapture: capture disabled",
		"frames_pulled", framesPulled,
		"frames_dropped", framesDropped,
		"uptime", time.Since(s.started),
	)
	return nil
}

// Stats returns current capture statistics.
//
// Thread-safe - uses atomic operations for counters.
func (s *CameraSource) Stats() SourceStats {
	framesPulled := atomic.LoadUint64(&s.framesPulled)
	framesDropped := atomic.LoadUint64(&s.framesDropped)
	bytesRead := atomic.LoadUint64(&s.bytesRead)

	s.mu.Lock()
	started := s.started
	capturing := s.elements != nil
	s.mu.Unlock()

	var fpsReal float64
	if !started.IsZero() {
		uptime := time.Since(started).Seconds()
		if uptime > 0 {
			fpsReal = float64(framesPulled) / uptime
		}
	}

	var dropRate float64
	totalAttempts := framesPulled + framesDropped
	if totalAttempts > 0 {
		dropRate = (float64(framesDropped) / float64(totalAttempts)) * 100.0
	}

	return SourceStats{
		FramesPulled:  framesPulled,
		FramesDropped: framesDropped,
		DropRate:      dropRate,
		BytesRead:     bytesRead,
		FPSReal:       fpsReal,
		Device:        s.deviceName(),
		Resolution:    fmt.Sprintf("%dx%d", s.width, s.height),
		IsCapturing:   capturing,
		ErrorsDevice:  atomic.LoadUint64(&s.errorsDevice),
		ErrorsFormat:  atomic.LoadUint64(&s.errorsFormat),
		ErrorsUnknown: atomic.LoadUint64(&s.errorsUnknown),
	}
}

// pullFrame is called by GStreamer when a new sample is available.
//
// This callback:
//  1. Pulls the sample from the appsink and maps its buffer
//  2. Takes an idle pipeline buffer (non-blocking; drops the frame if none)
//  3. Copies the pixels into the buffer's fixed storage
//  4. Stamps sequence, timestamp and trace metadata
//  5. Hands the filled buffer to the completion callback
//
// Returns gst.FlowOK in every case; a single bad sample must not kill
// the capture stream.
func (s *CameraSource) pullFrame(sink *app.Sink, empties chan *texpreview.Buffer, complete texpreview.CompletionFunc) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		s.log.Warn("gstcapture: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}

	gbuf := sample.GetBuffer()
	if gbuf == nil {
		s.log.Warn("gstcapture: sample carries no buffer, skipping frame")
		return gst.FlowOK
	}

	mapInfo := gbuf.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		gbuf.Unmap()
		s.log.Warn("gstcapture: empty sample from pipeline, skipping frame")
		return gst.FlowOK
	}

	select {
	case b := <-empties:
		n := copy(b.Storage(), data)
		pts := gbuf.PresentationTimestamp().Microseconds()
		gbuf.Unmap()

		b.Payload = b.Storage()[:n]
		b.Length = n
		b.PTS = pts
		b.Seq = atomic.AddUint64(&s.seq, 1)
		b.TraceID = uuid.New().String()

		atomic.AddUint64(&s.framesPulled, 1)
		atomic.AddUint64(&s.bytesRead, uint64(n))

		complete(b)

	default:
		gbuf.Unmap()
		// Render side still owns every buffer. Drop at the capture
		// boundary rather than queueing.
		atomic.AddUint64(&s.framesDropped, 1)
		s.log.Debug("gstcapture: no idle buffer available, dropping frame")
	}

	return gst.FlowOK
}

// streamEnded is called by GStreamer when the stream finishes. The end
// marker is a zero-length buffer; if none is idle right now the marker
// is deferred to the next hand-back.
func (s *CameraSource) streamEnded(empties chan *texpreview.Buffer, complete texpreview.CompletionFunc) {
	select {
	case b := <-empties:
		b.Payload = nil
		b.Length = 0
		complete(b)
		s.log.Info("gstcapture: end of stream delivered")
	default:
		s.eosPending.Store(true)
		s.log.Info("gstcapture: end of stream pending, waiting for an idle buffer to mark it")
	}
}

// monitorBus watches the pipeline bus until the source is disabled or
// the pipeline fails.
func (s *CameraSource) monitorBus(ctx context.Context, p *gst.Pipeline) {
	defer s.wg.Done()

	counters := &pipeline.ErrorCounters{
		Device:  &s.errorsDevice,
		Format:  &s.errorsFormat,
		Unknown: &s.errorsUnknown,
	}

	if err := pipeline.Monitor(ctx, p, counters); err != nil {
		s.log.Error("gstcapture: capture pipeline failed",
			"error", err,
			"device", s.deviceName(),
			"uptime", time.Since(s.started),
			"frames_pulled", atomic.LoadUint64(&s.framesPulled),
		)
	}
}

func (s *CameraSource) deviceName() string {
	if s.device == "" {
		return "videotestsrc"
	}
	return s.device
}
