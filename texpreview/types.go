package texpreview

import (
	"fmt"
	"log/slog"
	"time"
)

// Phase is the lifecycle state of a Pipeline. Transitions are driven by
// the controller methods; see the Pipeline documentation for the order.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitialized
	PhaseSourceConfigured
	PhaseRunning
	PhaseStopping
	PhaseStopped
	PhaseDestroyed
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitialized:
		return "initialized"
	case PhaseSourceConfigured:
		return "source-configured"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseStopped:
		return "stopped"
	case PhaseDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Config holds the session configuration. All numeric tunables beyond the
// frame geometry are passed through to the scene collaborator untouched;
// the pipeline only range-checks them at construction time.
type Config struct {
	// Width and Height set the frame geometry in pixels.
	Width  int
	Height int

	// Opacity of the output surface, 0-255.
	Opacity int

	// Verbose enables per-frame detail logging.
	Verbose bool

	// Scene tunables. The pipeline does not interpret these; they are
	// carried on the render state for the scene to read.
	LuminanceThreshold  int
	LEDBlobSize         int
	LEDOneZeroThreshold float64
	LEDFindRadius       int
	LEDRadius           int
	NumberOfImages      int
	OnPixelsInFrame     int
	DynamicLuminance    bool
	SaveImage           int
	SaveImageWarmup     int

	// PollInterval is how long the render loop sleeps when the pending
	// queue is empty. Zero selects the default (1ms).
	PollInterval time.Duration

	// Logger receives all pipeline logging. nil selects slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the documented defaults: 720p geometry, opaque
// surface, and the stock scene tunables.
func DefaultConfig() Config {
	return Config{
		Width:               1280,
		Height:              720,
		Opacity:             255,
		LuminanceThreshold:  180,
		LEDBlobSize:         10,
		LEDOneZeroThreshold: 0.5,
		LEDFindRadius:       20,
		LEDRadius:           5,
		NumberOfImages:      1,
		OnPixelsInFrame:     100,
		DynamicLuminance:    true,
	}
}

func (c Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid geometry %dx%d: both dimensions must be positive", c.Width, c.Height)
	}
	if c.Opacity < 0 || c.Opacity > 255 {
		return fmt.Errorf("invalid opacity %d: must be 0-255", c.Opacity)
	}
	if c.LuminanceThreshold < 0 || c.LEDBlobSize < 0 || c.LEDFindRadius < 0 || c.LEDRadius < 0 || c.OnPixelsInFrame < 0 {
		return fmt.Errorf("scene thresholds must not be negative")
	}
	if c.LEDOneZeroThreshold <= 0 || c.LEDOneZeroThreshold > 1 {
		return fmt.Errorf("invalid one/zero threshold %.3f: must be in (0,1]", c.LEDOneZeroThreshold)
	}
	if c.NumberOfImages < 1 {
		return fmt.Errorf("invalid image count %d: must be at least 1", c.NumberOfImages)
	}
	if c.SaveImage < 0 || c.SaveImageWarmup < 0 {
		return fmt.Errorf("image save counters must not be negative")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("invalid poll interval %v: must not be negative", c.PollInterval)
	}
	return nil
}

// Image is an opaque handle to a GPU-side image produced by a Renderer.
// nil means no image has been imported yet.
type Image any

// RenderState is the shared session record handed to the scene on every
// hook. The controller populates it during Init; after Start it is
// mutated only by the render worker.
type RenderState struct {
	// Geometry and surface configuration, copied from Config at Init.
	Width   int
	Height  int
	Opacity int
	Verbose bool

	// Scene tunables, copied from Config at Init. Opaque to the pipeline.
	LuminanceThreshold  int
	LEDBlobSize         int
	LEDOneZeroThreshold float64
	LEDFindRadius       int
	LEDRadius           int
	NumberOfImages      int
	OnPixelsInFrame     int
	DynamicLuminance    bool
	SaveImage           int
	SaveImageWarmup     int

	// Image is the GPU image created from the current buffer's payload.
	// nil until the first successful import; the scene draw and display
	// swap are skipped while it is nil.
	Image Image

	// FrameTime is |PTS|/1000.0 of the current buffer; PrevFrameTime is
	// the value FrameTime held for the previous buffer. Scenes use the
	// pair to time intervals between frames.
	FrameTime     float64
	PrevFrameTime float64

	// FrameSeq and TraceID identify the current buffer's fill cycle.
	FrameSeq uint64
	TraceID  string
}

// PipelineStats is a snapshot of session counters. Counters are updated
// atomically; a snapshot is consistent enough for logging and tests but
// is not a transaction.
type PipelineStats struct {
	Phase          Phase
	FramesEnqueued uint64
	FramesRendered uint64
	FramesSkipped  uint64
	Anomalies      uint64
	RefillFailures uint64
	DoubleReleases uint64
	QueueDepth     int
	IdleBuffers    int
	EOS            bool
}
