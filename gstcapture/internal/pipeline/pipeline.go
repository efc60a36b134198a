package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Config contains configuration for GStreamer pipeline creation
type Config struct {
	Device string // V4L2 device path; empty selects the synthetic test source
	Width  int
	Height int
	FPS    float64
}

// Elements holds references to GStreamer pipeline elements.
// These references are needed for state changes and cleanup.
type Elements struct {
	Pipeline   *gst.Pipeline
	AppSink    *app.Sink
	Source     *gst.Element
	CapsFilter *gst.Element
	TestSource bool // True when running on videotestsrc instead of a camera
}

// Create builds and configures a GStreamer capture pipeline.
//
// Pipeline structure:
//
//	v4l2src (or videotestsrc) → videoconvert → capsfilter → appsink
//
// The capsfilter locks the output to RGBA at the requested geometry and
// framerate, so every sample delivered downstream has a fixed size of
// width*height*4 bytes.
//
// The pipeline is configured but NOT started (state remains NULL).
// Caller must call pipeline.SetState(gst.StatePlaying) to start.
func Create(cfg Config) (*Elements, error) {
	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	// Create the capture source. A real device uses v4l2src; without a
	// device the synthetic test source stands in, which keeps the whole
	// path usable on machines with no camera.
	var source *gst.Element
	testSource := cfg.Device == ""
	if testSource {
		source, err = gst.NewElement("videotestsrc")
		if err != nil {
			return nil, fmt.Errorf("failed to create videotestsrc: %w", err)
		}
		// Live mode paces delivery and produces camera-like timestamps.
		source.SetProperty("is-live", true)
		slog.Debug("pipeline: using synthetic test source")
	} else {
		source, err = gst.NewElement("v4l2src")
		if err != nil {
			return nil, fmt.Errorf("failed to create v4l2src: %w", err)
		}
		source.SetProperty("device", cfg.Device)
		slog.Debug("pipeline: using camera device", "device", cfg.Device)
	}

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}
	converter.SetProperty("n-threads", 0) // 0 = auto-detect cores

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsStr := buildCaps(cfg.Width, cfg.Height, cfg.FPS)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)    // No sync with clock (real-time)
	appsink.SetProperty("max-buffers", 1) // Keep only latest frame
	appsink.SetProperty("drop", true)     // Drop old frames

	pipeline.AddMany(
		source,
		converter,
		capsfilter,
		appsink.Element,
	)

	// All elements here have static pads, so the whole chain links up
	// front (no pad-added callback needed).
	if err := gst.ElementLinkMany(
		source,
		converter,
		capsfilter,
		appsink.Element,
	); err != nil {
		return nil, fmt.Errorf("failed to link pipeline elements: %w", err)
	}

	slog.Debug("pipeline: capture pipeline created", "caps", capsStr)

	return &Elements{
		Pipeline:   pipeline,
		AppSink:    appsink,
		Source:     source,
		CapsFilter: capsfilter,
		TestSource: testSource,
	}, nil
}

// Destroy cleans up GStreamer pipeline resources.
//
// Sets pipeline state to NULL and releases all resources. The NULL
// transition joins the streaming threads, so no appsink callback runs
// after this returns. Safe to call even if the pipeline is already
// destroyed.
func Destroy(elements *Elements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}

	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}

	return nil
}

// buildCaps builds a caps string locking format, geometry and framerate.
//
// Handles fractional framerates:
//   - fps >= 1.0: framerate = fps/1 (e.g., 30.0 → 30/1)
//   - fps < 1.0: framerate = 1/(1/fps) (e.g., 0.5 → 1/2)
func buildCaps(width, height int, fps float64) string {
	numerator := 1
	denominator := 1

	if fps < 1.0 {
		denominator = int(1.0 / fps)
	} else {
		numerator = int(fps)
	}

	return fmt.Sprintf(
		"video/x-raw,format=RGBA,width=%d,height=%d,framerate=%d/%d",
		width, height, numerator, denominator,
	)
}
