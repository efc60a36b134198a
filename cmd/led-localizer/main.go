package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hassaan-janjua/led-localization/glrender"
	"github.com/hassaan-janjua/led-localization/gstcapture"
	"github.com/hassaan-janjua/led-localization/texpreview"
)

// Version information
const version = "v0.1.0"

func main() {
	// Parse command-line flags
	device := flag.String("device", "", "V4L2 device path (empty = videotestsrc)")
	width := flag.Int("width", 1280, "Capture width in pixels")
	height := flag.Int("height", 720, "Capture height in pixels")
	fps := flag.Float64("fps", 30.0, "Capture FPS (0.1-60)")
	buffers := flag.Int("buffers", 3, "Frame buffers in the pool")
	opacity := flag.Int("opacity", 255, "Window opacity (0-255)")
	lumThreshold := flag.Int("luminance-threshold", 180, "Highlight pixels at or above this luminance (0-255)")
	vsync := flag.Bool("vsync", false, "Synchronize display swaps with monitor refresh")
	statsInterval := flag.Int("stats-interval", 10, "Seconds between stats reports")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("led-localizer %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	deviceName := *device
	if deviceName == "" {
		deviceName = "videotestsrc"
	}

	// Print banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║            LED Localizer - Camera Preview                 ║\n")
	fmt.Printf("║                      Version %s                        ║\n", version)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Device:        %s\n", deviceName)
	fmt.Printf("  Resolution:    %dx%d\n", *width, *height)
	fmt.Printf("  Capture FPS:   %.2f\n", *fps)
	fmt.Printf("  Buffers:       %d\n", *buffers)
	fmt.Printf("  Lum Threshold: %d\n", *lumThreshold)
	fmt.Printf("\n")

	// Create the capture source
	source, err := gstcapture.New(gstcapture.Config{
		Device:  *device,
		Width:   *width,
		Height:  *height,
		FPS:     *fps,
		Buffers: *buffers,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("Failed to create capture source: %v", err)
	}

	// Create the renderer and scene
	renderer := glrender.New(glrender.Config{
		Title:  fmt.Sprintf("led-localizer - %s", deviceName),
		VSync:  *vsync,
		Logger: logger,
	})
	scene := newLocalizerScene(logger)

	// Create the pipeline
	cfg := texpreview.DefaultConfig()
	cfg.Width = *width
	cfg.Height = *height
	cfg.Opacity = *opacity
	cfg.LuminanceThreshold = *lumThreshold
	cfg.Verbose = *debug
	cfg.Logger = logger

	pipe, err := texpreview.New(cfg, source, renderer, scene)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}

	if err := pipe.Init(); err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}
	if err := pipe.ConfigureSource(); err != nil {
		log.Fatalf("Failed to configure capture source: %v", err)
	}
	if err := pipe.Start(); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	fmt.Printf("Preview running...\n")
	fmt.Printf("Press Ctrl+C to stop gracefully\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n\n")

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	startTime := time.Now()

	statsTicker := time.NewTicker(time.Duration(*statsInterval) * time.Second)
	defer statsTicker.Stop()

	// Poll for session end: interrupt, end of stream, or a render error.
	pollTicker := time.NewTicker(200 * time.Millisecond)
	defer pollTicker.Stop()

	for {
		select {
		case <-sigChan:
			fmt.Printf("\n\nReceived interrupt signal, shutting down...\n")
			goto shutdown

		case <-statsTicker.C:
			printStats(pipe.Stats(), source.Stats(), time.Since(startTime))

		case <-pollTicker.C:
			if err := pipe.Err(); err != nil {
				slog.Error("Render session failed", "error", err)
				goto shutdown
			}
			if pipe.Stats().EOS {
				fmt.Printf("\nEnd of stream, shutting down...\n")
				goto shutdown
			}
		}
	}

shutdown:
	slog.Info("Stopping pipeline...")
	if err := pipe.Stop(); err != nil {
		slog.Error("Pipeline session ended with error", "error", err)
	}
	if err := pipe.Destroy(); err != nil {
		slog.Error("Error destroying pipeline", "error", err)
	}

	// Final stats
	finalStats := pipe.Stats()
	sourceStats := source.Stats()
	uptime := time.Since(startTime)

	fmt.Printf("\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("                     Final Statistics                      \n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("  Total Uptime:       %s\n", uptime.Round(time.Second))
	fmt.Printf("  Frames Captured:    %d frames\n", sourceStats.FramesPulled)
	fmt.Printf("  Frames Rendered:    %d frames\n", finalStats.FramesRendered)
	fmt.Printf("  Capture Drops:      %d frames (%.1f%%)\n", sourceStats.FramesDropped, sourceStats.DropRate)
	fmt.Printf("  Average FPS:        %.2f fps\n", sourceStats.FPSReal)
	fmt.Printf("  Bytes Captured:     %.2f MB\n", float64(sourceStats.BytesRead)/1024/1024)
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("\n")

	slog.Info("Preview completed")
}

// printStats renders the periodic statistics box.
func printStats(ps texpreview.PipelineStats, ss gstcapture.SourceStats, uptime time.Duration) {
	fmt.Printf("\n")
	fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
	fmt.Printf("│ Pipeline Statistics (Uptime: %s)\n", uptime.Round(time.Second))
	fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
	fmt.Printf("│ Phase:              %10s\n", ps.Phase)
	fmt.Printf("│ Frames Enqueued:    %6d frames\n", ps.FramesEnqueued)
	fmt.Printf("│ Frames Rendered:    %6d frames\n", ps.FramesRendered)
	if ps.FramesSkipped > 0 {
		fmt.Printf("│ Frames Skipped:     %6d frames\n", ps.FramesSkipped)
	}
	fmt.Printf("│ Queue Depth:        %6d\n", ps.QueueDepth)
	fmt.Printf("│ Idle Buffers:       %6d\n", ps.IdleBuffers)
	fmt.Printf("│ Capture FPS:        %6.2f fps\n", ss.FPSReal)
	if ss.FramesDropped > 0 {
		fmt.Printf("│ Capture Drops:      %6d frames (%.1f%%)\n", ss.FramesDropped, ss.DropRate)
	}
	if ps.RefillFailures > 0 || ps.Anomalies > 0 || ps.DoubleReleases > 0 {
		fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
		fmt.Printf("│ Anomaly Telemetry\n")
		fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
		fmt.Printf("│ Refill Failures:    %6d\n", ps.RefillFailures)
		fmt.Printf("│ Payload Anomalies:  %6d\n", ps.Anomalies)
		fmt.Printf("│ Double Releases:    %6d\n", ps.DoubleReleases)
	}
	totalErrors := ss.ErrorsDevice + ss.ErrorsFormat + ss.ErrorsUnknown
	if totalErrors > 0 {
		fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
		fmt.Printf("│ Capture Error Telemetry\n")
		fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
		fmt.Printf("│ Device Errors:      %6d\n", ss.ErrorsDevice)
		fmt.Printf("│ Format Errors:      %6d\n", ss.ErrorsFormat)
		fmt.Printf("│ Unknown Errors:     %6d\n", ss.ErrorsUnknown)
	}
	fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
	fmt.Printf("\n")
}
