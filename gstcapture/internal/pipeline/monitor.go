package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCounters holds atomic counters for different error categories
type ErrorCounters struct {
	Device  *uint64 // Capture device errors (missing, busy, permissions)
	Format  *uint64 // Format errors (caps negotiation, unsupported layout)
	Unknown *uint64 // Unclassified errors
}

// Monitor watches the GStreamer pipeline bus for messages.
//
// This function:
//  1. Polls the pipeline bus for messages (EOS, Error, StateChanged)
//  2. Classifies errors for telemetry and updates counters atomically
//  3. Returns nil on end of stream or context cancellation
//  4. Returns an error if the pipeline reports one
//
// End of stream is delivered to the application through the appsink EOS
// callback; the bus message only closes this monitor down.
func Monitor(ctx context.Context, pipeline *gst.Pipeline, counters *ErrorCounters) error {
	if pipeline == nil {
		return fmt.Errorf("pipeline not initialized")
	}

	bus := pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("pipeline: context cancelled, stopping bus monitor")
			return nil

		default:
			// Poll with a short timeout for responsive shutdown
			msg := bus.TimedPop(50 * time.Millisecond)
			if msg == nil {
				continue
			}

			switch msg.Type() {
			case gst.MessageEOS:
				slog.Info("pipeline: end of stream on bus")
				return nil

			case gst.MessageError:
				gerr := msg.ParseError()

				category := ClassifyError(gerr)
				switch category {
				case CategoryDevice:
					atomic.AddUint64(counters.Device, 1)
				case CategoryFormat:
					atomic.AddUint64(counters.Format, 1)
				case CategoryUnknown:
					atomic.AddUint64(counters.Unknown, 1)
				}

				slog.Error("pipeline: capture error",
					"error", gerr.Error(),
					"debug", gerr.DebugString(),
					"category", category.String(),
				)
				return fmt.Errorf("pipeline error [%s]: %s", category.String(), gerr.Error())

			case gst.MessageStateChanged:
				if msg.Source() == pipeline.GetName() {
					old, new := msg.ParseStateChanged()
					slog.Debug("pipeline: state changed",
						"from", old,
						"to", new,
					)
				}
			}
		}
	}
}
