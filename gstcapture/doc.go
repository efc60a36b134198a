// Package gstcapture implements a camera capture source on GStreamer,
// feeding frames into pipeline-owned buffers for the texpreview render
// pipeline.
//
// # Architecture
//
// The capture chain is a single straight line:
//
//	v4l2src (or videotestsrc) → videoconvert → capsfilter(RGBA) → appsink
//
// The capsfilter locks geometry, format and framerate up front, so every
// sample the appsink delivers is exactly one RGBA frame of known size.
// The appsink callback copies the pixels into the fixed storage of an
// idle pipeline buffer and hands the buffer to the completion callback;
// from there to the screen the payload is never copied again.
//
// # Buffer Discipline
//
// The source never allocates frame memory. The render side hands idle
// buffers back through SendEmptyBuffer; the capture callback takes one
// per sample. When none is idle the frame is dropped at the capture
// boundary and counted, which keeps capture latency flat when the
// renderer falls behind.
//
// # End of Stream
//
// GStreamer reports end of stream through the appsink. The source turns
// it into a zero-length buffer delivered to the completion callback, the
// marker the render pipeline shuts down on. If no buffer is idle at that
// moment the marker rides on the next hand-back.
//
// # Devices
//
// A V4L2 device path selects a real camera. An empty path selects
// videotestsrc, which makes the whole pipeline runnable on machines
// without camera hardware (useful in development and CI).
package gstcapture
