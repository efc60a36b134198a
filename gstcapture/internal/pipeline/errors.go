package pipeline

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory represents the classification of GStreamer errors for telemetry
type ErrorCategory int

const (
	// CategoryDevice indicates capture device failures (missing, busy, permissions)
	CategoryDevice ErrorCategory = iota
	// CategoryFormat indicates format failures (caps negotiation, unsupported layout)
	CategoryFormat
	// CategoryUnknown indicates unclassified errors
	CategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case CategoryDevice:
		return "device"
	case CategoryFormat:
		return "format"
	default:
		return "unknown"
	}
}

// ClassifyError analyzes a GStreamer error and categorizes it for telemetry.
//
// This distinguishes between:
// - Device issues (camera unplugged, busy, wrong permissions)
// - Format issues (caps negotiation failed, unsupported pixel layout)
// - Unknown issues (need investigation)
//
// Classification is based on error message heuristics; go-gst's GError
// does not expose Domain(), so we rely on string matching.
func ClassifyError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return CategoryUnknown
	}

	errMsg := strings.ToLower(gerr.Error())
	debugStr := strings.ToLower(gerr.DebugString())

	if containsDeviceKeywords(errMsg, debugStr) {
		return CategoryDevice
	}
	if containsFormatKeywords(errMsg, debugStr) {
		return CategoryFormat
	}

	return CategoryUnknown
}

// containsDeviceKeywords checks if error message contains device-related keywords
func containsDeviceKeywords(errMsg, debugStr string) bool {
	keywords := []string{
		"device",
		"v4l2",
		"busy",
		"no such file",
		"permission denied",
		"could not open",
		"disconnected",
		"ioctl",
	}

	combined := errMsg + " " + debugStr
	for _, kw := range keywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}

// containsFormatKeywords checks if error message contains format-related keywords
func containsFormatKeywords(errMsg, debugStr string) bool {
	// "negotiat" matches both "negotiation" and the hyphenated
	// "not-negotiated" GStreamer emits in debug strings.
	keywords := []string{
		"caps",
		"format",
		"negotiat",
		"colorimetry",
		"framerate",
		"resolution",
		"missing plugin",
	}

	combined := errMsg + " " + debugStr
	for _, kw := range keywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}
