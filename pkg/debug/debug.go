// Package debug provides global verbosity flags
package debug

import "fmt"

// Enabled controls whether verbose logging is active (--verbose)
var Enabled bool

// Tracking controls per-frame detector output.
// Very noisy; use --debug-tracking to enable.
var Tracking bool

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Printf(format, args...)
	}
}

// TrackLog prints a message only if tracking debug mode is enabled
func TrackLog(format string, args ...interface{}) {
	if Tracking {
		fmt.Printf(format, args...)
	}
}
