package attention

import "errors"

// Sentinel errors for the attention package.
var (
	// ErrInvalidThresholds indicates a threshold failed validation.
	ErrInvalidThresholds = errors.New("attention: invalid thresholds")

	// ErrBadSignal indicates a frame carried a NaN or infinite signal value.
	ErrBadSignal = errors.New("attention: malformed signal")

	// ErrExtraction indicates the upstream signal extractor failed for a frame.
	ErrExtraction = errors.New("attention: signal extraction failed")
)
