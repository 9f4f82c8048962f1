package attention

import (
	"math"
	"time"
)

// FallbackFPS is used whenever the measured rate is zero or undefined,
// which always happens on the first frame.
const FallbackFPS = 10.0

// FrameRate estimates the loop's frame rate as frames processed divided by
// time since start.
type FrameRate struct {
	start time.Time
}

// NewFrameRate starts the clock at start.
func NewFrameRate(start time.Time) *FrameRate {
	return &FrameRate{start: start}
}

// Start returns when the clock started.
func (f *FrameRate) Start() time.Time {
	return f.start
}

// Tick returns the current rate and the per-frame duration 1/fps.
func (f *FrameRate) Tick(frameIndex int, now time.Time) (float64, time.Duration) {
	elapsed := now.Sub(f.start).Seconds()
	fps := float64(frameIndex) / elapsed
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 {
		fps = FallbackFPS
	}
	return fps, time.Duration(float64(time.Second) / fps)
}
