// Package attention turns per-frame driver signals (eye aspect ratio, gaze
// score, head pose) into a debounced driver state.
//
// Every channel is a hysteresis integrator: while its signal is over
// threshold the frame duration is added to a streak, and the first compliant
// frame resets the streak to zero. A state is raised only once a streak has
// lasted for the channel's time threshold.
package attention

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Thresholds holds every tunable limit used by the scorer and the identity
// matcher. It is treated as an immutable value once a Scorer is built.
type Thresholds struct {
	// Eye closure
	EAR     float64       // Eyes are closed when EAR <= this
	EARTime time.Duration // Closed this long means asleep

	// Gaze
	Gaze     float64       // Gaze score above this is looking away
	GazeTime time.Duration // Looking away this long means distracted

	// Head pose (degrees, compared against absolute angles)
	Pitch    float64
	Yaw      float64
	Roll     float64
	PoseTime time.Duration // Any angle over its limit this long means distracted

	// Identity: nearest-neighbour distance above this is an unknown driver
	IdentityDistance float64
}

// DefaultThresholds returns the reference tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		EAR:     0.15,
		EARTime: 2 * time.Second,

		Gaze:     0.015,
		GazeTime: 2 * time.Second,

		Pitch:    20,
		Yaw:      20,
		Roll:     20,
		PoseTime: 2500 * time.Millisecond,

		IdentityDistance: 10000,
	}
}

// Validate checks that every scalar threshold is finite and non-negative and
// every duration is non-negative.
func (t Thresholds) Validate() error {
	var problems []string

	scalars := []struct {
		name string
		v    float64
	}{
		{"ear", t.EAR},
		{"gaze", t.Gaze},
		{"pitch", t.Pitch},
		{"yaw", t.Yaw},
		{"roll", t.Roll},
		{"identity_distance", t.IdentityDistance},
	}
	for _, s := range scalars {
		if math.IsNaN(s.v) || math.IsInf(s.v, 0) || s.v < 0 {
			problems = append(problems, fmt.Sprintf("%s must be a non-negative number (got %v)", s.name, s.v))
		}
	}

	durations := []struct {
		name string
		v    time.Duration
	}{
		{"ear_time", t.EARTime},
		{"gaze_time", t.GazeTime},
		{"pose_time", t.PoseTime},
	}
	for _, d := range durations {
		if d.v < 0 {
			problems = append(problems, fmt.Sprintf("%s must not be negative (got %v)", d.name, d.v))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidThresholds, strings.Join(problems, "; "))
	}
	return nil
}

// maxSeconds is the largest number of seconds a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// ParseSeconds converts a float number of seconds (as used on the command
// line) to a duration. NaN, infinities, negative values and values beyond
// the duration range are rejected before conversion.
func ParseSeconds(s float64) (time.Duration, error) {
	switch {
	case math.IsNaN(s) || math.IsInf(s, 0):
		return 0, fmt.Errorf("%w: %v seconds is not a finite number", ErrInvalidThresholds, s)
	case s < 0:
		return 0, fmt.Errorf("%w: %v seconds must not be negative", ErrInvalidThresholds, s)
	case s >= maxSeconds:
		return 0, fmt.Errorf("%w: %v seconds is out of range", ErrInvalidThresholds, s)
	}
	return time.Duration(s * float64(time.Second)), nil
}
