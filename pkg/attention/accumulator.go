package attention

import (
	"math"
	"time"
)

// Streak is a consecutive over-threshold duration. It is not leaky: any
// compliant frame clears it completely.
type Streak struct {
	d time.Duration
}

// Update adds dt while over, and resets otherwise.
func (s *Streak) Update(over bool, dt time.Duration) time.Duration {
	if over {
		s.d += dt
	} else {
		s.d = 0
	}
	return s.d
}

// Duration returns the current streak length.
func (s *Streak) Duration() time.Duration {
	return s.d
}

// Reached reports whether the streak has lasted at least limit.
func (s *Streak) Reached(limit time.Duration) bool {
	return s.d >= limit
}

// Reset clears the streak.
func (s *Streak) Reset() {
	s.d = 0
}

// Scores is a snapshot of every accumulator.
type Scores struct {
	EyesClosed time.Duration `json:"eyes_closed"`
	Gaze       time.Duration `json:"gaze"`
	Pitch      time.Duration `json:"pitch"`
	Yaw        time.Duration `json:"yaw"`
	Roll       time.Duration `json:"roll"`
}

// Accumulators holds one streak per channel.
type Accumulators struct {
	EyesClosed Streak // PERCLOS-style: seconds eyes continuously closed
	Gaze       Streak
	Pitch      Streak
	Yaw        Streak
	Roll       Streak
}

// Advance feeds one frame of signals into every channel.
func (a *Accumulators) Advance(s Signals, t Thresholds, dt time.Duration) {
	a.EyesClosed.Update(s.EAR <= t.EAR, dt)
	a.Gaze.Update(s.Gaze > t.Gaze, dt)
	a.Pitch.Update(math.Abs(s.Pitch) > t.Pitch, dt)
	a.Yaw.Update(math.Abs(s.Yaw) > t.Yaw, dt)
	a.Roll.Update(math.Abs(s.Roll) > t.Roll, dt)
}

// Asleep reports whether the eyes have been closed for the asleep limit.
func (a *Accumulators) Asleep(t Thresholds) bool {
	return a.EyesClosed.Reached(t.EARTime)
}

// Distracted reports whether any gaze or pose channel has reached its limit.
func (a *Accumulators) Distracted(t Thresholds) bool {
	return a.Gaze.Reached(t.GazeTime) ||
		a.Pitch.Reached(t.PoseTime) ||
		a.Yaw.Reached(t.PoseTime) ||
		a.Roll.Reached(t.PoseTime)
}

// Snapshot copies the current durations.
func (a *Accumulators) Snapshot() Scores {
	return Scores{
		EyesClosed: a.EyesClosed.Duration(),
		Gaze:       a.Gaze.Duration(),
		Pitch:      a.Pitch.Duration(),
		Yaw:        a.Yaw.Duration(),
		Roll:       a.Roll.Duration(),
	}
}

// Reset clears every channel.
func (a *Accumulators) Reset() {
	a.EyesClosed.Reset()
	a.Gaze.Reset()
	a.Pitch.Reset()
	a.Yaw.Reset()
	a.Roll.Reset()
}
