package attention

import (
	"fmt"
	"math"
	"time"
)

// Scorer classifies each frame into a driver state. It owns its
// accumulators and must only be driven from one goroutine.
type Scorer struct {
	thresholds Thresholds
	acc        Accumulators
}

// NewScorer validates t and returns a scorer with cleared accumulators.
func NewScorer(t Thresholds) (*Scorer, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{thresholds: t}, nil
}

// Thresholds returns the scorer's configuration.
func (s *Scorer) Thresholds() Thresholds {
	return s.thresholds
}

// Scores returns a snapshot of the accumulators.
func (s *Scorer) Scores() Scores {
	return s.acc.Snapshot()
}

// Reset clears every accumulator.
func (s *Scorer) Reset() {
	s.acc.Reset()
}

// Evaluate advances the accumulators by dt and classifies the frame.
//
// A frame without a face reports StateNoFace and leaves every accumulator
// untouched. A failed or malformed frame returns an error and also leaves
// the accumulators untouched; callers are expected to log it and move on.
//
// Priority is fixed: ASLEEP, then DISTRACTED, then PROPER.
func (s *Scorer) Evaluate(in Input, dt time.Duration) (Result, error) {
	switch in.Kind {
	case KindNoFace:
		return Result{
			State:       StateNoFace,
			Description: DescNoFace,
			Scores:      s.acc.Snapshot(),
		}, nil
	case KindFailed:
		err := in.Err
		if err == nil {
			err = ErrExtraction
		}
		return Result{}, fmt.Errorf("evaluate frame: %w", err)
	case KindDetected:
	default:
		return Result{}, fmt.Errorf("evaluate frame: unknown input kind %v", in.Kind)
	}

	sig := in.Signals
	if err := sig.check(); err != nil {
		return Result{}, fmt.Errorf("evaluate frame %d: %w", sig.FrameIndex, err)
	}
	if dt <= 0 {
		dt = time.Duration(float64(time.Second) / FallbackFPS)
	}

	t := s.thresholds
	s.acc.Advance(sig, t, dt)

	res := Result{
		State:   StateUndetermined,
		Scores:  s.acc.Snapshot(),
		Signals: sig,
	}

	switch {
	case s.acc.Asleep(t):
		res.State = StateAsleep
		res.Asleep = true
		res.Description = DescAsleep
	case s.acc.Distracted(t):
		res.State = StateDistracted
		res.Distracted = true
		res.Description = DescDistracted
	case poseWithin(sig, t):
		res.State = StateProper
		res.Description = DescProper
	}

	return res, nil
}

// poseWithin checks the instantaneous pose, not the accumulated one.
func poseWithin(s Signals, t Thresholds) bool {
	return math.Abs(s.Pitch) <= t.Pitch &&
		math.Abs(s.Yaw) <= t.Yaw &&
		math.Abs(s.Roll) <= t.Roll
}
