package attention

import (
	"fmt"
	"math"
	"time"
)

// Signals are the per-frame geometric measurements produced upstream.
type Signals struct {
	EAR   float64 `json:"ear"`
	Gaze  float64 `json:"gaze"`
	Roll  float64 `json:"roll"`  // degrees
	Pitch float64 `json:"pitch"` // degrees
	Yaw   float64 `json:"yaw"`   // degrees

	Time       time.Time `json:"time"`
	FrameIndex int       `json:"frame_index"`
}

// check reports the first non-finite field.
func (s Signals) check() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"ear", s.EAR},
		{"gaze", s.Gaze},
		{"roll", s.Roll},
		{"pitch", s.Pitch},
		{"yaw", s.Yaw},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s=%v", ErrBadSignal, f.name, f.v)
		}
	}
	return nil
}

// InputKind tags what an upstream extractor saw in a frame.
type InputKind int

const (
	// KindDetected means a face was found and Signals are valid.
	KindDetected InputKind = iota
	// KindNoFace means the frame held no face.
	KindNoFace
	// KindFailed means extraction failed; Err says why.
	KindFailed
)

func (k InputKind) String() string {
	switch k {
	case KindDetected:
		return "detected"
	case KindNoFace:
		return "no_face"
	case KindFailed:
		return "failed"
	default:
		return fmt.Sprintf("InputKind(%d)", int(k))
	}
}

// Input is one frame's worth of upstream output.
type Input struct {
	Kind    InputKind
	Signals Signals
	Err     error
}

// Detected wraps valid signals.
func Detected(s Signals) Input {
	return Input{Kind: KindDetected, Signals: s}
}

// NoFace is the input for a frame without a detected face.
func NoFace() Input {
	return Input{Kind: KindNoFace}
}

// Failed is the input for a frame whose extraction failed.
func Failed(err error) Input {
	return Input{Kind: KindFailed, Err: err}
}
