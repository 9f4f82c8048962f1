// Package monitor runs the per-frame attention pipeline: capture, landmark
// extraction, scoring and annotation. Frames and state changes are published
// to any number of subscribers.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-driverwatch/internal/log"
	"github.com/teslashibe/go-driverwatch/pkg/attention"
	"github.com/teslashibe/go-driverwatch/pkg/camera"
	"github.com/teslashibe/go-driverwatch/pkg/debug"
)

// ErrStreamEnded is returned by Next once the camera has failed or kept
// failing to capture. The stream cannot be restarted.
var ErrStreamEnded = errors.New("monitor: stream ended")

// Capture retry policy for non-device errors.
const (
	MaxCaptureFailures = 50                    // Consecutive failures before the stream ends
	CaptureRetryDelay  = 20 * time.Millisecond // Pause after each failure
)

// Extractor produces scorer input for one JPEG frame.
type Extractor interface {
	Extract(ctx context.Context, frame []byte) attention.Input
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, frame []byte) attention.Input

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, frame []byte) attention.Input {
	return f(ctx, frame)
}

// Frame is one classified, annotated frame.
type Frame struct {
	Index      int              `json:"index"`
	JPEG       []byte           `json:"-"`
	Result     attention.Result `json:"result"`
	ProcTime   time.Duration    `json:"proc_time"`
	CapturedAt time.Time        `json:"captured_at"`
}

// Stream pulls frames on demand.
type Stream struct {
	source    camera.Source
	extractor Extractor
	scorer    *attention.Scorer

	// Annotator draws overlays; nil leaves frames untouched.
	Annotator Annotator
	// Display is read on every frame.
	Display *Settings
	// Driver, if set, supplies the name drawn on frames.
	Driver func() string

	rate       *attention.FrameRate
	index      int
	ended      error
	now        func() time.Time
	retryDelay time.Duration
}

// NewStream builds a stream. Timing starts at the first call to Next.
func NewStream(source camera.Source, extractor Extractor, scorer *attention.Scorer) *Stream {
	return &Stream{
		source:     source,
		extractor:  extractor,
		scorer:     scorer,
		Display:    NewSettings(DefaultDisplay()),
		now:        time.Now,
		retryDelay: CaptureRetryDelay,
	}
}

// Next returns the next classified frame.
//
// Frames whose classification fails are logged and skipped. A camera error,
// or MaxCaptureFailures transient capture failures in a row, ends the
// stream: that call and every later one return ErrStreamEnded.
func (s *Stream) Next(ctx context.Context) (Frame, error) {
	if s.ended != nil {
		return Frame{}, s.ended
	}
	if s.rate == nil {
		s.rate = attention.NewFrameRate(s.now())
	}

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}

		start := s.now()
		jpeg, err := s.source.CaptureJPEG()
		if err != nil {
			if camera.IsDeviceError(err) {
				s.ended = fmt.Errorf("%w: %w", ErrStreamEnded, err)
				return Frame{}, s.ended
			}
			failures++
			if failures >= MaxCaptureFailures {
				s.ended = fmt.Errorf("%w: %d capture failures in a row: %w", ErrStreamEnded, failures, err)
				return Frame{}, s.ended
			}
			log.Warn("frame capture failed", "error", err, "failures", failures)
			if err := s.sleep(ctx); err != nil {
				return Frame{}, err
			}
			continue
		}
		failures = 0

		in := s.extractor.Extract(ctx, jpeg)
		now := s.now()
		// The rate counts frames finished before this one, so the first
		// frame always gets the fallback rate.
		fps, dt := s.rate.Tick(s.index, now)
		s.index++
		if in.Kind == attention.KindDetected {
			in.Signals.Time = now
			in.Signals.FrameIndex = s.index
		}

		result, err := s.scorer.Evaluate(in, dt)
		if err != nil {
			if ctx.Err() != nil {
				return Frame{}, ctx.Err()
			}
			log.Warn("frame not classified", "frame", s.index, "error", err)
			continue
		}
		result.FPS = fps

		procTime := s.now().Sub(start)
		debug.Log("frame %d: %s fps=%.1f proc=%v\n", s.index, result.State, fps, procTime)

		out := jpeg
		if s.Annotator != nil {
			overlay := Overlay{Result: result, Display: s.Display.Get(), ProcTime: procTime}
			if s.Driver != nil {
				overlay.Driver = s.Driver()
			}
			if annotated, err := s.Annotator.Annotate(jpeg, overlay); err != nil {
				log.Warn("annotate frame failed", "error", err)
			} else {
				out = annotated
			}
		}

		return Frame{
			Index:      s.index,
			JPEG:       out,
			Result:     result,
			ProcTime:   procTime,
			CapturedAt: start,
		}, nil
	}
}

func (s *Stream) sleep(ctx context.Context) error {
	if s.retryDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.retryDelay):
		return nil
	}
}
