package monitor

import (
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-driverwatch/pkg/attention"
)

// Display holds the overlay toggles. They change what is drawn, never how a
// frame is classified.
type Display struct {
	ShowFPS      bool `json:"show_fps"`
	ShowProcTime bool `json:"show_proc_time"`
	ShowAxis     bool `json:"show_axis"`
	ShowScores   bool `json:"show_scores"`
	ShowDriver   bool `json:"show_driver"`
}

// DefaultDisplay draws the driver name only.
func DefaultDisplay() Display {
	return Display{ShowDriver: true}
}

// Settings is a Display that can be swapped while the stream runs.
type Settings struct {
	v atomic.Pointer[Display]
}

// NewSettings returns settings starting at d.
func NewSettings(d Display) *Settings {
	s := &Settings{}
	s.v.Store(&d)
	return s
}

// Get returns the current display options.
func (s *Settings) Get() Display {
	if p := s.v.Load(); p != nil {
		return *p
	}
	return DefaultDisplay()
}

// Set replaces the display options.
func (s *Settings) Set(d Display) {
	s.v.Store(&d)
}

// Overlay is everything an Annotator may draw on a frame.
type Overlay struct {
	Result   attention.Result
	Display  Display
	ProcTime time.Duration
	Driver   string
}

// Annotator draws an Overlay onto a JPEG frame and returns the new JPEG.
type Annotator interface {
	Annotate(frame []byte, o Overlay) ([]byte, error)
}
