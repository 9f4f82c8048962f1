// Package overlay draws the driver state onto frames with OpenCV.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/teslashibe/go-driverwatch/pkg/attention"
	"github.com/teslashibe/go-driverwatch/pkg/monitor"
	"gocv.io/x/gocv"
)

var (
	red    = color.RGBA{R: 255, A: 255}
	orange = color.RGBA{R: 255, G: 165, A: 255}
	green  = color.RGBA{G: 255, A: 255}
	white  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gray   = color.RGBA{R: 180, G: 180, B: 180, A: 255}
)

// TextAnnotator writes the state description and the enabled diagnostics
// as text.
type TextAnnotator struct {
	Quality int // JPEG quality for the re-encoded frame

	mu sync.Mutex
}

// NewTextAnnotator returns an annotator encoding at quality.
func NewTextAnnotator(quality int) *TextAnnotator {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &TextAnnotator{Quality: quality}
}

// StateColor picks the text colour for a state.
func StateColor(s attention.State) color.RGBA {
	switch s {
	case attention.StateAsleep:
		return red
	case attention.StateDistracted:
		return orange
	case attention.StateProper:
		return green
	default:
		return white
	}
}

// Lines returns the text rows drawn for o, top to bottom.
func Lines(o monitor.Overlay) []string {
	var lines []string
	r := o.Result
	d := o.Display

	if d.ShowDriver && o.Driver != "" {
		lines = append(lines, "DRIVER: "+o.Driver)
	}
	if d.ShowFPS {
		lines = append(lines, fmt.Sprintf("FPS: %d", int(r.FPS+0.5)))
	}
	if d.ShowProcTime {
		lines = append(lines, fmt.Sprintf("PROC. TIME FRAME: %.3f", o.ProcTime.Seconds()))
	}
	if r.State == attention.StateNoFace {
		return lines
	}
	if d.ShowAxis {
		lines = append(lines,
			fmt.Sprintf("roll: %.1f", r.Signals.Roll),
			fmt.Sprintf("pitch: %.1f", r.Signals.Pitch),
			fmt.Sprintf("yaw: %.1f", r.Signals.Yaw))
	}
	if d.ShowScores {
		lines = append(lines,
			fmt.Sprintf("EAR: %.3f", r.Signals.EAR),
			fmt.Sprintf("Gaze Score: %.3f", r.Signals.Gaze),
			fmt.Sprintf("Eyes closed: %.1fs", r.Scores.EyesClosed.Seconds()))
	}
	return lines
}

// Annotate decodes frame, draws o and re-encodes it.
func (a *TextAnnotator) Annotate(frame []byte, o monitor.Overlay) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	img, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	y := 40
	for _, line := range Lines(o) {
		gocv.PutText(&img, line, image.Pt(10, y), gocv.FontHersheyPlain, 2, gray, 1)
		y += 30
	}

	if o.Result.Description != "" {
		gocv.PutText(&img, o.Result.Description, image.Pt(10, img.Rows()-20),
			gocv.FontHersheyPlain, 2, StateColor(o.Result.State), 2)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, a.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	src := buf.GetBytes()
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

var _ monitor.Annotator = (*TextAnnotator)(nil)
