// Package device opens real cameras: OpenCV capture indices and raw V4L2
// nodes.
package device

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/teslashibe/go-driverwatch/pkg/camera"
	"gocv.io/x/gocv"
)

// OpenCV captures from a gocv VideoCapture and encodes each frame as JPEG.
type OpenCV struct {
	cfg  camera.Config
	name string

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// OpenOpenCV opens capture index cfg.Device.
func OpenOpenCV(cfg camera.Config) (*OpenCV, error) {
	name := fmt.Sprintf("%d", cfg.Device)

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, camera.NewDeviceError(name, err, "open capture")
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, camera.NewDeviceError(name, nil, "capture not opened")
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	return &OpenCV{
		cfg:  cfg,
		name: name,
		vc:   vc,
		mat:  gocv.NewMat(),
	}, nil
}

// CaptureJPEG reads one frame, mirrors it if configured and encodes it.
func (c *OpenCV) CaptureJPEG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, camera.ErrClosed
	}

	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, camera.NewDeviceError(c.name, nil, "read frame failed")
	}

	if c.cfg.Mirror {
		gocv.Flip(c.mat, &c.mat, 1)
	}

	quality := c.cfg.Quality
	if quality <= 0 {
		quality = 80
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, errors.Wrap(err, "encode frame")
	}
	defer buf.Close()

	src := buf.GetBytes()
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// Close releases the capture.
func (c *OpenCV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.mat.Close()
	return c.vc.Close()
}
