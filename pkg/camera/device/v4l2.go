package device

import (
	"strings"
	"sync"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
	"github.com/teslashibe/go-driverwatch/internal/log"
	"github.com/teslashibe/go-driverwatch/pkg/camera"
)

// maxTimeouts bounds consecutive frame-wait timeouts before the device is
// considered gone.
const maxTimeouts = 10

// V4L2 streams MJPEG straight from a video4linux node. Frames are returned
// as the camera encoded them.
type V4L2 struct {
	path    string
	timeout uint32

	mu     sync.Mutex
	cam    *webcam.Webcam
	closed bool
}

// OpenV4L2 opens cfg.DevicePath, selects MJPEG at the configured size and
// starts streaming.
func OpenV4L2(cfg camera.Config) (*V4L2, error) {
	cam, err := webcam.Open(cfg.DevicePath)
	if err != nil {
		return nil, camera.NewDeviceError(cfg.DevicePath, err, "can not open device")
	}

	format, ok := findMJPEG(cam.GetSupportedFormats())
	if !ok {
		cam.Close()
		return nil, camera.NewDeviceError(cfg.DevicePath, nil, "device does not offer MJPEG")
	}

	_, w, h, err := cam.SetImageFormat(format, uint32(cfg.Width), uint32(cfg.Height))
	if err != nil {
		cam.Close()
		return nil, camera.NewDeviceError(cfg.DevicePath, err, "can not set image format")
	}
	log.Debug("v4l2 format set", "device", cfg.DevicePath, "width", w, "height", h)

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, camera.NewDeviceError(cfg.DevicePath, err, "can not start streaming")
	}

	timeout := uint32(cfg.FrameTimeout)
	if timeout == 0 {
		timeout = 1
	}
	return &V4L2{path: cfg.DevicePath, timeout: timeout, cam: cam}, nil
}

func findMJPEG(formats map[webcam.PixelFormat]string) (webcam.PixelFormat, bool) {
	for f, name := range formats {
		upper := strings.ToUpper(name)
		if strings.Contains(upper, "MJPEG") || strings.Contains(upper, "MOTION-JPEG") {
			return f, true
		}
	}
	return 0, false
}

// CaptureJPEG waits for the next frame. Timeouts are retried a few times.
func (v *V4L2) CaptureJPEG() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, camera.ErrClosed
	}

	for attempt := 0; attempt < maxTimeouts; attempt++ {
		err := v.cam.WaitForFrame(v.timeout)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			log.Debug("v4l2 frame timeout", "device", v.path, "attempt", attempt+1)
			continue
		default:
			return nil, camera.NewDeviceError(v.path, err, "frame wait failed")
		}

		frame, err := v.cam.ReadFrame()
		if err != nil {
			return nil, camera.NewDeviceError(v.path, err, "read frame failed")
		}
		if len(frame) == 0 {
			continue
		}

		// ReadFrame returns the mmap buffer, which the driver reuses.
		out := make([]byte, len(frame))
		copy(out, frame)
		return out, nil
	}

	return nil, camera.NewDeviceError(v.path, errors.Errorf("%d consecutive timeouts", maxTimeouts), "no frames")
}

// Close stops streaming and closes the device.
func (v *V4L2) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true
	v.cam.StopStreaming()
	return v.cam.Close()
}
