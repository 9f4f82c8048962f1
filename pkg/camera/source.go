package camera

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrClosed is returned by sources and taps after Close.
	ErrClosed = errors.New("camera: closed")

	// ErrNoDevice is returned by Probe when no index opens.
	ErrNoDevice = errors.New("camera: no capture device found")
)

// Source captures JPEG frames from a camera.
type Source interface {
	CaptureJPEG() ([]byte, error)
	Close() error
}

// Grabber yields one frame on demand. Scanners use it so they can read
// either straight from a device or from a Tee tap.
type Grabber interface {
	Grab(ctx context.Context) ([]byte, error)
}

// DeviceError marks a failure of the capture device itself. Loops that see
// one stop, since retrying a gone camera never recovers.
type DeviceError struct {
	Device string
	err    error
}

// NewDeviceError wraps err with msg and tags it with the device name.
func NewDeviceError(device string, err error, msg string) error {
	if err == nil {
		err = errors.New(msg)
	} else {
		err = errors.Wrap(err, msg)
	}
	return &DeviceError{Device: device, err: err}
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera %s: %v", e.Device, e.err)
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (e *DeviceError) Unwrap() error { return e.err }

// Cause supports errors.Cause from github.com/pkg/errors.
func (e *DeviceError) Cause() error { return errors.Cause(e.err) }

// IsDeviceError reports whether err came from a failed or closed camera.
func IsDeviceError(err error) bool {
	if err == nil {
		return false
	}
	var de *DeviceError
	return errors.As(err, &de) || errors.Is(err, ErrClosed)
}

type direct struct {
	src Source
}

// Direct adapts a Source to a Grabber that captures on every call.
func Direct(src Source) Grabber {
	return direct{src: src}
}

func (d direct) Grab(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.src.CaptureJPEG()
}
