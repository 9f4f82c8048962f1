package device

import (
	"testing"

	"github.com/blackjack/webcam"
	"github.com/teslashibe/go-driverwatch/pkg/camera"
)

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := camera.DefaultConfig()
	cfg.Width = 0
	if _, err := Open(cfg); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestOpenV4L2_MissingDevice(t *testing.T) {
	cfg := camera.DefaultConfig()
	cfg.Backend = "v4l2"
	cfg.DevicePath = "/dev/does-not-exist"

	_, err := Open(cfg)
	if err == nil {
		t.Fatal("Expected error for missing device")
	}
	if !camera.IsDeviceError(err) {
		t.Errorf("Expected device error, got %v", err)
	}
}

func TestFindMJPEG(t *testing.T) {
	formats := map[webcam.PixelFormat]string{
		1: "YUYV 4:2:2",
		2: "Motion-JPEG",
	}
	f, ok := findMJPEG(formats)
	if !ok || f != 2 {
		t.Errorf("findMJPEG = %v, %v; want 2, true", f, ok)
	}

	if _, ok := findMJPEG(map[webcam.PixelFormat]string{1: "YUYV 4:2:2"}); ok {
		t.Error("Expected no MJPEG format")
	}
}

func TestProbe_NoDevices(t *testing.T) {
	if _, err := Probe(0); err != camera.ErrNoDevice {
		t.Errorf("Probe(0) = %v, want ErrNoDevice", err)
	}
}
