package camera

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeSource returns numbered one-byte frames.
type fakeSource struct {
	mu     sync.Mutex
	n      byte
	err    error
	closed bool
}

func (f *fakeSource) CaptureJPEG() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.n++
	return []byte{f.n}, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("DefaultConfig should be valid, got: %v", errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   int
	}{
		{"valid", func(c *Config) {}, 0},
		{"bad backend", func(c *Config) { c.Backend = "gstreamer" }, 1},
		{"negative device", func(c *Config) { c.Device = -1 }, 1},
		{"v4l2 without path", func(c *Config) { c.Backend = "v4l2"; c.DevicePath = "" }, 1},
		{"tiny width", func(c *Config) { c.Width = 100 }, 1},
		{"huge height", func(c *Config) { c.Height = 5000 }, 1},
		{"zero framerate", func(c *Config) { c.Framerate = 0 }, 1},
		{"quality out of range", func(c *Config) { c.Quality = 101 }, 1},
		{"several", func(c *Config) { c.Width = 0; c.Quality = 0 }, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if errs := cfg.Validate(); len(errs) != tt.want {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.want)
			}
		})
	}
}

func TestPresets_Valid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %q missing", name)
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("Expected nil for unknown preset")
	}
}

func TestIsDeviceError(t *testing.T) {
	cause := errors.New("ioctl failed")
	devErr := NewDeviceError("/dev/video0", cause, "read frame")

	if !IsDeviceError(devErr) {
		t.Error("DeviceError not recognised")
	}
	if !errors.Is(devErr, cause) {
		t.Error("DeviceError should unwrap to its cause")
	}
	if !IsDeviceError(ErrClosed) {
		t.Error("ErrClosed should count as a device error")
	}
	if IsDeviceError(errors.New("decode failed")) {
		t.Error("plain error reported as device error")
	}
	if IsDeviceError(nil) {
		t.Error("nil reported as device error")
	}

	wrapped := NewDeviceError("0", nil, "no frame")
	if wrapped.Error() != "camera 0: no frame" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}

func TestDirect_Grab(t *testing.T) {
	src := &fakeSource{}
	g := Direct(src)

	frame, err := g.Grab(context.Background())
	if err != nil {
		t.Fatalf("Grab failed: %v", err)
	}
	if frame[0] != 1 {
		t.Errorf("frame = %v, want [1]", frame)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Grab(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTee_GrabReceivesNextFrame(t *testing.T) {
	tee := NewTee(&fakeSource{})
	defer tee.Close()

	const readers = 3
	got := make(chan []byte, readers)
	var ready sync.WaitGroup
	ready.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			ready.Done()
			frame, err := tee.Grab(context.Background())
			if err != nil {
				t.Errorf("Grab failed: %v", err)
				got <- nil
				return
			}
			got <- frame
		}()
	}
	ready.Wait()

	// Keep capturing until every reader has been served; a reader that
	// registered late gets a later frame.
	deadline := time.After(2 * time.Second)
	for served := 0; served < readers; {
		if _, err := tee.CaptureJPEG(); err != nil {
			t.Fatalf("CaptureJPEG failed: %v", err)
		}
		select {
		case frame := <-got:
			if len(frame) != 1 {
				t.Errorf("unexpected frame %v", frame)
			}
			served++
		case <-deadline:
			t.Fatal("readers were not served")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestTee_CloseWakesReaders(t *testing.T) {
	src := &fakeSource{}
	tee := NewTee(src)

	errc := make(chan error, 1)
	go func() {
		_, err := tee.Grab(context.Background())
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := tee.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reader not woken by Close")
	}

	if !src.closed {
		t.Error("source not closed")
	}
	if _, err := tee.CaptureJPEG(); !errors.Is(err, ErrClosed) {
		t.Errorf("CaptureJPEG after Close: expected ErrClosed, got %v", err)
	}
	if _, err := tee.Grab(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Grab after Close: expected ErrClosed, got %v", err)
	}
	if err := tee.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestTee_DeviceErrorReachesReaders(t *testing.T) {
	src := &fakeSource{}
	tee := NewTee(src)
	defer tee.Close()

	errc := make(chan error, 1)
	go func() {
		_, err := tee.Grab(context.Background())
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)

	src.setErr(NewDeviceError("0", nil, "unplugged"))
	if _, err := tee.CaptureJPEG(); !IsDeviceError(err) {
		t.Fatalf("expected device error, got %v", err)
	}

	select {
	case err := <-errc:
		if !IsDeviceError(err) {
			t.Errorf("expected device error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reader not woken by device error")
	}

	// Sticky for later readers.
	if _, err := tee.Grab(context.Background()); !IsDeviceError(err) {
		t.Errorf("expected sticky device error, got %v", err)
	}
}

func TestTee_TransientErrorKeepsReadersWaiting(t *testing.T) {
	src := &fakeSource{}
	tee := NewTee(src)
	defer tee.Close()

	src.setErr(errors.New("corrupt frame"))
	if _, err := tee.CaptureJPEG(); err == nil {
		t.Fatal("expected error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := tee.Grab(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected reader to time out waiting, got %v", err)
	}
}
