// Package camera provides frame sources for the driver camera and a tee that
// lets several consumers share one device.
package camera

// Config holds the capture settings for one camera.
type Config struct {
	// Backend selects the capture implementation.
	// Values: "opencv" (default), "v4l2"
	Backend string `json:"backend"`

	// Device is the OpenCV capture index (--camera).
	Device int `json:"device"`

	// DevicePath is the V4L2 node, used by the v4l2 backend.
	DevicePath string `json:"device_path"`

	// === Resolution ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Requested FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100

	// Mirror flips frames horizontally so the driver sees themselves as in
	// a mirror. Ignored by the v4l2 backend, which passes MJPEG through.
	Mirror bool `json:"mirror"`

	// FrameTimeout is the V4L2 wait per frame in seconds.
	FrameTimeout int `json:"frame_timeout"`
}

// Capture limits accepted by Validate.
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns a 640x480 mirrored webcam on index 0.
func DefaultConfig() Config {
	return Config{
		Backend:      "opencv",
		Device:       0,
		DevicePath:   "/dev/video0",
		Width:        640,
		Height:       480,
		Framerate:    30,
		Quality:      80,
		Mirror:       true,
		FrameTimeout: 1,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	validBackends := map[string]bool{"": true, "opencv": true, "v4l2": true}
	if !validBackends[c.Backend] {
		errors = append(errors, "backend must be opencv or v4l2")
	}
	if c.Device < 0 {
		errors = append(errors, "device must be a non-negative index")
	}
	if c.Backend == "v4l2" && c.DevicePath == "" {
		errors = append(errors, "device_path is required for the v4l2 backend")
	}

	// Resolution
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.FrameTimeout < 0 {
		errors = append(errors, "frame_timeout must not be negative")
	}

	return errors
}
