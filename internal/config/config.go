// Package config loads driverwatch settings from the environment and the
// command line.
//
// Precedence is flag > environment > .env file > built-in default. The .env
// file in the working directory is optional.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/teslashibe/go-driverwatch/pkg/attention"
	"github.com/teslashibe/go-driverwatch/pkg/camera"
	"github.com/teslashibe/go-driverwatch/pkg/detection"
	"github.com/teslashibe/go-driverwatch/pkg/landmarks"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DRIVERWATCH_"

// Config holds every setting of the driverwatch command.
type Config struct {
	// Camera
	Camera       int
	CameraPreset string
	CameraPath   string
	Backend      string

	// Display
	ShowFPS       bool
	ShowProcTime  bool
	ShowAxis      bool
	Verbose       bool
	DebugTracking bool

	// Attention thresholds (seconds for the time limits)
	EARThresh      float64
	EARTimeThresh  float64
	GazeThresh     float64
	GazeTimeThresh float64
	PitchThresh    float64
	YawThresh      float64
	RollThresh     float64
	PoseTimeThresh float64

	// Identity
	IdentityThresh   float64
	Gallery          string
	IdentityInterval time.Duration

	// Services
	Port      string
	StaticDir string
	Landmarks string

	// Face detector
	Detector string
	Cascade  string
	YuNet    string

	LogLevel string
}

// Load reads .env (if present) and returns the configuration built from the
// environment.
func Load() Config {
	_ = godotenv.Load()

	t := attention.DefaultThresholds()
	cam := camera.DefaultConfig()
	det := detection.DefaultConfig()

	return Config{
		Camera:       getEnvInt("CAMERA", cam.Device),
		CameraPreset: getEnv("CAMERA_PRESET", "default"),
		CameraPath:   getEnv("CAMERA_PATH", ""),
		Backend:      getEnv("CAMERA_BACKEND", ""),

		ShowFPS:       getEnvBool("SHOW_FPS", false),
		ShowProcTime:  getEnvBool("SHOW_PROC_TIME", false),
		ShowAxis:      getEnvBool("SHOW_AXIS", false),
		Verbose:       getEnvBool("VERBOSE", false),
		DebugTracking: getEnvBool("DEBUG_TRACKING", false),

		EARThresh:      getEnvFloat("EAR_THRESH", t.EAR),
		EARTimeThresh:  getEnvFloat("EAR_TIME_THRESH", t.EARTime.Seconds()),
		GazeThresh:     getEnvFloat("GAZE_THRESH", t.Gaze),
		GazeTimeThresh: getEnvFloat("GAZE_TIME_THRESH", t.GazeTime.Seconds()),
		PitchThresh:    getEnvFloat("PITCH_THRESH", t.Pitch),
		YawThresh:      getEnvFloat("YAW_THRESH", t.Yaw),
		RollThresh:     getEnvFloat("ROLL_THRESH", t.Roll),
		PoseTimeThresh: getEnvFloat("POSE_TIME_THRESH", t.PoseTime.Seconds()),

		IdentityThresh:   getEnvFloat("IDENTITY_THRESH", t.IdentityDistance),
		Gallery:          getEnv("GALLERY", "data/gallery.json"),
		IdentityInterval: getEnvDuration("IDENTITY_INTERVAL", 0),

		Port:      getEnv("PORT", "5000"),
		StaticDir: getEnv("STATIC_DIR", "./web"),
		Landmarks: getEnv("LANDMARKS_URL", landmarks.DefaultConfig().URL),

		Detector: getEnv("DETECTOR", det.Backend),
		Cascade:  getEnv("CASCADE", det.CascadePath),
		YuNet:    getEnv("YUNET", det.ModelPath),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// RegisterFlags binds every setting to fs using the current values as
// defaults. Threshold flags keep their snake_case names.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Camera, "camera", c.Camera, "Camera index")
	fs.StringVar(&c.CameraPreset, "camera-preset", c.CameraPreset, "Camera preset: default, low, 720p, ir")
	fs.StringVar(&c.CameraPath, "camera-path", c.CameraPath, "V4L2 device path (overrides the preset)")
	fs.StringVar(&c.Backend, "camera-backend", c.Backend, "Camera backend: opencv or v4l2 (overrides the preset)")

	fs.BoolVar(&c.ShowFPS, "show_fps", c.ShowFPS, "Show the frame rate on the video feed")
	fs.BoolVar(&c.ShowProcTime, "show_proc_time", c.ShowProcTime, "Show the per-frame processing time")
	fs.BoolVar(&c.ShowAxis, "show_axis", c.ShowAxis, "Show the head pose angles")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose, "Print per-frame diagnostics")
	fs.BoolVar(&c.DebugTracking, "debug-tracking", c.DebugTracking, "Print every face detection (very noisy)")

	fs.Float64Var(&c.EARThresh, "ear_thresh", c.EARThresh, "Eye aspect ratio at or below which the eyes are closed")
	fs.Float64Var(&c.EARTimeThresh, "ear_time_thresh", c.EARTimeThresh, "Seconds of closed eyes before the driver is asleep")
	fs.Float64Var(&c.GazeThresh, "gaze_thresh", c.GazeThresh, "Gaze score above which the driver looks away")
	fs.Float64Var(&c.GazeTimeThresh, "gaze_time_thresh", c.GazeTimeThresh, "Seconds of looking away before the driver is distracted")
	fs.Float64Var(&c.PitchThresh, "pitch_thresh", c.PitchThresh, "Head pitch limit in degrees")
	fs.Float64Var(&c.YawThresh, "yaw_thresh", c.YawThresh, "Head yaw limit in degrees")
	fs.Float64Var(&c.RollThresh, "roll_thresh", c.RollThresh, "Head roll limit in degrees")
	fs.Float64Var(&c.PoseTimeThresh, "pose_time_thresh", c.PoseTimeThresh, "Seconds outside the pose limits before the driver is distracted")

	fs.Float64Var(&c.IdentityThresh, "identity_thresh", c.IdentityThresh, "Nearest-neighbour distance above which the driver is unknown")
	fs.StringVar(&c.Gallery, "gallery", c.Gallery, "Gallery file (.json or .msgpack)")
	fs.DurationVar(&c.IdentityInterval, "identity-interval", c.IdentityInterval, "Pause between identification cycles")

	fs.StringVar(&c.Port, "port", c.Port, "HTTP port")
	fs.StringVar(&c.StaticDir, "static", c.StaticDir, "Dashboard directory")
	fs.StringVar(&c.Landmarks, "landmarks", c.Landmarks, "Landmark sidecar websocket URL")

	fs.StringVar(&c.Detector, "detector", c.Detector, "Face detector: haar or yunet")
	fs.StringVar(&c.Cascade, "cascade", c.Cascade, "Haar cascade XML")
	fs.StringVar(&c.YuNet, "yunet", c.YuNet, "YuNet ONNX model")

	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
}

// Thresholds converts the command-line values to scorer thresholds and
// validates them.
func (c Config) Thresholds() (attention.Thresholds, error) {
	t := attention.Thresholds{
		EAR:              c.EARThresh,
		Gaze:             c.GazeThresh,
		Pitch:            c.PitchThresh,
		Yaw:              c.YawThresh,
		Roll:             c.RollThresh,
		IdentityDistance: c.IdentityThresh,
	}

	durations := []struct {
		flag    string
		seconds float64
		dst     *time.Duration
	}{
		{"ear_time_thresh", c.EARTimeThresh, &t.EARTime},
		{"gaze_time_thresh", c.GazeTimeThresh, &t.GazeTime},
		{"pose_time_thresh", c.PoseTimeThresh, &t.PoseTime},
	}
	for _, d := range durations {
		v, err := attention.ParseSeconds(d.seconds)
		if err != nil {
			return attention.Thresholds{}, fmt.Errorf("--%s: %w", d.flag, err)
		}
		*d.dst = v
	}

	if err := t.Validate(); err != nil {
		return attention.Thresholds{}, err
	}
	return t, nil
}

// CameraConfig resolves the preset and applies the per-setting overrides.
func (c Config) CameraConfig() camera.Config {
	cam := camera.DefaultConfig()
	if p := camera.GetPreset(c.CameraPreset); p != nil {
		cam = *p
	}
	cam.Device = c.Camera
	if c.CameraPath != "" {
		cam.DevicePath = c.CameraPath
	}
	if c.Backend != "" {
		cam.Backend = c.Backend
	}
	return cam
}

// DetectorConfig returns the face detector settings.
func (c Config) DetectorConfig() detection.Config {
	det := detection.DefaultConfig()
	det.Backend = c.Detector
	det.CascadePath = c.Cascade
	det.ModelPath = c.YuNet
	return det
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(EnvPrefix + key)); err == nil {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(EnvPrefix+key), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(EnvPrefix + key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(EnvPrefix + key)); err == nil {
		return v
	}
	return fallback
}
