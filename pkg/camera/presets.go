package camera

// Preset names for common capture sizes
const (
	PresetDefault = "default"
	PresetLow     = "low"
	Preset720p    = "720p"
	PresetIR      = "ir"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLow:     LowConfig(),
		Preset720p:    HD720Config(),
		PresetIR:      InfraredConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLow,
		Preset720p,
		PresetIR,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// LowConfig returns 320x240 for slow machines.
// Faces stay above the enrollment size only when the driver sits close.
func LowConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.Framerate = 15
	return cfg
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// InfraredConfig reads an IR camera over V4L2, common in cabins at night.
func InfraredConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = "v4l2"
	cfg.DevicePath = "/dev/video2"
	cfg.Width = 340
	cfg.Height = 340
	cfg.Mirror = false
	return cfg
}
