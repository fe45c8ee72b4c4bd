// Package app wires the camera, detector, detection loop and dashboard into
// the objectcam service.
package app

import (
	"fmt"
	"os"
	"strconv"

	"github.com/teslashibe/go-objectcam/internal/config"
	"github.com/teslashibe/go-objectcam/pkg/camera"
	"github.com/teslashibe/go-objectcam/pkg/detection/yolo"
)

// DefaultFPS is the frame clock rate.
const DefaultFPS = 60

// Config holds all configuration for the service.
// Flag parsing is done in cmd/objectcam/main.go; this struct is data only.
type Config struct {
	// Port is the dashboard HTTP port.
	Port string

	// Device is the capture device index or path, and the way it faces.
	Device string
	Facing camera.FacingMode

	// Preset selects initial capture constraints by name.
	Preset string

	// Model location. ModelURL is used only when ModelPath is missing.
	ModelPath string
	ModelURL  string

	// Backend is the preferred DNN backend: cuda, opencl or cpu.
	Backend string

	// FPS is the detection loop's frame clock rate.
	FPS int

	LogLevel string

	// AutoStart opens the webcam as soon as the service is up.
	AutoStart bool
}

// DefaultConfig returns the defaults, without environment overrides.
func DefaultConfig() Config {
	return Config{
		Port:      config.DefaultPort,
		Device:    config.DefaultDevice,
		Facing:    camera.FacingEnvironment,
		Preset:    camera.PresetDefault,
		ModelPath: config.DefaultModelPath,
		Backend:   config.DefaultBackend,
		FPS:       DefaultFPS,
		LogLevel:  config.DefaultLogLevel,
	}
}

// LoadEnvConfig applies environment overrides. Call it before flag parsing
// so flags win over the environment.
func (c *Config) LoadEnvConfig() {
	c.Port = config.Port()
	c.Device = config.CameraDevice()
	c.ModelPath = config.ModelPath()
	c.ModelURL = config.ModelURL()
	c.Backend = config.Backend()
	c.LogLevel = config.LogLevel()
	c.FPS = config.Int("OBJECTCAM_FPS", c.FPS)
	if f := os.Getenv("CAMERA_FACING"); f != "" {
		c.Facing = camera.FacingMode(f)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 0 || port > 65535 {
		return &ConfigError{Field: "Port", Message: fmt.Sprintf("invalid port %q", c.Port)}
	}
	if c.Device == "" {
		return &ConfigError{Field: "Device", Message: "camera device is required"}
	}
	if c.Facing != camera.FacingUser && c.Facing != camera.FacingEnvironment {
		return &ConfigError{Field: "Facing", Message: "facing must be user or environment"}
	}
	if c.Preset != "" && camera.GetPreset(c.Preset) == nil {
		return &ConfigError{Field: "Preset", Message: fmt.Sprintf("unknown preset %q", c.Preset)}
	}
	if c.ModelPath == "" {
		return &ConfigError{Field: "ModelPath", Message: "model path is required (MODEL_PATH)"}
	}
	switch yolo.Backend(c.Backend) {
	case yolo.BackendCUDA, yolo.BackendOpenCL, yolo.BackendCPU:
	default:
		return &ConfigError{Field: "Backend", Message: fmt.Sprintf("unknown DNN backend %q (cuda, opencl, cpu)", c.Backend)}
	}
	if c.FPS < 1 || c.FPS > 240 {
		return &ConfigError{Field: "FPS", Message: "fps must be between 1 and 240"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// yoloConfig maps the service config onto the detector config.
func (c *Config) yoloConfig() yolo.Config {
	cfg := yolo.DefaultConfig()
	cfg.ModelPath = c.ModelPath
	cfg.ModelURL = c.ModelURL
	cfg.Backend = yolo.Backend(c.Backend)
	return cfg
}
