// Package camera describes capture devices, the constraints used to open them
// and the streams they produce. Constraints follow the same runtime-tunable
// pattern as the rest of the project: a plain struct with defaults, presets
// and validation, held by a Manager.
package camera

import "fmt"

// FacingMode is the preferred direction the camera faces.
type FacingMode string

const (
	FacingUser        FacingMode = "user"        // front camera
	FacingEnvironment FacingMode = "environment" // rear camera
)

// Constraints are the capture preferences passed to Device.Open.
// Width, Height and FrameRate are ideal values: the device may grant
// something else, and callers must read the negotiated values back from
// Stream.Settings.
type Constraints struct {
	FacingMode FacingMode `json:"facing_mode"`
	Width      int        `json:"width"`      // ideal frame width in pixels
	Height     int        `json:"height"`     // ideal frame height in pixels
	FrameRate  int        `json:"frame_rate"` // ideal FPS, 0 = device default
	Audio      bool       `json:"audio"`      // always false, video only
}

// Limits for accepted constraint values.
const (
	MinWidth     = 160
	MinHeight    = 120
	MaxWidth     = 4096
	MaxHeight    = 2160
	MaxFrameRate = 120
)

// DefaultConstraints returns rear-facing 640x480 video without audio.
func DefaultConstraints() Constraints {
	return Constraints{
		FacingMode: FacingEnvironment,
		Width:      640,
		Height:     480,
		FrameRate:  0,
		Audio:      false,
	}
}

// Validate checks if the constraint values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Constraints) Validate() []string {
	var errors []string

	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.FrameRate < 0 || c.FrameRate > MaxFrameRate {
		errors = append(errors, fmt.Sprintf("frame_rate must be 0 (device default) or up to %d", MaxFrameRate))
	}
	if c.FacingMode != "" && c.FacingMode != FacingUser && c.FacingMode != FacingEnvironment {
		errors = append(errors, "facing_mode must be user or environment")
	}
	if c.Audio {
		errors = append(errors, "audio capture is not supported")
	}

	return errors
}

// Capabilities returns the accepted constraint ranges.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"min_width":      MinWidth,
		"min_height":     MinHeight,
		"max_width":      MaxWidth,
		"max_height":     MaxHeight,
		"max_frame_rate": MaxFrameRate,
		"facing_modes":   []string{string(FacingUser), string(FacingEnvironment)},
		"presets":        PresetNames(),
	}
}
