package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetQVGA    = "qvga"
	PresetVGA     = "vga"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	PresetUser    = "user"
)

// Presets returns all available preset constraints.
func Presets() map[string]Constraints {
	return map[string]Constraints{
		PresetDefault: DefaultConstraints(),
		PresetQVGA:    QVGAConstraints(),
		PresetVGA:     DefaultConstraints(),
		Preset720p:    HD720Constraints(),
		Preset1080p:   HD1080Constraints(),
		PresetUser:    UserFacingConstraints(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetQVGA,
		PresetVGA,
		Preset720p,
		Preset1080p,
		PresetUser,
	}
}

// GetPreset returns preset constraints by name, or nil if not found.
func GetPreset(name string) *Constraints {
	if c, ok := Presets()[name]; ok {
		return &c
	}
	return nil
}

// QVGAConstraints trades resolution for inference speed on slow machines.
func QVGAConstraints() Constraints {
	c := DefaultConstraints()
	c.Width = 320
	c.Height = 240
	return c
}

// HD720Constraints returns 720p HD constraints.
func HD720Constraints() Constraints {
	c := DefaultConstraints()
	c.Width = 1280
	c.Height = 720
	return c
}

// HD1080Constraints returns 1080p Full HD constraints.
// Higher CPU usage; the detector downsamples to its input size anyway.
func HD1080Constraints() Constraints {
	c := DefaultConstraints()
	c.Width = 1920
	c.Height = 1080
	return c
}

// UserFacingConstraints prefers the front camera, e.g. a laptop webcam.
func UserFacingConstraints() Constraints {
	c := DefaultConstraints()
	c.FacingMode = FacingUser
	return c
}
