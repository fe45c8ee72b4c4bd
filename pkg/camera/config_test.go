package camera

import "testing"

func TestDefaultConstraints(t *testing.T) {
	c := DefaultConstraints()

	if c.FacingMode != FacingEnvironment {
		t.Errorf("Expected FacingMode=environment, got %q", c.FacingMode)
	}
	if c.Width != 640 || c.Height != 480 {
		t.Errorf("Expected 640x480, got %dx%d", c.Width, c.Height)
	}
	if c.Audio {
		t.Error("Default constraints must not request audio")
	}
	if errs := c.Validate(); len(errs) > 0 {
		t.Errorf("Default constraints should be valid, got %v", errs)
	}
}

func TestConstraints_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Constraints)
		wantErr bool
	}{
		{"default", func(c *Constraints) {}, false},
		{"empty facing mode", func(c *Constraints) { c.FacingMode = "" }, false},
		{"width too small", func(c *Constraints) { c.Width = 100 }, true},
		{"height too large", func(c *Constraints) { c.Height = 5000 }, true},
		{"negative frame rate", func(c *Constraints) { c.FrameRate = -1 }, true},
		{"unknown facing", func(c *Constraints) { c.FacingMode = "left" }, true},
		{"audio", func(c *Constraints) { c.Audio = true }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConstraints()
			tc.mutate(&c)
			errs := c.Validate()
			if tc.wantErr && len(errs) == 0 {
				t.Error("Expected validation errors, got none")
			}
			if !tc.wantErr && len(errs) > 0 {
				t.Errorf("Expected no validation errors, got %v", errs)
			}
		})
	}
}

func TestPresets_AllValid(t *testing.T) {
	for _, name := range PresetNames() {
		p := GetPreset(name)
		if p == nil {
			t.Errorf("Preset %q listed but not found", name)
			continue
		}
		if errs := p.Validate(); len(errs) > 0 {
			t.Errorf("Preset %q invalid: %v", name, errs)
		}
	}

	if GetPreset("8k") != nil {
		t.Error("Unknown preset should return nil")
	}
}
