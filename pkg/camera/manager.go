package camera

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the constraints used for the next capture session.
// Changes never affect a session that is already running.
type Manager struct {
	constraints Constraints
	mu          sync.RWMutex

	// Callback when constraints change
	OnChange func(c Constraints) error
}

// NewManager creates a new camera manager with default constraints.
func NewManager() *Manager {
	return &Manager{
		constraints: DefaultConstraints(),
	}
}

// GetConstraints returns the current constraints.
func (m *Manager) GetConstraints() Constraints {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.constraints
}

// SetConstraints validates and stores c.
func (m *Manager) SetConstraints(c Constraints) error {
	if errors := c.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	m.mu.Lock()
	m.constraints = c
	callback := m.OnChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(c); err != nil {
			return fmt.Errorf("failed to apply constraints: %w", err)
		}
	}

	return nil
}

// UpdateConstraints updates specific fields of the constraints.
// Accepts a map of field names to values; "preset" is applied first so
// other keys can override it.
func (m *Manager) UpdateConstraints(params map[string]interface{}) error {
	c := m.GetConstraints()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		c = *preset
	}

	for key, value := range params {
		switch key {
		case "width":
			if v, ok := toInt(value); ok {
				c.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				c.Height = v
			}
		case "frame_rate":
			if v, ok := toInt(value); ok {
				c.FrameRate = v
			}
		case "facing_mode":
			if v, ok := value.(string); ok {
				c.FacingMode = FacingMode(v)
			}
		case "audio":
			if v, ok := value.(bool); ok {
				c.Audio = v
			}
		}
	}

	return m.SetConstraints(c)
}

// GetConstraintsJSON returns the current constraints as a map for JSON serialization.
func (m *Manager) GetConstraintsJSON() map[string]interface{} {
	c := m.GetConstraints()

	data, _ := json.Marshal(c)
	var result map[string]interface{}
	json.Unmarshal(data, &result)

	return result
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
