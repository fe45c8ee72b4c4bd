package objectcam

import (
	"time"

	"github.com/teslashibe/go-objectcam/pkg/camera"
	"github.com/teslashibe/go-objectcam/pkg/detection"
)

// ModelState is the state of the one-time model load.
type ModelState string

const (
	ModelIdle    ModelState = "idle"
	ModelLoading ModelState = "loading"
	ModelLoaded  ModelState = "loaded"
	ModelFailed  ModelState = "failed"
)

// SessionInfo describes the active capture session.
type SessionInfo struct {
	ID        string          `json:"id"`
	StartedAt time.Time       `json:"started_at"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Settings  camera.Settings `json:"settings"`
}

// Stats counts detection loop iterations.
type Stats struct {
	Iterations    uint64        `json:"iterations"`
	Failures      uint64        `json:"failures"`
	LastInference time.Duration `json:"last_inference_ns"`
	LastError     string        `json:"last_error,omitempty"`
}

// Status is the state exposed to the dashboard.
type Status struct {
	WebcamStarted bool             `json:"webcam_started"`
	Model         ModelState       `json:"model"`
	ModelError    string           `json:"model_error,omitempty"`
	Backend       string           `json:"backend,omitempty"`
	Session       *SessionInfo     `json:"session,omitempty"`
	Predictions   detection.Result `json:"predictions"`
	Stats         Stats            `json:"stats"`
}
