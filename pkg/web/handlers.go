package web

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-objectcam/pkg/camera"
	"github.com/teslashibe/go-objectcam/pkg/hub"
	"github.com/teslashibe/go-objectcam/pkg/objectcam"
)

// startTimeout bounds how long a start request waits for the first frame.
const startTimeout = 15 * time.Second

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Status())
}

func (s *Server) handlePredictions(c *fiber.Ctx) error {
	preds := s.ctrl.Predictions()
	if preds == nil {
		return c.JSON([]struct{}{})
	}
	return c.JSON(preds)
}

func (s *Server) handleStartWebcam(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), startTimeout)
	defer cancel()

	if err := s.ctrl.StartWebcam(ctx); err != nil {
		return c.Status(startErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.ctrl.Status())
}

func (s *Server) handleStopWebcam(c *fiber.Ctx) error {
	s.ctrl.StopWebcam()
	return c.JSON(s.ctrl.Status())
}

func startErrorStatus(err error) int {
	switch {
	case errors.Is(err, camera.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, camera.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, camera.ErrNotReadable):
		return fiber.StatusConflict
	case errors.Is(err, objectcam.ErrClosed):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleGetCameraConfig(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Camera().GetConstraintsJSON())
}

// handleSetCameraConfig applies a partial update. Changes take effect on
// the next start.
func (s *Server) handleSetCameraConfig(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	mgr := s.ctrl.Camera()
	if err := mgr.UpdateConstraints(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"constraints":     mgr.GetConstraintsJSON(),
		"restart_pending": s.ctrl.IsWebcamStarted(),
	})
}

func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"names":   camera.PresetNames(),
		"presets": camera.Presets(),
	})
}

// handleStatusWS sends the current status, then every change.
func (s *Server) handleStatusWS(conn *websocket.Conn) {
	var initial []hub.Message
	if data, err := json.Marshal(s.ctrl.Status()); err == nil {
		initial = append(initial, hub.NewJSONMessage(data))
	}
	hub.NewClient(s.statusHub, conn, initial...).Run()
}

func (s *Server) handleCameraWS(conn *websocket.Conn) {
	hub.NewClient(s.cameraHub, conn).Run()
}
