// objectcam captures webcam video, runs YOLOv8 object detection on every
// frame and serves the annotated stream on a web dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-objectcam/internal/log"
	"github.com/teslashibe/go-objectcam/pkg/app"
	"github.com/teslashibe/go-objectcam/pkg/camera"
)

func main() {
	cfg := parseFlags()
	log.Init(cfg.LogLevel)

	if err := run(cfg); err != nil {
		log.Error("objectcam failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer a.Shutdown()

	return a.Run(ctx)
}

// parseFlags parses command line flags on top of the environment.
func parseFlags() app.Config {
	cfg := app.DefaultConfig()
	cfg.LoadEnvConfig()

	port := flag.String("port", cfg.Port, "Dashboard HTTP port (OBJECTCAM_PORT)")
	device := flag.String("device", cfg.Device, "Camera index or device path (CAMERA_DEVICE)")
	facing := flag.String("facing", string(cfg.Facing), "Which way the camera faces: user, environment")
	preset := flag.String("preset", cfg.Preset, "Capture preset: default, qvga, vga, 720p, 1080p, user")
	model := flag.String("model", cfg.ModelPath, "Path to the YOLOv8 ONNX model (MODEL_PATH)")
	modelURL := flag.String("model-url", cfg.ModelURL, "Download URL used when the model file is missing (MODEL_URL)")
	backend := flag.String("backend", cfg.Backend, "Preferred DNN backend: cuda, opencl, cpu (DNN_BACKEND)")
	fps := flag.Int("fps", cfg.FPS, "Detection loop frame rate")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error (LOG_LEVEL)")
	autostart := flag.Bool("autostart", false, "Start the webcam immediately")
	flag.Parse()

	cfg.Port, cfg.Device, cfg.Preset = *port, *device, *preset
	cfg.Facing = camera.FacingMode(*facing)
	cfg.ModelPath, cfg.ModelURL, cfg.Backend = *model, *modelURL, *backend
	cfg.FPS, cfg.LogLevel, cfg.AutoStart = *fps, *logLevel, *autostart
	return cfg
}
