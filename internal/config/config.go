// Package config provides configuration helpers for go-objectcam commands.
package config

import (
	"os"
	"strconv"
)

// Defaults used when the matching environment variable is unset.
const (
	DefaultPort      = "8080"
	DefaultDevice    = "0"
	DefaultModelPath = "models/yolov8n.onnx"
	DefaultBackend   = "cuda"
	DefaultLogLevel  = "info"
)

// Port returns the dashboard port from OBJECTCAM_PORT or the default.
func Port() string {
	return env("OBJECTCAM_PORT", DefaultPort)
}

// CameraDevice returns the capture device from CAMERA_DEVICE.
// Either an index ("0") or a path ("/dev/video2").
func CameraDevice() string {
	return env("CAMERA_DEVICE", DefaultDevice)
}

// ModelPath returns the ONNX model path from MODEL_PATH or the default.
func ModelPath() string {
	return env("MODEL_PATH", DefaultModelPath)
}

// ModelURL returns MODEL_URL, used to fetch the model when it is not on disk.
func ModelURL() string {
	return os.Getenv("MODEL_URL")
}

// Backend returns the preferred DNN backend from DNN_BACKEND or the default.
func Backend() string {
	return env("DNN_BACKEND", DefaultBackend)
}

// LogLevel returns LOG_LEVEL or "info".
func LogLevel() string {
	return env("LOG_LEVEL", DefaultLogLevel)
}

// Int returns the integer value of key, or def if unset or malformed.
func Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
