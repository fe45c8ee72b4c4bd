package camera

import (
	"errors"
	"fmt"
)

// Sentinel errors for device acquisition and reads.
var (
	// ErrPermissionDenied is returned when the process may not open the device.
	ErrPermissionDenied = errors.New("camera: permission denied")

	// ErrNotFound is returned when no capture device matches.
	ErrNotFound = errors.New("camera: no capture device found")

	// ErrNotReadable is returned when the device exists but cannot be used,
	// typically because another process holds it.
	ErrNotReadable = errors.New("camera: device busy or unreadable")

	// ErrTrackEnded is returned when reading from a stopped stream.
	ErrTrackEnded = errors.New("camera: track ended")
)

// DeviceError wraps an acquisition error with the device it concerns.
type DeviceError struct {
	Device string
	Err    error
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera [%s]: %v", e.Device, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeviceError) Unwrap() error {
	return e.Err
}
