package detection

import "errors"

// Sentinel errors for common conditions.
var (
	// ErrModelNotFound is returned when the model file is missing and cannot be fetched.
	ErrModelNotFound = errors.New("detection: model not found")

	// ErrModelInvalid is returned when the model file cannot be parsed.
	ErrModelInvalid = errors.New("detection: model invalid")

	// ErrEmptyFrame is returned for nil or zero-sized frames.
	ErrEmptyFrame = errors.New("detection: empty frame")

	// ErrClosed is returned when detecting with a closed detector.
	ErrClosed = errors.New("detection: detector closed")
)
