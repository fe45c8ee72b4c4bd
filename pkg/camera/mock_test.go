package camera

import (
	"context"
	"errors"
	"testing"
)

func TestMockDevice_OpenAndStop(t *testing.T) {
	dev := NewMockDevice(800, 600)

	s, err := dev.Open(context.Background(), DefaultConstraints())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// Granted size differs from the ideal 640x480 and must be read back
	st := s.Settings()
	if st.Width != 800 || st.Height != 600 {
		t.Errorf("Expected granted 800x600, got %dx%d", st.Width, st.Height)
	}

	img, err := s.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Errorf("Expected 800x600 frame, got %v", b)
	}

	if dev.LiveTracks() != 1 {
		t.Errorf("Expected 1 live track, got %d", dev.LiveTracks())
	}

	StopTracks(s)
	StopTracks(s) // idempotent

	if dev.LiveTracks() != 0 {
		t.Errorf("Expected 0 live tracks after stop, got %d", dev.LiveTracks())
	}
	if _, err := s.ReadFrame(context.Background()); !errors.Is(err, ErrTrackEnded) {
		t.Errorf("Expected ErrTrackEnded after stop, got %v", err)
	}
}

func TestMockDevice_OpenError(t *testing.T) {
	dev := NewMockDevice(640, 480)
	dev.OpenErr = ErrPermissionDenied

	_, err := dev.Open(context.Background(), DefaultConstraints())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Expected ErrPermissionDenied, got %v", err)
	}

	var devErr *DeviceError
	if !errors.As(err, &devErr) || devErr.Device != "mock" {
		t.Errorf("Expected DeviceError for mock device, got %v", err)
	}
	if len(dev.Streams()) != 0 {
		t.Error("Failed open must not grant a stream")
	}
}

func TestMockDevice_UsesConstraintsWhenSizeUnset(t *testing.T) {
	dev := &MockDevice{}

	s, err := dev.Open(context.Background(), QVGAConstraints())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if st := s.Settings(); st.Width != 320 || st.Height != 240 {
		t.Errorf("Expected 320x240, got %dx%d", st.Width, st.Height)
	}
}

func TestLiveTracks_NilStream(t *testing.T) {
	if LiveTracks(nil) != 0 {
		t.Error("nil stream has no live tracks")
	}
	StopTracks(nil) // must not panic
}
