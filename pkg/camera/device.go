package camera

import (
	"context"
	"image"
)

// TrackState is the lifecycle state of a media track.
type TrackState string

const (
	TrackLive  TrackState = "live"
	TrackEnded TrackState = "ended"
)

// Track is one media track of a stream. Video capture streams carry a
// single video track.
type Track interface {
	ID() string
	Kind() string // "video"
	Label() string
	State() TrackState

	// Stop releases the underlying device. It is safe to call Stop multiple
	// times; reads on the owning stream fail with ErrTrackEnded afterwards.
	Stop()
}

// Settings are the values a device actually granted.
type Settings struct {
	DeviceID   string     `json:"device_id"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	FrameRate  float64    `json:"frame_rate"`
	FacingMode FacingMode `json:"facing_mode,omitempty"`
}

// Stream is a live capture granted by a Device.
type Stream interface {
	ID() string

	// Tracks returns the tracks of the stream.
	Tracks() []Track

	// Settings returns the negotiated capture settings. Devices may only
	// know the real frame size once the first frame was decoded.
	Settings() Settings

	// ReadFrame blocks until the next frame is available.
	ReadFrame(ctx context.Context) (image.Image, error)
}

// Device acquires camera streams.
type Device interface {
	// Open requests a stream matching c as closely as possible.
	// Errors wrap ErrPermissionDenied, ErrNotFound or ErrNotReadable.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// StopTracks stops every track of s.
func StopTracks(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// LiveTracks counts the tracks of s that have not been stopped.
func LiveTracks(s Stream) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, t := range s.Tracks() {
		if t.State() == TrackLive {
			n++
		}
	}
	return n
}
