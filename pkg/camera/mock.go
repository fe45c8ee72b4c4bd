package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// MockDevice is a Device that serves synthetic frames. It records every
// stream it grants so tests can check that tracks were released.
type MockDevice struct {
	// Width and Height are the granted frame size, regardless of the
	// requested constraints. Zero means "use the constraints".
	Width  int
	Height int

	// OpenErr, when set, makes Open fail.
	OpenErr error

	// ReadErr, when set, makes every ReadFrame fail.
	ReadErr error

	mu      sync.Mutex
	streams []*MockStream
	opens   atomic.Int64
}

// NewMockDevice creates a mock device granting width x height frames.
func NewMockDevice(width, height int) *MockDevice {
	return &MockDevice{Width: width, Height: height}
}

// Open grants a new stream unless OpenErr is set or ctx is done.
func (d *MockDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	d.opens.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.OpenErr != nil {
		return nil, &DeviceError{Device: "mock", Err: d.OpenErr}
	}

	w, h := d.Width, d.Height
	if w == 0 || h == 0 {
		w, h = c.Width, c.Height
	}

	s := &MockStream{
		id:      uuid.New().String(),
		width:   w,
		height:  h,
		facing:  c.FacingMode,
		readErr: d.ReadErr,
		track: &MockTrack{
			id:    uuid.New().String(),
			label: fmt.Sprintf("mock camera %dx%d", w, h),
		},
	}
	d.streams = append(d.streams, s)
	return s, nil
}

// Opens returns how many times Open was called.
func (d *MockDevice) Opens() int {
	return int(d.opens.Load())
}

// Streams returns every stream granted so far.
func (d *MockDevice) Streams() []*MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MockStream, len(d.streams))
	copy(out, d.streams)
	return out
}

// LiveTracks counts live tracks across all granted streams.
func (d *MockDevice) LiveTracks() int {
	n := 0
	for _, s := range d.Streams() {
		n += LiveTracks(s)
	}
	return n
}

// MockStream is the stream returned by MockDevice.
type MockStream struct {
	id      string
	width   int
	height  int
	facing  FacingMode
	readErr error
	track   *MockTrack
	frames  atomic.Int64
}

// ID returns the stream id.
func (s *MockStream) ID() string { return s.id }

// Tracks returns the single video track.
func (s *MockStream) Tracks() []Track { return []Track{s.track} }

// Settings returns the granted size.
func (s *MockStream) Settings() Settings {
	return Settings{
		DeviceID:   "mock",
		Width:      s.width,
		Height:     s.height,
		FrameRate:  30,
		FacingMode: s.facing,
	}
}

// ReadFrame returns a solid gray frame whose shade changes with each read.
func (s *MockStream) ReadFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.track.State() == TrackEnded {
		return nil, ErrTrackEnded
	}
	if s.readErr != nil {
		return nil, s.readErr
	}

	n := s.frames.Add(1)
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	shade := uint8(n % 256)
	fill := color.RGBA{shade, shade, shade, 255}
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	return img, nil
}

// FramesRead returns how many frames were served.
func (s *MockStream) FramesRead() int {
	return int(s.frames.Load())
}

// MockTrack is the video track of a MockStream.
type MockTrack struct {
	id      string
	label   string
	stopped atomic.Bool
}

// ID returns the track id.
func (t *MockTrack) ID() string { return t.id }

// Kind returns "video".
func (t *MockTrack) Kind() string { return "video" }

// Label returns a human-readable name.
func (t *MockTrack) Label() string { return t.label }

// State reports whether the track was stopped.
func (t *MockTrack) State() TrackState {
	if t.stopped.Load() {
		return TrackEnded
	}
	return TrackLive
}

// Stop ends the track.
func (t *MockTrack) Stop() { t.stopped.Store(true) }

// Ensure the mocks implement the interfaces.
var (
	_ Device = (*MockDevice)(nil)
	_ Stream = (*MockStream)(nil)
	_ Track  = (*MockTrack)(nil)
)
