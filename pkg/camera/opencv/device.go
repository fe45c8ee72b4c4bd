// Package opencv opens local cameras through gocv (V4L2 on Linux,
// AVFoundation on macOS) and exposes them as camera.Stream values.
package opencv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-objectcam/internal/log"
	"github.com/teslashibe/go-objectcam/pkg/camera"
)

// Candidate is a capture device the Device may choose from.
type Candidate struct {
	// Device is an index ("0") or a device path ("/dev/video2").
	Device string

	// Facing is the direction the camera points, if known.
	Facing camera.FacingMode
}

// Device opens the candidate that best matches the requested facing mode.
type Device struct {
	candidates []Candidate
	logger     *slog.Logger
}

// NewDevice creates a gocv-backed device over the given candidates.
func NewDevice(logger *slog.Logger, candidates ...Candidate) *Device {
	return &Device{
		candidates: candidates,
		logger:     log.Or(logger).With("component", "camera"),
	}
}

// Pick returns the first candidate facing the preferred way, or the first
// candidate when none matches. ok is false if there are no candidates.
func Pick(candidates []Candidate, facing camera.FacingMode) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	for _, c := range candidates {
		if facing != "" && c.Facing == facing {
			return c, true
		}
	}
	return candidates[0], true
}

// Open acquires the chosen device and applies the ideal resolution.
func (d *Device) Open(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cand, ok := Pick(d.candidates, c.FacingMode)
	if !ok {
		return nil, &camera.DeviceError{Device: "none", Err: camera.ErrNotFound}
	}

	if err := probe(devicePath(cand.Device)); err != nil {
		return nil, &camera.DeviceError{Device: cand.Device, Err: err}
	}

	vc, err := gocv.OpenVideoCapture(captureArg(cand.Device))
	if err != nil {
		return nil, &camera.DeviceError{Device: cand.Device, Err: fmt.Errorf("%w: %v", camera.ErrNotReadable, err)}
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, &camera.DeviceError{Device: cand.Device, Err: camera.ErrNotReadable}
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	if c.FrameRate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(c.FrameRate))
	}

	s := &stream{
		id:  uuid.New().String(),
		vc:  vc,
		mat: gocv.NewMat(),
		settings: camera.Settings{
			DeviceID:   cand.Device,
			Width:      int(vc.Get(gocv.VideoCaptureFrameWidth)),
			Height:     int(vc.Get(gocv.VideoCaptureFrameHeight)),
			FrameRate:  vc.Get(gocv.VideoCaptureFPS),
			FacingMode: cand.Facing,
		},
	}
	s.track = &track{id: uuid.New().String(), label: "camera " + cand.Device, stream: s}

	d.logger.Info("camera opened",
		"device", cand.Device,
		"requested", fmt.Sprintf("%dx%d", c.Width, c.Height),
		"granted", fmt.Sprintf("%dx%d", s.settings.Width, s.settings.Height),
	)

	return s, nil
}

// captureArg turns "0" into the int index gocv expects for device ids.
func captureArg(device string) interface{} {
	if n, err := strconv.Atoi(device); err == nil {
		return n
	}
	return device
}

func devicePath(device string) string {
	if _, err := strconv.Atoi(device); err == nil {
		return "/dev/video" + device
	}
	return device
}

// probe maps missing and unreadable V4L nodes to camera errors before gocv
// hides the reason behind a generic open failure. Non-/dev paths (files,
// URLs, macOS indexes) are left to gocv.
func probe(path string) error {
	if !strings.HasPrefix(path, "/dev/") {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return camera.ErrNotFound
		}
		return fmt.Errorf("%w: %v", camera.ErrNotReadable, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return camera.ErrPermissionDenied
		}
		return fmt.Errorf("%w: %v", camera.ErrNotReadable, err)
	}
	return f.Close()
}

type stream struct {
	id    string
	track *track

	mu       sync.Mutex
	vc       *gocv.VideoCapture
	mat      gocv.Mat
	settings camera.Settings
	closed   bool
}

func (s *stream) ID() string { return s.id }

func (s *stream) Tracks() []camera.Track { return []camera.Track{s.track} }

func (s *stream) Settings() camera.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// ReadFrame grabs the next frame. The decoded size overrides the size the
// driver reported at open time.
func (s *stream) ReadFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, camera.ErrTrackEnded
	}
	if ok := s.vc.Read(&s.mat); !ok {
		return nil, fmt.Errorf("%w: read failed", camera.ErrNotReadable)
	}
	if s.mat.Empty() {
		return nil, fmt.Errorf("%w: empty frame", camera.ErrNotReadable)
	}

	s.settings.Width = s.mat.Cols()
	s.settings.Height = s.mat.Rows()

	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

func (s *stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.vc.Close()
	s.mat.Close()
}

func (s *stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type track struct {
	id     string
	label  string
	stream *stream
}

func (t *track) ID() string    { return t.id }
func (t *track) Kind() string  { return "video" }
func (t *track) Label() string { return t.label }

func (t *track) State() camera.TrackState {
	if t.stream.isClosed() {
		return camera.TrackEnded
	}
	return camera.TrackLive
}

// Stop closes the capture. A read in progress finishes first.
func (t *track) Stop() { t.stream.close() }

var _ camera.Device = (*Device)(nil)
