// Package objectcam runs the webcam capture, detection and render loop.
//
// A Component owns at most one capture session. While the session is started
// and the model is loaded, each frame tick reads the current frame, runs the
// detector, and redraws the canvas with the detections on top. The next tick
// is requested only after the current one has rendered, so detections never
// overlap.
package objectcam

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-objectcam/internal/log"
	"github.com/teslashibe/go-objectcam/pkg/camera"
	"github.com/teslashibe/go-objectcam/pkg/detection"
	"github.com/teslashibe/go-objectcam/pkg/frameloop"
	"github.com/teslashibe/go-objectcam/pkg/render"
	"github.com/teslashibe/go-objectcam/pkg/video"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("objectcam: component closed")

	// ErrNotInitialized is returned by WaitModel before Init.
	ErrNotInitialized = errors.New("objectcam: model load not started")
)

// Options configures a Component. Device and Loader are required.
type Options struct {
	Device camera.Device
	Loader detection.Loader

	// Camera holds the constraints used by the next StartWebcam.
	Camera *camera.Manager

	// Clock drives the loop. When nil the component creates and owns one.
	Clock *frameloop.Clock

	// NewCanvas creates the render target for a session.
	NewCanvas func(width, height int) render.Canvas

	Style  render.Style
	Logger *slog.Logger

	// OnStatus is called after every state change.
	OnStatus func(Status)

	// OnFrame is called with the rendered canvas after each successful
	// iteration, when the canvas can produce an image.
	OnFrame func(img image.Image)
}

// Session is one started capture.
type Session struct {
	ID        string
	StartedAt time.Time

	stream   camera.Stream
	canvas   render.Canvas
	width    int
	height   int
	settings camera.Settings
}

// Canvas returns the session's render target.
func (s *Session) Canvas() render.Canvas { return s.canvas }

func (s *Session) info() *SessionInfo {
	return &SessionInfo{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		Width:     s.width,
		Height:    s.height,
		Settings:  s.settings,
	}
}

// Component is the capture/detect/render loop and its lifecycle.
type Component struct {
	device    camera.Device
	loader    detection.Loader
	camera    *camera.Manager
	clock     *frameloop.Clock
	ownsClock bool
	newCanvas func(width, height int) render.Canvas
	style     render.Style
	logger    *slog.Logger
	onStatus  func(Status)
	onFrame   func(image.Image)

	video *video.Element

	// lifecycle serializes StartWebcam, StopWebcam and Close
	lifecycle sync.Mutex

	mu          sync.RWMutex
	started     bool
	closed      bool
	session     *Session
	handle      *frameloop.Handle
	predictions detection.Result
	stats       Stats

	detector   detection.Detector
	modelState ModelState
	modelErr   error
	backend    string
	loadCancel context.CancelFunc
	loadDone   chan struct{}
}

// New creates a Component.
func New(opts Options) (*Component, error) {
	if opts.Device == nil {
		return nil, fmt.Errorf("objectcam: camera device is required")
	}
	if opts.Loader == nil {
		return nil, fmt.Errorf("objectcam: model loader is required")
	}

	base := log.Or(opts.Logger)
	logger := base.With("component", "objectcam")

	c := &Component{
		device:     opts.Device,
		loader:     opts.Loader,
		camera:     opts.Camera,
		clock:      opts.Clock,
		newCanvas:  opts.NewCanvas,
		style:      opts.Style,
		logger:     logger,
		onStatus:   opts.OnStatus,
		onFrame:    opts.OnFrame,
		video:      video.NewElement(),
		modelState: ModelIdle,
	}
	if c.camera == nil {
		c.camera = camera.NewManager()
	}
	if c.clock == nil {
		c.clock = frameloop.New(frameloop.DefaultInterval, nil, base)
		c.ownsClock = true
	}
	if c.newCanvas == nil {
		c.newCanvas = func(w, h int) render.Canvas { return render.NewImageCanvas(w, h) }
	}
	if c.style == (render.Style{}) {
		c.style = render.DefaultStyle
	}
	return c, nil
}

// Camera returns the constraints manager.
func (c *Component) Camera() *camera.Manager { return c.camera }

// Init starts the frame clock and the one-time model load in the
// background. Calling it again does nothing.
func (c *Component) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.loadDone != nil {
		c.mu.Unlock()
		return nil
	}
	if err := c.clock.Start(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("objectcam: start frame clock: %w", err)
	}

	loadCtx, cancel := context.WithCancel(ctx)
	c.loadCancel = cancel
	c.loadDone = make(chan struct{})
	c.modelState = ModelLoading
	done := c.loadDone
	c.mu.Unlock()

	c.logger.Info("loading model")
	c.notify()

	go func() {
		defer close(done)
		c.loadModel(loadCtx)
	}()
	return nil
}

func (c *Component) loadModel(ctx context.Context) {
	start := time.Now()
	det, err := c.loader.Load(ctx)
	if err == nil && det == nil {
		err = fmt.Errorf("objectcam: loader returned no detector")
	}

	c.mu.Lock()
	if err != nil {
		c.modelState = ModelFailed
		c.modelErr = err
		c.mu.Unlock()
		c.logger.Error("model load failed", "error", err)
		c.notify()
		return
	}
	if c.closed {
		c.mu.Unlock()
		det.Close()
		return
	}

	c.detector = det
	c.modelState = ModelLoaded
	c.backend = detection.BackendOf(det)

	// the loop went idle waiting for the model
	if c.started && c.handle == nil {
		c.schedule(c.session)
	}
	c.mu.Unlock()

	c.logger.Info("model loaded", "backend", c.backend, "duration", time.Since(start))
	c.notify()
}

// WaitModel blocks until the model load finished and returns its error.
func (c *Component) WaitModel(ctx context.Context) error {
	c.mu.RLock()
	done := c.loadDone
	c.mu.RUnlock()
	if done == nil {
		return ErrNotInitialized
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modelErr
}

// StartWebcam opens the camera, waits for the first frame to learn its real
// size, creates a canvas of that size and starts the detection loop. It does
// nothing when a session is already started. On failure nothing is left
// open.
func (c *Component) StartWebcam(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.RLock()
	started, closed := c.started, c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if started {
		return nil
	}

	if err := c.clock.Start(); err != nil {
		return fmt.Errorf("objectcam: start frame clock: %w", err)
	}

	constraints := c.camera.GetConstraints()
	stream, err := c.device.Open(ctx, constraints)
	if err != nil {
		c.logger.Error("error accessing webcam", "error", err)
		return fmt.Errorf("objectcam: open camera: %w", err)
	}

	c.video.SetSource(stream)
	meta, err := c.video.WaitLoadedMetadata(ctx)
	if err != nil {
		c.video.SetSource(nil)
		camera.StopTracks(stream)
		c.logger.Error("error loading video metadata", "error", err)
		return fmt.Errorf("objectcam: load video metadata: %w", err)
	}

	sess := &Session{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		stream:    stream,
		canvas:    c.newCanvas(meta.Width, meta.Height),
		width:     meta.Width,
		height:    meta.Height,
		settings:  stream.Settings(),
	}

	c.mu.Lock()
	c.started = true
	c.session = sess
	c.predictions = nil
	c.schedule(sess)
	c.mu.Unlock()

	c.logger.Info("webcam started",
		"session", sess.ID,
		"width", meta.Width,
		"height", meta.Height,
		"facing", constraints.FacingMode)
	c.notify()
	return nil
}

// StopWebcam cancels the pending iteration, waiting for one in progress,
// then stops every track, detaches the stream and clears the predictions.
// It is safe to call when already stopped.
func (c *Component) StopWebcam() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.stop()
}

func (c *Component) stop() {
	c.mu.Lock()
	wasStarted := c.started
	sess := c.session
	h := c.handle
	c.started = false
	c.handle = nil
	c.mu.Unlock()

	// outside mu: a running iteration needs it to finish
	h.Cancel()

	if sess != nil {
		camera.StopTracks(sess.stream)
	}
	c.video.SetSource(nil)

	c.mu.Lock()
	c.session = nil
	c.predictions = nil
	c.mu.Unlock()

	if wasStarted {
		c.logger.Info("webcam stopped", "session", sess.ID)
		c.notify()
	}
}

// Close stops the webcam, aborts a model load in progress and releases the
// detector. The component cannot be restarted.
func (c *Component) Close() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.stop()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, done := c.loadCancel, c.loadDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	c.mu.Lock()
	det := c.detector
	c.detector = nil
	c.mu.Unlock()

	var errs []error
	if det != nil {
		if err := det.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close detector: %w", err))
		}
	}
	if c.ownsClock {
		if err := c.clock.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close frame clock: %w", err))
		}
	}
	return errors.Join(errs...)
}

// IsWebcamStarted reports whether a session is active.
func (c *Component) IsWebcamStarted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Predictions returns the latest detection result.
func (c *Component) Predictions() detection.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.predictions.Clone()
}

// Status returns a snapshot of the component state.
func (c *Component) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Status{
		WebcamStarted: c.started,
		Model:         c.modelState,
		Backend:       c.backend,
		Predictions:   c.predictions.Clone(),
		Stats:         c.stats,
	}
	if s.Predictions == nil {
		s.Predictions = detection.Result{}
	}
	if c.modelErr != nil {
		s.ModelError = c.modelErr.Error()
	}
	if c.session != nil {
		s.Session = c.session.info()
	}
	return s
}

func (c *Component) notify() {
	if c.onStatus != nil {
		c.onStatus(c.Status())
	}
}
