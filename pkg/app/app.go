package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/teslashibe/go-objectcam/internal/httpc"
	"github.com/teslashibe/go-objectcam/internal/log"
	"github.com/teslashibe/go-objectcam/pkg/camera"
	"github.com/teslashibe/go-objectcam/pkg/camera/opencv"
	"github.com/teslashibe/go-objectcam/pkg/detection"
	"github.com/teslashibe/go-objectcam/pkg/detection/yolo"
	"github.com/teslashibe/go-objectcam/pkg/frameloop"
	"github.com/teslashibe/go-objectcam/pkg/objectcam"
	"github.com/teslashibe/go-objectcam/pkg/web"
)

// statusInterval limits status pushes driven by rendered frames.
const statusInterval = 100 * time.Millisecond

// Option overrides a dependency, mostly for tests.
type Option func(*App)

// WithDevice replaces the OpenCV camera.
func WithDevice(d camera.Device) Option {
	return func(a *App) { a.device = d }
}

// WithLoader replaces the YOLO model loader.
func WithLoader(l detection.Loader) Option {
	return func(a *App) { a.loader = l }
}

// WithListener serves the dashboard on ln instead of the configured port.
func WithListener(ln net.Listener) Option {
	return func(a *App) { a.listener = ln }
}

// App is the objectcam service.
type App struct {
	config Config
	logger *slog.Logger

	device   camera.Device
	loader   detection.Loader
	listener net.Listener

	clock     *frameloop.Clock
	component *objectcam.Component
	webServer *web.Server

	statusMu   sync.Mutex
	lastStatus time.Time
}

// New creates the service with the given configuration.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		config: cfg,
		logger: log.With("component", "app"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Component returns the detection component, available after Init.
func (a *App) Component() *objectcam.Component { return a.component }

// Init builds every component and starts the model load.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	a.logger.Info("starting objectcam",
		"device", a.config.Device,
		"model", a.config.ModelPath,
		"backend", a.config.Backend,
		"fps", a.config.FPS)

	if a.device == nil {
		a.device = opencv.NewDevice(log.L(), opencv.Candidate{
			Device: a.config.Device,
			Facing: a.config.Facing,
		})
	}
	if a.loader == nil {
		a.loader = yolo.NewLoader(a.config.yoloConfig(), httpc.Client, log.L())
	}

	cam := camera.NewManager()
	if p := camera.GetPreset(a.config.Preset); p != nil {
		if err := cam.SetConstraints(*p); err != nil {
			return fmt.Errorf("camera preset: %w", err)
		}
	}

	a.clock = frameloop.New(time.Second/time.Duration(a.config.FPS), nil, log.L())

	comp, err := objectcam.New(objectcam.Options{
		Device:   a.device,
		Loader:   a.loader,
		Camera:   cam,
		Clock:    a.clock,
		Logger:   log.L(),
		OnStatus: a.publishStatus,
		OnFrame:  a.publishFrame,
	})
	if err != nil {
		return fmt.Errorf("detection component: %w", err)
	}
	a.component = comp
	a.webServer = web.NewServer(a.config.Port, comp, log.L())

	if err := comp.Init(ctx); err != nil {
		return fmt.Errorf("model load: %w", err)
	}
	return nil
}

// Run serves the dashboard until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if a.listener != nil {
			errCh <- a.webServer.Serve(a.listener)
		} else {
			errCh <- a.webServer.Start()
		}
	}()

	if a.config.AutoStart {
		go func() {
			// wait for the model so the first frames are not wasted
			if err := a.component.WaitModel(ctx); err != nil {
				a.logger.Warn("autostart without model", "error", err)
			}
			if err := a.component.StartWebcam(ctx); err != nil {
				a.logger.Error("autostart failed", "error", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	}
}

// Shutdown releases the camera and model and stops the dashboard.
func (a *App) Shutdown() {
	a.logger.Info("shutting down")

	if a.component != nil {
		if err := a.component.Close(); err != nil {
			a.logger.Warn("close component", "error", err)
		}
	}
	if a.clock != nil {
		a.clock.Close()
	}
	if a.webServer != nil {
		if err := a.webServer.Shutdown(); err != nil {
			a.logger.Warn("web shutdown", "error", err)
		}
	}
}

func (a *App) publishStatus(st objectcam.Status) {
	a.statusMu.Lock()
	a.lastStatus = time.Now()
	a.statusMu.Unlock()

	if a.webServer != nil {
		a.webServer.PublishStatus(st)
	}
}

// publishFrame runs on the frame clock goroutine after each render.
func (a *App) publishFrame(img image.Image) {
	if a.webServer == nil {
		return
	}
	a.webServer.SendCameraFrame(img)

	if a.webServer.StatusClients() == 0 {
		return
	}
	a.statusMu.Lock()
	due := time.Since(a.lastStatus) >= statusInterval
	if due {
		a.lastStatus = time.Now()
	}
	a.statusMu.Unlock()

	if due {
		a.webServer.PublishStatus(a.component.Status())
	}
}
