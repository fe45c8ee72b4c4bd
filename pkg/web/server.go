// Package web serves the objectcam dashboard: status and control endpoints
// plus websocket feeds of the component state and the rendered canvas.
package web

import (
	"bytes"
	"context"
	"embed"
	"image"
	"image/jpeg"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-objectcam/internal/log"
	"github.com/teslashibe/go-objectcam/pkg/camera"
	"github.com/teslashibe/go-objectcam/pkg/detection"
	"github.com/teslashibe/go-objectcam/pkg/hub"
	"github.com/teslashibe/go-objectcam/pkg/objectcam"
)

//go:embed static
var staticFS embed.FS

// JPEGQuality is used for canvas snapshots sent to /ws/camera.
const JPEGQuality = 75

// Controller is what the dashboard drives. *objectcam.Component implements it.
type Controller interface {
	StartWebcam(ctx context.Context) error
	StopWebcam()
	IsWebcamStarted() bool
	Status() objectcam.Status
	Predictions() detection.Result
	Camera() *camera.Manager
}

// Server is the dashboard HTTP server.
type Server struct {
	app    *fiber.App
	port   string
	ctrl   Controller
	logger *slog.Logger

	statusHub *hub.Hub
	cameraHub *hub.Hub

	hubCtx   context.Context
	stopHubs context.CancelFunc
	hubsOnce sync.Once

	jpegMu  sync.Mutex
	jpegBuf bytes.Buffer
}

// NewServer creates a dashboard for ctrl listening on port.
func NewServer(port string, ctrl Controller, logger *slog.Logger) *Server {
	logger = log.Or(logger).With("component", "web")
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		port:      port,
		ctrl:      ctrl,
		logger:    logger,
		statusHub: hub.New("status", logger),
		cameraHub: hub.New("camera", logger),
		hubCtx:    ctx,
		stopHubs:  cancel,
	}

	app := fiber.New(fiber.Config{
		AppName:               "objectcam",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/predictions", s.handlePredictions)
	api.Post("/webcam/start", s.handleStartWebcam)
	api.Post("/webcam/stop", s.handleStopWebcam)
	api.Get("/camera/config", s.handleGetCameraConfig)
	api.Post("/camera/config", s.handleSetCameraConfig)
	api.Get("/camera/presets", s.handleCameraPresets)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	app.Use("/", filesystem.New(filesystem.Config{
		Root:       http.FS(staticFS),
		PathPrefix: "static",
		Index:      "index.html",
	}))

	s.app = app
	return s
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) startHubs() {
	s.hubsOnce.Do(func() {
		go s.statusHub.Run(s.hubCtx)
		go s.cameraHub.Run(s.hubCtx)
	})
}

// Start listens on the configured port and blocks.
func (s *Server) Start() error {
	s.startHubs()
	s.logger.Info("web dashboard listening", "url", "http://localhost:"+s.port)
	return s.app.Listen(":" + s.port)
}

// Serve serves on an existing listener and blocks.
func (s *Server) Serve(ln net.Listener) error {
	s.startHubs()
	s.logger.Info("web dashboard listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// PublishStatus pushes st to every /ws/status client.
func (s *Server) PublishStatus(st objectcam.Status) {
	if err := s.statusHub.BroadcastJSON(st); err != nil {
		s.logger.Warn("encode status", "error", err)
	}
}

// SendCameraFrame encodes img as JPEG and pushes it to /ws/camera clients.
// Nothing is encoded while nobody is watching.
func (s *Server) SendCameraFrame(img image.Image) {
	if s.cameraHub.ClientCount() == 0 {
		return
	}

	s.jpegMu.Lock()
	s.jpegBuf.Reset()
	err := jpeg.Encode(&s.jpegBuf, img, &jpeg.Options{Quality: JPEGQuality})
	data := append([]byte(nil), s.jpegBuf.Bytes()...)
	s.jpegMu.Unlock()

	if err != nil {
		s.logger.Warn("encode camera frame", "error", err)
		return
	}
	s.cameraHub.BroadcastBinary(data)
}

// StatusClients returns the number of /ws/status connections.
func (s *Server) StatusClients() int { return s.statusHub.ClientCount() }

// CameraClients returns the number of /ws/camera connections.
func (s *Server) CameraClients() int { return s.cameraHub.ClientCount() }

// Shutdown stops the server and disconnects websocket clients.
func (s *Server) Shutdown() error {
	s.stopHubs()
	return s.app.Shutdown()
}
