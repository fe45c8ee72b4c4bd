package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/teslashibe/go-objectcam/pkg/camera"
	"github.com/teslashibe/go-objectcam/pkg/detection"
	"github.com/teslashibe/go-objectcam/pkg/objectcam"
)

type testEnv struct {
	server *Server
	comp   *objectcam.Component
	device *camera.MockDevice
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	device := camera.NewMockDevice(0, 0)
	det := detection.NewMock(detection.Result{
		{BBox: [4]float64{10, 10, 50, 50}, Class: "cat", Score: 0.87},
	})

	comp, err := objectcam.New(objectcam.Options{
		Device: device,
		Loader: &detection.MockLoader{Detector: det},
	})
	if err != nil {
		t.Fatalf("objectcam.New failed: %v", err)
	}
	if err := comp.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := comp.WaitModel(context.Background()); err != nil {
		t.Fatalf("WaitModel failed: %v", err)
	}

	s := NewServer("0", comp, nil)
	t.Cleanup(func() {
		s.Shutdown()
		comp.Close()
	})
	return &testEnv{server: s, comp: comp, device: device}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.server.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func decodeStatus(t *testing.T, data []byte) objectcam.Status {
	t.Helper()
	var st objectcam.Status
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("decode status %s: %v", data, err)
	}
	return st
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/api/status", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	st := decodeStatus(t, body)
	if st.WebcamStarted {
		t.Error("Expected stopped")
	}
	if st.Model != objectcam.ModelLoaded || st.Backend != "mock" {
		t.Errorf("Unexpected model state %s/%s", st.Model, st.Backend)
	}
}

func TestStartStopWebcam(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/webcam/start", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", code, body)
	}
	if !decodeStatus(t, body).WebcamStarted {
		t.Fatal("Expected started after start")
	}

	deadline := time.Now().Add(3 * time.Second)
	var preds detection.Result
	for time.Now().Before(deadline) {
		_, body = env.do(t, http.MethodGet, "/api/predictions", "")
		preds = nil
		json.Unmarshal(body, &preds)
		if len(preds) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(preds) != 1 || preds[0].Class != "cat" {
		t.Fatalf("Unexpected predictions: %s", body)
	}

	code, body = env.do(t, http.MethodPost, "/api/webcam/stop", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	st := decodeStatus(t, body)
	if st.WebcamStarted || len(st.Predictions) != 0 {
		t.Errorf("Expected stopped with no predictions, got %+v", st)
	}
	if env.device.LiveTracks() != 0 {
		t.Error("Tracks still live after stop")
	}

	_, body = env.do(t, http.MethodGet, "/api/predictions", "")
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("Expected empty predictions, got %s", body)
	}
}

func TestStartWebcam_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{camera.ErrPermissionDenied, http.StatusForbidden},
		{camera.ErrNotFound, http.StatusNotFound},
		{camera.ErrNotReadable, http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			env := newTestEnv(t)
			env.device.OpenErr = tc.err

			code, body := env.do(t, http.MethodPost, "/api/webcam/start", "")
			if code != tc.want {
				t.Errorf("Expected %d, got %d: %s", tc.want, code, body)
			}
			if env.comp.IsWebcamStarted() {
				t.Error("Should remain stopped")
			}
		})
	}
}

func TestCameraConfig(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/api/camera/config", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	var cfg map[string]interface{}
	json.Unmarshal(body, &cfg)
	if cfg["width"] != float64(640) || cfg["facing_mode"] != "environment" {
		t.Errorf("Unexpected default config: %v", cfg)
	}

	code, body = env.do(t, http.MethodPost, "/api/camera/config", `{"preset":"720p"}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", code, body)
	}
	if got := env.comp.Camera().GetConstraints(); got.Width != 1280 || got.Height != 720 {
		t.Errorf("Preset not applied: %+v", got)
	}

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"too small", `{"width": 10}`},
		{"audio", `{"audio": true}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := env.do(t, http.MethodPost, "/api/camera/config", tc.body)
			if code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", code)
			}
		})
	}
}

func TestCameraPresets(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/api/camera/presets", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	var resp struct {
		Names   []string                      `json:"names"`
		Presets map[string]camera.Constraints `json:"presets"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Names) != len(camera.PresetNames()) {
		t.Errorf("Expected %d presets, got %d", len(camera.PresetNames()), len(resp.Names))
	}
	if resp.Presets["1080p"].Width != 1920 {
		t.Errorf("Unexpected 1080p preset: %+v", resp.Presets["1080p"])
	}
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if !bytes.Contains(body, []byte("/ws/status")) {
		t.Error("Index page should open the status websocket")
	}
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodGet, "/ws/status", "")
	if code != http.StatusUpgradeRequired {
		t.Errorf("Expected 426, got %d", code)
	}
}

func serve(t *testing.T, env *testEnv) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go env.server.Serve(ln)
	return ln.Addr().String()
}

func dial(t *testing.T, addr, path string) *gorillaws.Conn {
	t.Helper()
	var conn *gorillaws.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, _, err = gorillaws.DefaultDialer.Dial("ws://"+addr+path, nil)
		if err == nil {
			t.Cleanup(func() { conn.Close() })
			return conn
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("dial %s: %v", path, err)
	return nil
}

func TestStatusWebsocket(t *testing.T) {
	env := newTestEnv(t)
	addr := serve(t, env)
	conn := dial(t, addr, "/ws/status")
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read initial status: %v", err)
	}
	if mt != gorillaws.TextMessage {
		t.Errorf("Expected text frame, got %d", mt)
	}
	if decodeStatus(t, data).WebcamStarted {
		t.Error("Initial status should be stopped")
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.server.StatusClients() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	st := env.comp.Status()
	st.WebcamStarted = true
	env.server.PublishStatus(st)

	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read published status: %v", err)
	}
	if !decodeStatus(t, data).WebcamStarted {
		t.Error("Expected published status")
	}
}

func TestCameraWebsocket(t *testing.T) {
	env := newTestEnv(t)

	// no viewers, nothing to do
	env.server.SendCameraFrame(image.NewRGBA(image.Rect(0, 0, 8, 8)))

	addr := serve(t, env)
	conn := dial(t, addr, "/ws/camera")
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	deadline := time.Now().Add(2 * time.Second)
	for env.server.CameraClients() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	env.server.SendCameraFrame(image.NewRGBA(image.Rect(0, 0, 64, 48)))

	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if mt != gorillaws.BinaryMessage {
		t.Errorf("Expected binary frame, got %d", mt)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("Unexpected frame size %v", b)
	}
}
