// Package yolo runs YOLOv8 ONNX models through OpenCV DNN (gocv) and
// reports COCO objects in frame pixel coordinates.
package yolo

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-objectcam/pkg/detection"
)

// Backend names a DNN compute backend.
type Backend string

const (
	BackendCUDA   Backend = "cuda"
	BackendOpenCL Backend = "opencl"
	BackendCPU    Backend = "cpu"
)

// Config holds YOLO detector configuration
type Config struct {
	ModelPath        string
	ModelURL         string // fetched into ModelPath when the file is missing
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
	Backend          Backend // preferred backend, slower ones are tried after it
}

// DefaultConfig returns production defaults for YOLOv8n
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
		Backend:          BackendCUDA,
	}
}

// BackendOrder returns the backends to try, fastest first, starting at the
// preferred one. Unknown names fall back to CPU only.
func BackendOrder(preferred Backend) []Backend {
	switch preferred {
	case BackendCUDA:
		return []Backend{BackendCUDA, BackendOpenCL, BackendCPU}
	case BackendOpenCL:
		return []Backend{BackendOpenCL, BackendCPU}
	default:
		return []Backend{BackendCPU}
	}
}

// Detector uses YOLOv8 for general object detection
type Detector struct {
	net       gocv.Net
	config    Config
	backend   Backend
	mu        sync.Mutex
	inputSize image.Point
	closed    bool
}

// New loads the ONNX model at cfg.ModelPath and selects a backend.
func New(cfg Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", detection.ErrModelNotFound, cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s", detection.ErrModelInvalid, cfg.ModelPath)
	}

	backend, err := selectBackend(&net, cfg.Backend)
	if err != nil {
		net.Close()
		return nil, err
	}

	return &Detector{
		net:       net,
		config:    cfg,
		backend:   backend,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// selectBackend applies the first backend OpenCV accepts. OpenCV builds
// without CUDA still accept the setting and fall back to CPU at the first
// forward pass, logging a warning of their own.
func selectBackend(net *gocv.Net, preferred Backend) (Backend, error) {
	var lastErr error
	for _, b := range BackendOrder(preferred) {
		var nb gocv.NetBackendType
		var nt gocv.NetTargetType
		switch b {
		case BackendCUDA:
			nb, nt = gocv.NetBackendCUDA, gocv.NetTargetCUDA
		case BackendOpenCL:
			nb, nt = gocv.NetBackendOpenCV, gocv.NetTargetOpenCL
		default:
			nb, nt = gocv.NetBackendDefault, gocv.NetTargetCPU
		}
		if err := net.SetPreferableBackend(nb); err != nil {
			lastErr = err
			continue
		}
		if err := net.SetPreferableTarget(nt); err != nil {
			lastErr = err
			continue
		}
		return b, nil
	}
	return "", fmt.Errorf("no usable DNN backend: %w", lastErr)
}

// Backend returns the backend selected at load time.
func (d *Detector) Backend() string {
	return string(d.backend)
}

// Detect finds objects in frame
func (d *Detector) Detect(ctx context.Context, frame image.Image) (detection.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, detection.ErrEmptyFrame
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, detection.ErrClosed
	}

	img, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer img.Close()

	imgW := float32(img.Cols())
	imgH := float32(img.Rows())

	// ImageToMatRGB produces BGR like IMDecode, so swap to RGB for the model
	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	return d.parseOutput(output, imgW, imgH)
}

// parseOutput parses the YOLOv8 output tensor.
// Shape is [1, 4+classes, candidates]: cx, cy, w, h then one score per class.
func (d *Detector) parseOutput(output gocv.Mat, imgW, imgH float32) (detection.Result, error) {
	size := output.Size()
	if len(size) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", size)
	}
	cols, rows := size[1], size[2]

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	var boxes []image.Rectangle
	var confidences []float32
	var classIDs []int

	scaleX := imgW / float32(d.config.InputWidth)
	scaleY := imgH / float32(d.config.InputHeight)

	for i := 0; i < rows; i++ {
		maxScore := float32(0)
		maxClassID := 0

		for c := 4; c < cols; c++ {
			score := data[c*rows+i]
			if score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}

		if maxScore < d.config.ConfidenceThresh {
			continue
		}

		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		x1 := int((cx - w/2) * scaleX)
		y1 := int((cy - h/2) * scaleY)
		x2 := int((cx + w/2) * scaleX)
		y2 := int((cy + h/2) * scaleY)

		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		confidences = append(confidences, maxScore)
		classIDs = append(classIDs, maxClassID)
	}

	if len(boxes) == 0 {
		return detection.Result{}, nil
	}

	bounds := image.Rect(0, 0, int(imgW), int(imgH))
	indices := gocv.NMSBoxes(boxes, confidences, d.config.ConfidenceThresh, d.config.NMSThresh)

	result := make(detection.Result, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx].Intersect(bounds)
		if box.Empty() {
			continue
		}
		result = append(result, detection.Detection{
			BBox:  [4]float64{float64(box.Min.X), float64(box.Min.Y), float64(box.Dx()), float64(box.Dy())},
			Class: detection.ClassName(classIDs[idx]),
			Score: float64(confidences[idx]),
		})
	}

	return result, nil
}

// Close releases the detector resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}

var (
	_ detection.Detector        = (*Detector)(nil)
	_ detection.BackendReporter = (*Detector)(nil)
)
