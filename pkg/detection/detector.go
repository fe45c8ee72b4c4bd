// Package detection defines object detection results and the detector
// capability the render loop consumes.
package detection

import (
	"context"
	"image"
)

// Detection is one detected object.
type Detection struct {
	// BBox is x, y, width, height in pixels of the analyzed frame.
	BBox  [4]float64 `json:"bbox"`
	Class string     `json:"class"`
	Score float64    `json:"score"` // 0-1
}

// X returns the left edge of the box.
func (d Detection) X() float64 { return d.BBox[0] }

// Y returns the top edge of the box.
func (d Detection) Y() float64 { return d.BBox[1] }

// Width returns the box width.
func (d Detection) Width() float64 { return d.BBox[2] }

// Height returns the box height.
func (d Detection) Height() float64 { return d.BBox[3] }

// Center returns the center point of the box.
func (d Detection) Center() (x, y float64) {
	return d.BBox[0] + d.BBox[2]/2, d.BBox[1] + d.BBox[3]/2
}

// Area returns the area of the box in square pixels.
func (d Detection) Area() float64 {
	return d.BBox[2] * d.BBox[3]
}

// Rect returns the box as an integer rectangle.
func (d Detection) Rect() image.Rectangle {
	return image.Rect(int(d.BBox[0]), int(d.BBox[1]),
		int(d.BBox[0]+d.BBox[2]), int(d.BBox[1]+d.BBox[3]))
}

// Result is the ordered list of detections for one frame.
type Result []Detection

// Clone returns a copy that shares no memory with r.
func (r Result) Clone() Result {
	if r == nil {
		return nil
	}
	out := make(Result, len(r))
	copy(out, r)
	return out
}

// Classes returns the class label of every detection, in order.
func (r Result) Classes() []string {
	out := make([]string, len(r))
	for i, d := range r {
		out[i] = d.Class
	}
	return out
}

// Detector finds objects in frames.
type Detector interface {
	// Detect analyzes frame and returns detections in frame pixel space.
	Detect(ctx context.Context, frame image.Image) (Result, error)

	// Close releases resources
	Close() error
}

// Loader performs the one-time model load.
type Loader interface {
	// Load fetches and initializes the model, returning a ready detector.
	Load(ctx context.Context) (Detector, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (Detector, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) (Detector, error) {
	return f(ctx)
}

// BackendReporter is implemented by detectors that know which compute
// backend they run on.
type BackendReporter interface {
	Backend() string
}

// BackendOf returns the backend name of d, or "unknown".
func BackendOf(d Detector) string {
	if br, ok := d.(BackendReporter); ok {
		return br.Backend()
	}
	return "unknown"
}
