package render

import (
	"fmt"
	"image"
	"sync"
)

// Op is one recorded canvas call.
type Op struct {
	Name  string
	X, Y  float64
	W, H  float64
	Text  string
	Style Style
	Image image.Image
}

func (o Op) String() string {
	switch o.Name {
	case "fillText":
		return fmt.Sprintf("fillText(%q, %g, %g)", o.Text, o.X, o.Y)
	default:
		return fmt.Sprintf("%s(%g, %g, %g, %g)", o.Name, o.X, o.Y, o.W, o.H)
	}
}

// Recorder is a Canvas that records every call instead of drawing.
type Recorder struct {
	W, H int

	mu  sync.Mutex
	ops []Op
}

// NewRecorder creates a Recorder with the given size.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{W: width, H: height}
}

func (r *Recorder) Width() int  { return r.W }
func (r *Recorder) Height() int { return r.H }

func (r *Recorder) ClearRect(x, y, w, h float64) {
	r.add(Op{Name: "clearRect", X: x, Y: y, W: w, H: h})
}

func (r *Recorder) DrawImage(img image.Image, x, y, w, h float64) {
	r.add(Op{Name: "drawImage", Image: img, X: x, Y: y, W: w, H: h})
}

func (r *Recorder) StrokeRect(x, y, w, h float64, style Style) {
	r.add(Op{Name: "strokeRect", X: x, Y: y, W: w, H: h, Style: style})
}

func (r *Recorder) FillText(text string, x, y float64, style Style) {
	r.add(Op{Name: "fillText", Text: text, X: x, Y: y, Style: style})
}

// Ops returns a copy of the recorded calls.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Reset discards recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}

func (r *Recorder) add(op Op) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}
