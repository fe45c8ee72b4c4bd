package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/teslashibe/go-objectcam/pkg/detection"
)

func TestLabelText(t *testing.T) {
	tests := []struct {
		class string
		score float64
		want  string
	}{
		{"cat", 0.87, "cat 87.00%"},
		{"person", 0.91234, "person 91.23%"},
		{"dog", 1, "dog 100.00%"},
		{"traffic light", 0.005, "traffic light 0.50%"},
		{"cat", 0.12125, "cat 12.13%"},
		{"cat", 0.87625, "cat 87.63%"},
		{"cat", 0.00125, "cat 0.13%"},
		{"cat", 0, "cat 0.00%"},
		{"cat", 0.123449, "cat 12.34%"},
	}

	for _, tc := range tests {
		got := LabelText(detection.Detection{Class: tc.class, Score: tc.score})
		if got != tc.want {
			t.Errorf("LabelText(%s, %v) = %q, want %q", tc.class, tc.score, got, tc.want)
		}
	}
}

func TestLabelOrigin(t *testing.T) {
	tests := []struct {
		name  string
		bbox  [4]float64
		wantX float64
		wantY float64
	}{
		{"near top pinned", [4]float64{10, 10, 50, 50}, 10, 10},
		{"at top edge", [4]float64{0, 0, 20, 20}, 0, 10},
		{"just below threshold", [4]float64{3, 10.5, 5, 5}, 3, 5.5},
		{"offset above box", [4]float64{40, 100, 80, 60}, 40, 95},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := LabelOrigin(detection.Detection{BBox: tc.bbox})
			if x != tc.wantX || y != tc.wantY {
				t.Errorf("LabelOrigin(%v) = (%v, %v), want (%v, %v)", tc.bbox, x, y, tc.wantX, tc.wantY)
			}
		})
	}
}

func TestDrawFrame_Order(t *testing.T) {
	rec := NewRecorder(640, 480)
	frame := image.NewRGBA(image.Rect(0, 0, 640, 480))
	result := detection.Result{
		{BBox: [4]float64{10, 10, 50, 50}, Class: "cat", Score: 0.87},
		{BBox: [4]float64{200, 100, 80, 60}, Class: "dog", Score: 0.5},
	}

	DrawFrame(rec, frame, result, DefaultStyle)

	want := []string{
		"clearRect(0, 0, 640, 480)",
		"drawImage(0, 0, 640, 480)",
		"strokeRect(10, 10, 50, 50)",
		`fillText("cat 87.00%", 10, 10)`,
		"strokeRect(200, 100, 80, 60)",
		`fillText("dog 50.00%", 200, 95)`,
	}

	ops := rec.Ops()
	if len(ops) != len(want) {
		t.Fatalf("Expected %d ops, got %d: %v", len(want), len(ops), ops)
	}
	for i, op := range ops {
		if op.String() != want[i] {
			t.Errorf("op %d = %s, want %s", i, op, want[i])
		}
	}
	if ops[2].Style != DefaultStyle || ops[3].Style != DefaultStyle {
		t.Errorf("Overlay should use the default style, got %+v", ops[2].Style)
	}
	if ops[1].Image != frame {
		t.Error("drawImage should receive the frame")
	}
}

func TestDrawFrame_NoDetections(t *testing.T) {
	rec := NewRecorder(320, 240)
	DrawFrame(rec, image.NewRGBA(image.Rect(0, 0, 320, 240)), nil, DefaultStyle)

	ops := rec.Ops()
	if len(ops) != 2 {
		t.Fatalf("Expected clear and draw only, got %v", ops)
	}
	if ops[0].Name != "clearRect" || ops[1].Name != "drawImage" {
		t.Errorf("Unexpected ops: %v", ops)
	}
}

func TestDefaultStyle(t *testing.T) {
	if DefaultStyle.Color != "#00FFFF" {
		t.Errorf("Expected #00FFFF, got %s", DefaultStyle.Color)
	}
	if DefaultStyle.LineWidth != 4 {
		t.Errorf("Expected line width 4, got %v", DefaultStyle.LineWidth)
	}
	if DefaultStyle.FontSize != 18 {
		t.Errorf("Expected 18px font, got %v", DefaultStyle.FontSize)
	}
}

func TestImageCanvas_DrawFrame(t *testing.T) {
	c := NewImageCanvas(100, 100)
	if c.Width() != 100 || c.Height() != 100 {
		t.Fatalf("Unexpected size %dx%d", c.Width(), c.Height())
	}

	red := color.RGBA{255, 0, 0, 255}
	frame := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for i := 0; i < len(frame.Pix); i += 4 {
		frame.Pix[i], frame.Pix[i+3] = 255, 255
	}

	result := detection.Result{{BBox: [4]float64{20, 40, 40, 40}, Class: "cat", Score: 0.87}}
	DrawFrame(c, frame, result, DefaultStyle)

	// frame scaled up to cover the whole canvas
	if got := c.At(95, 5); got != red {
		t.Errorf("Expected red background at (95,5), got %v", got)
	}
	// left edge of the box is cyan
	if got := c.At(20, 60); got.G < 200 || got.B < 200 || got.R > 50 {
		t.Errorf("Expected cyan stroke at (20,60), got %v", got)
	}
	// box interior is untouched
	if got := c.At(40, 60); got != red {
		t.Errorf("Expected red inside box at (40,60), got %v", got)
	}
}

func TestImageCanvas_ClearRect(t *testing.T) {
	c := NewImageCanvas(10, 10)
	frame := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := 0; i < len(frame.Pix); i += 4 {
		frame.Pix[i+1], frame.Pix[i+3] = 255, 255
	}
	c.DrawImage(frame, 0, 0, 10, 10)

	c.ClearRect(0, 0, 5, 10)

	if got := c.At(2, 2); got != (color.RGBA{}) {
		t.Errorf("Expected cleared pixel, got %v", got)
	}
	if got := c.At(7, 2); got.G != 255 {
		t.Errorf("Expected green pixel, got %v", got)
	}
}

func TestImageCanvas_FillText(t *testing.T) {
	c := NewImageCanvas(200, 40)
	c.FillText("cat 87.00%", 10, 30, DefaultStyle)

	img := c.Image()
	drawn := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			drawn++
		}
	}
	if drawn == 0 {
		t.Error("FillText drew nothing")
	}
}
