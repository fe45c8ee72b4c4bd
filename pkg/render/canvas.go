// Package render draws detection overlays onto a 2D surface.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	xdraw "golang.org/x/image/draw"
)

// Style is the stroke and text style used for overlays.
type Style struct {
	Color     string  // hex, e.g. "#00FFFF"
	LineWidth float64 // pixels
	FontSize  float64 // pixels
}

// DefaultStyle is cyan 4px boxes with 18px labels.
var DefaultStyle = Style{
	Color:     "#00FFFF",
	LineWidth: 4,
	FontSize:  18,
}

// Canvas is a fixed-size 2D drawing surface.
type Canvas interface {
	Width() int
	Height() int
	ClearRect(x, y, w, h float64)
	DrawImage(img image.Image, x, y, w, h float64)
	StrokeRect(x, y, w, h float64, style Style)
	FillText(text string, x, y float64, style Style)
}

// ImageCanvas is a Canvas backed by an in-memory RGBA image.
// Its size is fixed at construction.
type ImageCanvas struct {
	mu  sync.Mutex
	img *image.RGBA
	dc  *gg.Context
}

// NewImageCanvas creates a transparent canvas of the given size.
func NewImageCanvas(width, height int) *ImageCanvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	return &ImageCanvas{
		img: img,
		dc:  gg.NewContextForRGBA(img),
	}
}

func (c *ImageCanvas) Width() int  { return c.img.Bounds().Dx() }
func (c *ImageCanvas) Height() int { return c.img.Bounds().Dy() }

// ClearRect sets the pixels in the rectangle to transparent black.
func (c *ImageCanvas) ClearRect(x, y, w, h float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := rectOf(x, y, w, h).Intersect(c.img.Bounds())
	draw.Draw(c.img, r, image.Transparent, image.Point{}, draw.Src)
}

// DrawImage scales img into the destination rectangle.
func (c *ImageCanvas) DrawImage(img image.Image, x, y, w, h float64) {
	if img == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r := rectOf(x, y, w, h)
	if r.Empty() {
		return
	}
	if r.Size() == img.Bounds().Size() {
		draw.Draw(c.img, r, img, img.Bounds().Min, draw.Over)
		return
	}
	xdraw.ApproxBiLinear.Scale(c.img, r, img, img.Bounds(), xdraw.Over, nil)
}

func (c *ImageCanvas) StrokeRect(x, y, w, h float64, style Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dc.SetHexColor(style.Color)
	c.dc.SetLineWidth(style.LineWidth)
	c.dc.DrawRectangle(x, y, w, h)
	c.dc.Stroke()
}

// FillText draws text with its alphabetic baseline at y.
func (c *ImageCanvas) FillText(text string, x, y float64, style Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dc.SetFontFace(fontFace(style.FontSize))
	c.dc.SetHexColor(style.Color)
	c.dc.DrawString(text, x, y)
}

// Image returns a copy of the current canvas contents.
func (c *ImageCanvas) Image() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := image.NewRGBA(c.img.Bounds())
	copy(out.Pix, c.img.Pix)
	return out
}

// At reads a single pixel.
func (c *ImageCanvas) At(x, y int) color.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img.RGBAAt(x, y)
}

func rectOf(x, y, w, h float64) image.Rectangle {
	return image.Rect(int(x), int(y), int(x+w), int(y+h))
}

var (
	fontOnce  sync.Once
	fontTTF   *truetype.Font
	facesMu   sync.Mutex
	faceCache = map[float64]font.Face{}
)

func fontFace(size float64) font.Face {
	fontOnce.Do(func() {
		// goregular is embedded and known-good
		fontTTF, _ = truetype.Parse(goregular.TTF)
	})
	facesMu.Lock()
	defer facesMu.Unlock()
	if f, ok := faceCache[size]; ok {
		return f
	}
	f := truetype.NewFace(fontTTF, &truetype.Options{Size: size})
	faceCache[size] = f
	return f
}
