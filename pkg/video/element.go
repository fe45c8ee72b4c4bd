// Package video provides the surface a camera stream is bound to. It plays
// the part of a <video> element: it holds the current source, reports the
// native frame size once the first frame has been decoded, and hands frames
// to consumers.
package video

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/teslashibe/go-objectcam/pkg/camera"
)

var (
	// ErrNoSource is returned when no stream is bound to the element.
	ErrNoSource = errors.New("video: no source")

	// ErrMetadataNotLoaded is returned by Frame before WaitLoadedMetadata succeeded.
	ErrMetadataNotLoaded = errors.New("video: metadata not loaded")
)

// Metadata describes the native size of the bound stream.
type Metadata struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Element is a video surface. It is safe for concurrent use.
type Element struct {
	mu      sync.Mutex
	src     camera.Stream
	meta    *Metadata
	pending image.Image // first frame, decoded while loading metadata
}

// NewElement returns an element with no source.
func NewElement() *Element {
	return &Element{}
}

// SetSource binds s to the element, replacing any previous source.
// Passing nil detaches the current source. Metadata is reset either way.
func (e *Element) SetSource(s camera.Stream) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.src = s
	e.meta = nil
	e.pending = nil
}

// Source returns the bound stream, or nil.
func (e *Element) Source() camera.Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

// WaitLoadedMetadata blocks until the first frame of the source has been
// decoded and returns its size. The size is taken from the frame itself, not
// from what the device claimed when it was opened.
func (e *Element) WaitLoadedMetadata(ctx context.Context) (Metadata, error) {
	e.mu.Lock()
	src := e.src
	if e.meta != nil {
		m := *e.meta
		e.mu.Unlock()
		return m, nil
	}
	e.mu.Unlock()

	if src == nil {
		return Metadata{}, ErrNoSource
	}

	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, err := src.ReadFrame(ctx)
		ch <- result{img, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return Metadata{}, ctx.Err()
	case r = <-ch:
	}
	if r.err != nil {
		return Metadata{}, r.err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Detached or replaced while we were waiting
	if e.src != src {
		return Metadata{}, ErrNoSource
	}

	b := r.img.Bounds()
	e.meta = &Metadata{Width: b.Dx(), Height: b.Dy()}
	e.pending = r.img
	return *e.meta, nil
}

// Metadata returns the loaded metadata, if any.
func (e *Element) Metadata() (Metadata, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.meta == nil {
		return Metadata{}, false
	}
	return *e.meta, true
}

// VideoWidth returns the native frame width, or 0 before metadata loaded.
func (e *Element) VideoWidth() int {
	m, _ := e.Metadata()
	return m.Width
}

// VideoHeight returns the native frame height, or 0 before metadata loaded.
func (e *Element) VideoHeight() int {
	m, _ := e.Metadata()
	return m.Height
}

// Frame returns the current frame of the source.
func (e *Element) Frame(ctx context.Context) (image.Image, error) {
	e.mu.Lock()
	src := e.src
	if src == nil {
		e.mu.Unlock()
		return nil, ErrNoSource
	}
	if e.meta == nil {
		e.mu.Unlock()
		return nil, ErrMetadataNotLoaded
	}
	if img := e.pending; img != nil {
		e.pending = nil
		e.mu.Unlock()
		return img, nil
	}
	e.mu.Unlock()

	return src.ReadFrame(ctx)
}
