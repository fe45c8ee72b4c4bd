package objectcam

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/teslashibe/go-objectcam/pkg/detection"
	"github.com/teslashibe/go-objectcam/pkg/render"
)

// schedule requests the next iteration for sess. Caller holds c.mu.
func (c *Component) schedule(sess *Session) {
	c.handle = c.clock.RequestFrame(func(ctx context.Context) {
		c.detectFrame(ctx, sess)
	})
}

// detectFrame is one loop iteration. It runs on the frame clock goroutine.
func (c *Component) detectFrame(ctx context.Context, sess *Session) {
	c.mu.Lock()
	if !c.started || c.session != sess {
		c.mu.Unlock()
		return
	}
	det := c.detector
	if det == nil {
		// idle until the model arrives
		c.handle = nil
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	start := time.Now()
	err := c.iterate(ctx, sess, det)
	elapsed := time.Since(start)

	c.mu.Lock()
	c.stats.Iterations++
	if err != nil {
		c.stats.Failures++
		c.stats.LastError = err.Error()
	} else {
		c.stats.LastInference = elapsed
	}
	if c.started && c.session == sess && ctx.Err() == nil {
		c.schedule(sess)
	}
	c.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		c.logger.Warn("detection iteration failed", "session", sess.ID, "error", err)
	}
}

// iterate reads, detects and renders one frame. A panic in any step is
// returned as the iteration's error.
func (c *Component) iterate(ctx context.Context, sess *Session, det detection.Detector) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	frame, err := c.video.Frame(ctx)
	if err != nil {
		return fmt.Errorf("read frame: %w", err)
	}

	result, err := det.Detect(ctx, frame)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}

	c.mu.Lock()
	if c.session == sess {
		c.predictions = result
	}
	c.mu.Unlock()

	render.DrawFrame(sess.canvas, frame, result, c.style)

	if c.onFrame != nil {
		if snap, ok := sess.canvas.(interface{ Image() *image.RGBA }); ok {
			c.onFrame(snap.Image())
		}
	}
	return nil
}
