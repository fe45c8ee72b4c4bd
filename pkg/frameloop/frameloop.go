// Package frameloop provides a per-frame callback scheduler with
// cancellable handles.
//
// Callbacks requested before a tick run on that tick, one at a time, on the
// scheduler goroutine. Callbacks requested while a tick is being served wait
// for the next one. Ticks that arrive while a callback is still running are
// dropped.
package frameloop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/teslashibe/go-objectcam/internal/log"
)

// DefaultInterval is one frame at 60 Hz.
const DefaultInterval = time.Second / 60

type handleState int

const (
	statePending handleState = iota
	stateRunning
	stateDone
	stateCancelled
)

// Handle identifies one requested callback.
type Handle struct {
	id     uint64
	cb     func(ctx context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	state  handleState
	done   chan struct{}
	owner  *Clock
}

// ID returns the request number, starting at 1.
func (h *Handle) ID() uint64 { return h.id }

// Done is closed once the callback has finished or was cancelled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel prevents a pending callback from running. If the callback is
// running, its context is cancelled and Cancel waits for it to return.
// Cancel on a finished handle does nothing. It must not be called from
// inside the callback itself.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	c := h.owner
	c.mu.Lock()
	switch h.state {
	case statePending:
		h.state = stateCancelled
		h.cancel()
		close(h.done)
		c.mu.Unlock()
	case stateRunning:
		h.cancel()
		c.mu.Unlock()
		<-h.done
	default:
		c.mu.Unlock()
	}
}

// Clock runs requested callbacks on a fixed frame interval.
type Clock struct {
	interval time.Duration
	clk      clock.Clock
	logger   *slog.Logger

	mu      sync.Mutex
	queue   []*Handle
	nextID  uint64
	started bool
	closed  bool

	stop     chan struct{}
	finished chan struct{}
}

// New creates a Clock. A zero interval uses DefaultInterval and a nil clk
// uses the wall clock.
func New(interval time.Duration, clk clock.Clock, logger *slog.Logger) *Clock {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Clock{
		interval: interval,
		clk:      clk,
		logger:   log.Or(logger).With("component", "frameloop"),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Interval returns the frame interval.
func (c *Clock) Interval() time.Duration { return c.interval }

// Start begins ticking. Calling Start more than once is a no-op.
func (c *Clock) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("frameloop: clock closed")
	}
	if c.started {
		return nil
	}
	c.started = true

	// created here so a mock clock sees the ticker before Start returns
	ticker := c.clk.Ticker(c.interval)
	go c.run(ticker)
	return nil
}

// RequestFrame schedules cb for the next tick. On a closed clock the
// returned handle is already cancelled.
func (c *Clock) RequestFrame(cb func(ctx context.Context)) *Handle {
	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	h := &Handle{
		id:     c.nextID,
		cb:     cb,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		owner:  c,
	}
	if c.closed {
		h.state = stateCancelled
		cancel()
		close(h.done)
		return h
	}
	c.queue = append(c.queue, h)
	return h
}

// Pending returns how many callbacks are waiting for a tick.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, h := range c.queue {
		if h.state == statePending {
			n++
		}
	}
	return n
}

// Close cancels pending callbacks, waits for a running one and stops the
// scheduler goroutine.
func (c *Clock) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	for _, h := range c.queue {
		if h.state == statePending {
			h.state = stateCancelled
			h.cancel()
			close(h.done)
		}
	}
	c.queue = nil
	c.mu.Unlock()

	close(c.stop)
	if started {
		<-c.finished
	}
	return nil
}

func (c *Clock) run(ticker *clock.Ticker) {
	defer close(c.finished)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Clock) tick() {
	c.mu.Lock()
	batch := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, h := range batch {
		c.mu.Lock()
		if h.state != statePending {
			c.mu.Unlock()
			continue
		}
		if c.closed {
			h.state = stateCancelled
			h.cancel()
			close(h.done)
			c.mu.Unlock()
			continue
		}
		h.state = stateRunning
		c.mu.Unlock()

		c.invoke(h)

		c.mu.Lock()
		h.state = stateDone
		h.cancel()
		close(h.done)
		c.mu.Unlock()
	}
}

func (c *Clock) invoke(h *Handle) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("frame callback panicked", "handle", h.id, "panic", r)
		}
	}()
	h.cb(h.ctx)
}
