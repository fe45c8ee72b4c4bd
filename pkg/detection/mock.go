package detection

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
)

// Mock implements Detector for testing. It tracks how many Detect calls run
// at the same time.
type Mock struct {
	// DetectFunc is called when Detect is invoked. n is the 1-based call number.
	DetectFunc func(ctx context.Context, frame image.Image, n int) (Result, error)

	// Result is returned when DetectFunc is nil.
	Result Result

	calls       atomic.Int64
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	closed      atomic.Bool
}

// NewMock returns a mock that always reports result.
func NewMock(result Result) *Mock {
	return &Mock{Result: result}
}

// Detect records the call and returns DetectFunc's or the fixed result.
func (m *Mock) Detect(ctx context.Context, frame image.Image) (Result, error) {
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		prev := m.maxInFlight.Load()
		if cur <= prev || m.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	n := int(m.calls.Add(1))

	if m.closed.Load() {
		return nil, ErrClosed
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, frame, n)
	}
	return m.Result.Clone(), nil
}

// Calls returns the number of Detect calls.
func (m *Mock) Calls() int { return int(m.calls.Load()) }

// MaxConcurrent returns the highest number of overlapping Detect calls seen.
func (m *Mock) MaxConcurrent() int { return int(m.maxInFlight.Load()) }

// Closed reports whether Close was called.
func (m *Mock) Closed() bool { return m.closed.Load() }

// Backend returns "mock".
func (m *Mock) Backend() string { return "mock" }

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.closed.Store(true)
	return nil
}

// MockLoader implements Loader for testing. When Gate is set, Load blocks
// until it is closed (or ctx is done), which lets tests hold the model in
// the "loading" state.
type MockLoader struct {
	Detector Detector
	Err      error
	Gate     chan struct{}

	mu    sync.Mutex
	loads int
}

// Load returns Detector or Err once Gate opens.
func (l *MockLoader) Load(ctx context.Context) (Detector, error) {
	l.mu.Lock()
	l.loads++
	l.mu.Unlock()

	if l.Gate != nil {
		select {
		case <-l.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Detector, nil
}

// Loads returns how many times Load was called.
func (l *MockLoader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

var (
	_ Detector = (*Mock)(nil)
	_ Loader   = (*MockLoader)(nil)
)
