package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back blank frames for testing.
type MockSource struct {
	frames   int
	reported int
	fps      float64
	failAt   int
	openErr  error

	mu      sync.Mutex
	index   int
	running bool
	closed  bool
}

// NewMockSource returns a source with n readable frames that reports n as
// its frame count.
func NewMockSource(n int, fps float64) *MockSource {
	return &MockSource{frames: n, reported: n, fps: fps, failAt: -1}
}

// SetReportedCount overrides the frame count the source advertises.
func (m *MockSource) SetReportedCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reported = n
}

// FailAt makes the read of frame i return an error.
func (m *MockSource) FailAt(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAt = i
}

// SetOpenError makes Open fail with err.
func (m *MockSource) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

func (m *MockSource) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return m.openErr
	}
	m.running = true
	m.closed = false
	m.index = 0
	return nil
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.closed = true
	return nil
}

func (m *MockSource) ReadFrame() (*gocv.Mat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil, ErrSourceNotOpen
	}
	if m.index == m.failAt {
		m.index++
		return nil, errors.New("decode error")
	}
	if m.index >= m.frames {
		return nil, ErrEndOfStream
	}
	m.index++

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 48, 64, gocv.MatTypeCV8UC3)
	return &frame, nil
}

func (m *MockSource) FPS() float64   { return m.fps }
func (m *MockSource) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reported
}

func (m *MockSource) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Reads reports how many frames have been consumed.
func (m *MockSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Closed reports whether Close was called after the last Open.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
