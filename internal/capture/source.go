// Package capture reads frames from video files and cameras through GoCV.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrSourceNotOpen is returned when reading from a source that is not open.
	ErrSourceNotOpen = errors.New("source is not open")

	// ErrEndOfStream is returned once a source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
)

// Source is a sequential supplier of video frames.
type Source interface {
	Open() error
	Close() error

	// ReadFrame returns the next frame. The caller closes the returned Mat.
	ReadFrame() (*gocv.Mat, error)

	// FPS is the nominal frame rate reported by the container or device.
	FPS() float64

	// FrameCount is the reported number of frames, or 0 when unknown.
	FrameCount() int

	IsOpen() bool
}

// videoSource wraps gocv.VideoCapture for both files and devices.
type videoSource struct {
	device  any // file path or camera index
	camera  bool
	capture *gocv.VideoCapture
	mu      sync.Mutex
	open    bool
}

// NewVideoFile returns a Source that decodes the clip at path.
func NewVideoFile(path string) Source {
	return &videoSource{device: path}
}

// NewCamera returns a Source for a local capture device.
func NewCamera(deviceID int) Source {
	return &videoSource{device: deviceID, camera: true}
}

// OpenVideoFile creates and opens a file source in one step.
func OpenVideoFile(path string) (Source, error) {
	src := NewVideoFile(path)
	if err := src.Open(); err != nil {
		return nil, err
	}
	return src, nil
}

func (s *videoSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(s.device)
	if err != nil {
		return fmt.Errorf("open %v: %w", s.device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open %v: capture not opened", s.device)
	}

	if s.camera {
		capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	}

	s.capture = capture
	s.open = true

	return nil
}

func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open || s.capture == nil {
		s.open = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.open = false

	return err
}

func (s *videoSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open || s.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if s.camera {
			return nil, errors.New("failed to read frame from camera")
		}
		return nil, ErrEndOfStream
	}

	return &mat, nil
}

func (s *videoSource) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return 0
	}
	return s.capture.Get(gocv.VideoCaptureFPS)
}

func (s *videoSource) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil || s.camera {
		return 0
	}
	n := int(s.capture.Get(gocv.VideoCaptureFrameCount))
	if n < 0 {
		return 0
	}
	return n
}

func (s *videoSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.open
}
