package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paranroman/bisimo/internal/capture"
	"github.com/paranroman/bisimo/internal/detector"
	"github.com/paranroman/bisimo/internal/features"
	"github.com/paranroman/bisimo/internal/logging"
)

type recorder struct {
	mu      sync.Mutex
	reports []FrameReport
}

func (r *recorder) Publish(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, v.(FrameReport))
}

func newTestPreview(t *testing.T, src capture.Source, det detector.Detector, pub Publisher) *Preview {
	t.Helper()
	p, err := NewPreview(Config{Source: src, Detector: det, Publisher: pub})
	if err != nil {
		t.Fatalf("NewPreview() error = %v", err)
	}
	return p
}

func TestNewPreview_RequiresSourceAndDetector(t *testing.T) {
	if _, err := NewPreview(Config{Detector: detector.NewMockDetector()}); err == nil {
		t.Error("expected error without a source")
	}
	if _, err := NewPreview(Config{Source: capture.NewMockSource(1, 30)}); err == nil {
		t.Error("expected error without a detector")
	}
}

func TestPreview_ReportsEveryFrame(t *testing.T) {
	src := capture.NewMockSource(4, 30)
	det := detector.NewMockDetector()
	palm := detector.OpenPalmLandmarks()
	det.SetSequence([][]detector.HandLandmarks{
		{palm},
		nil,
		{detector.Mirror(detector.FistLandmarks()), palm},
		{palm},
	})
	pub := &recorder{}

	p := newTestPreview(t, src, det, pub)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(pub.reports) != 4 {
		t.Fatalf("published %d reports, want 4", len(pub.reports))
	}
	if !src.Closed() {
		t.Error("source should be closed after Run")
	}

	first := pub.reports[0]
	if first.Left.Detected || !first.Right.Detected {
		t.Errorf("frame 0 detection = left %v right %v", first.Left.Detected, first.Right.Detected)
	}
	if first.NumFeatures != 154 {
		t.Errorf("NumFeatures = %d, want 154", first.NumFeatures)
	}
	if first.Right.Wrist != palm.Points[detector.Wrist] {
		t.Errorf("Wrist = %+v, want absolute wrist %+v", first.Right.Wrist, palm.Points[detector.Wrist])
	}

	_, facing := features.PalmFacing(&palm)
	if want := features.OrientationLabel(detector.Right, facing); first.Right.Orientation != want {
		t.Errorf("Orientation = %q, want %q", first.Right.Orientation, want)
	}

	wantX := palm.Points[detector.IndexTip].X - palm.Points[detector.Wrist].X
	wantY := palm.Points[detector.IndexTip].Y - palm.Points[detector.Wrist].Y
	if d := first.Right.IndexTip.X - wantX; d > 1e-9 || d < -1e-9 {
		t.Errorf("IndexTip.X = %v, want raw offset %v", first.Right.IndexTip.X, wantX)
	}
	if d := first.Right.IndexTip.Y - wantY; d > 1e-9 || d < -1e-9 {
		t.Errorf("IndexTip.Y = %v, want raw offset %v", first.Right.IndexTip.Y, wantY)
	}

	if pub.reports[1].Left.Detected || pub.reports[1].Right.Detected {
		t.Error("frame 1 should have no hands")
	}
	if !pub.reports[2].Left.Detected || !pub.reports[2].Right.Detected {
		t.Error("frame 2 should have both hands")
	}

	stats := p.Stats()
	if stats.Frames != 4 || stats.FramesWithHands != 3 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestPreview_SkipsFailedFrames(t *testing.T) {
	src := capture.NewMockSource(5, 30)
	src.FailAt(1)
	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	det.SetErrorAt(2, errors.New("service restarted"))
	pub := &recorder{}

	p := newTestPreview(t, src, det, pub)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// 5 frames: one read failure, one detector failure.
	if len(pub.reports) != 3 {
		t.Errorf("published %d reports, want 3", len(pub.reports))
	}
	if p.Stats().Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", p.Stats().Skipped)
	}
}

func TestPreview_OpenError(t *testing.T) {
	src := capture.NewMockSource(3, 30)
	src.SetOpenError(errors.New("no camera"))

	p := newTestPreview(t, src, detector.NewMockDetector(), nil)
	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error when the source cannot open")
	}
}

func TestPreview_StopsOnCancel(t *testing.T) {
	src := capture.NewMockSource(1_000_000, 30)
	det := detector.NewMockDetector()

	p, err := NewPreview(Config{Source: src, Detector: det, FPS: 200})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if src.Reads() >= 1_000_000 {
		t.Error("preview should stop before draining the source")
	}
	if !src.Closed() {
		t.Error("source should be closed after cancellation")
	}
}

func TestPreview_LogsOrientationChanges(t *testing.T) {
	palm := detector.OpenPalmLandmarks()
	flipped := detector.Mirror(palm)
	flipped.Handedness = detector.Right

	src := capture.NewMockSource(3, 30)
	det := detector.NewMockDetector()
	det.SetSequence([][]detector.HandLandmarks{{palm}, {palm}, {flipped}})

	var buf bytes.Buffer
	p, err := NewPreview(Config{
		Source:   src,
		Detector: det,
		Logger:   logging.New(&buf, false, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if n := strings.Count(buf.String(), "orientation changed"); n != 2 {
		t.Errorf("logged %d orientation changes, want 2\n%s", n, buf.String())
	}
}

func TestPreview_SkipsStillFrames(t *testing.T) {
	src := capture.NewMockSource(5, 30)
	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	pub := &recorder{}

	p, err := NewPreview(Config{
		Source:          src,
		Detector:        det,
		Publisher:       pub,
		MotionThreshold: 1,
		IdleTimeout:     time.Nanosecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Identical blank frames: only the first one counts as motion.
	if det.Calls() != 1 {
		t.Errorf("detector calls = %d, want 1", det.Calls())
	}
	if p.Stats().Skipped != 4 {
		t.Errorf("Skipped = %d, want 4", p.Stats().Skipped)
	}
}
