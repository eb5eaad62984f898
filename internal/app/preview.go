// Package app runs the live preview: camera frames go through the landmark
// detector and the feature extractor, and a per-frame report is logged and
// published to the landmark feed.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/paranroman/bisimo/internal/capture"
	"github.com/paranroman/bisimo/internal/detector"
	"github.com/paranroman/bisimo/internal/features"
	"github.com/paranroman/bisimo/internal/logging"
)

// Preview timing defaults.
const (
	// DefaultIdleTimeout is how long the picture must stay still before
	// detection pauses.
	DefaultIdleTimeout = 2 * time.Second
	// MaxReadFailures ends the preview after this many consecutive failed
	// reads.
	MaxReadFailures = 30
)

// Publisher receives every frame report.
type Publisher interface {
	Publish(v any)
}

// Config holds the preview dependencies and options.
type Config struct {
	Source    capture.Source
	Detector  detector.Detector
	Extractor *features.Extractor
	Publisher Publisher
	Logger    *slog.Logger

	// FPS paces the loop. Zero reads as fast as the source delivers.
	FPS float64

	// MotionThreshold enables skipping detection while the picture is
	// still: the percentage of changed pixels that counts as motion.
	MotionThreshold float64
	IdleTimeout     time.Duration
}

// HandReport summarizes one hand in a frame.
type HandReport struct {
	Detected    bool             `json:"detected"`
	Wrist       detector.Point3D `json:"wrist"`
	IndexTip    detector.Point3D `json:"index_tip"` // raw offset from the wrist
	Facing      float64          `json:"facing"`
	Orientation string           `json:"orientation,omitempty"`
}

// FrameReport is what the preview produces for each processed frame.
type FrameReport struct {
	Frame       int                      `json:"frame"`
	Timestamp   int64                    `json:"timestamp"`
	Left        HandReport               `json:"left"`
	Right       HandReport               `json:"right"`
	NumFeatures int                      `json:"num_features"`
	Hands       []detector.HandLandmarks `json:"hands"`
}

// Stats counts what a preview run processed.
type Stats struct {
	Frames          int
	FramesWithHands int
	Skipped         int
}

// Preview is the live landmark preview loop.
type Preview struct {
	config Config
	logger *slog.Logger
	motion *capture.MotionMeter

	lastMotion  time.Time
	orientation map[string]string
	stats       Stats
}

// NewPreview validates config and creates a Preview.
func NewPreview(config Config) (*Preview, error) {
	if config.Source == nil || config.Detector == nil {
		return nil, errors.New("preview needs a source and a detector")
	}
	if config.Extractor == nil {
		config.Extractor = features.New(features.DefaultConfig())
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}

	p := &Preview{
		config:      config,
		logger:      config.Logger,
		orientation: make(map[string]string),
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if config.MotionThreshold > 0 {
		p.motion = capture.NewMotionMeter(config.MotionThreshold)
	}
	return p, nil
}

// Stats returns the counters of the last run.
func (p *Preview) Stats() Stats {
	return p.stats
}

// Run opens the source and processes frames until ctx is cancelled or the
// source ends. Per-frame read and detection errors are logged and skipped.
func (p *Preview) Run(ctx context.Context) error {
	src := p.config.Source
	if !src.IsOpen() {
		if err := src.Open(); err != nil {
			return fmt.Errorf("open source: %w", err)
		}
	}
	defer src.Close()
	if p.motion != nil {
		defer p.motion.Close()
	}

	var tick <-chan time.Time
	if p.config.FPS > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / p.config.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	p.logger.InfoContext(ctx, "preview started",
		slog.Int("features_per_frame", p.config.Extractor.PerFrame()),
		slog.Bool("skip_still", p.motion != nil),
	)

	failures := 0
	for index := 0; ; index++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return p.stop(ctx)
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return p.stop(ctx)
		}

		frame, err := src.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			return p.stop(ctx)
		}
		if err != nil {
			failures++
			p.logger.WarnContext(ctx, "read frame failed", slog.Int("frame", index), logging.Err(err))
			if failures >= MaxReadFailures {
				return fmt.Errorf("preview: %d consecutive read failures: %w", failures, err)
			}
			continue
		}
		failures = 0

		report, ok := p.process(ctx, frame, index)
		frame.Close()
		if !ok {
			p.stats.Skipped++
			continue
		}

		p.stats.Frames++
		if report.Left.Detected || report.Right.Detected {
			p.stats.FramesWithHands++
		}
		if p.config.Publisher != nil {
			p.config.Publisher.Publish(report)
		}
	}
}

func (p *Preview) stop(ctx context.Context) error {
	p.logger.InfoContext(ctx, "preview stopped",
		slog.Int("frames", p.stats.Frames),
		slog.Int("frames_with_hands", p.stats.FramesWithHands),
		slog.Int("skipped", p.stats.Skipped),
	)
	return nil
}

// process runs detection on one frame. It reports false when the frame was
// skipped for stillness or a detector error.
func (p *Preview) process(ctx context.Context, frame *gocv.Mat, index int) (FrameReport, bool) {
	if p.motion != nil {
		now := time.Now()
		if moving, _ := p.motion.Measure(frame); moving {
			p.lastMotion = now
		} else if now.Sub(p.lastMotion) > p.config.IdleTimeout {
			return FrameReport{}, false
		}
	}

	hands, err := p.config.Detector.Detect(frame)
	if err != nil {
		p.logger.WarnContext(ctx, "detect hands failed", slog.Int("frame", index), logging.Err(err))
		return FrameReport{}, false
	}

	left, right := detector.SplitHands(hands)
	report := FrameReport{
		Frame:       index,
		Timestamp:   time.Now().UnixMilli(),
		Left:        p.describe(ctx, detector.Left, left),
		Right:       p.describe(ctx, detector.Right, right),
		NumFeatures: len(p.config.Extractor.Frame(left, right)),
		Hands:       hands,
	}
	return report, true
}

// describe builds the report of one hand and logs orientation changes.
func (p *Preview) describe(ctx context.Context, side string, h *detector.HandLandmarks) HandReport {
	if h == nil {
		delete(p.orientation, side)
		return HandReport{}
	}

	wrist, tip := h.Points[detector.Wrist], h.Points[detector.IndexTip]
	_, facing := features.PalmFacing(h)
	r := HandReport{
		Detected: true,
		Wrist:    wrist,
		IndexTip: detector.Point3D{
			X: tip.X - wrist.X,
			Y: tip.Y - wrist.Y,
			Z: tip.Z - wrist.Z,
		},
		Facing:      facing,
		Orientation: features.OrientationLabel(side, facing),
	}

	if prev := p.orientation[side]; prev != r.Orientation {
		p.logger.InfoContext(ctx, "orientation changed",
			slog.String("hand", side),
			slog.String("from", prev),
			slog.String("to", r.Orientation),
			slog.Float64("facing", facing),
		)
		p.orientation[side] = r.Orientation
	}
	return r
}
