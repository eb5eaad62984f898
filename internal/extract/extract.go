// Package extract runs the hand detector over a single video clip and
// collects one feature vector per frame.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paranroman/bisimo/internal/capture"
	"github.com/paranroman/bisimo/internal/detector"
	"github.com/paranroman/bisimo/internal/features"
	"github.com/paranroman/bisimo/internal/logging"
)

// ClipMetadata summarizes one processed clip.
type ClipMetadata struct {
	VideoPath             string  `json:"video_path"`
	FPS                   float64 `json:"fps"`
	TotalFrames           int     `json:"total_frames"`
	FramesWithHands       int     `json:"frames_with_hands"`
	DetectionRate         float64 `json:"detection_rate"`
	NumFeatures           int     `json:"num_features"`
	CoordinateType        string  `json:"coordinate_type"`
	ScaleNormalized       bool    `json:"scale_normalized"`
	IncludeFingerFeatures bool    `json:"include_finger_features"`
}

// ClipResult holds the per-frame vectors of a clip, in frame order.
type ClipResult struct {
	Landmarks [][]float64
	Metadata  ClipMetadata
}

// OpenFunc opens a frame source for the clip at path.
type OpenFunc func(path string) (capture.Source, error)

// Processor turns clips into ClipResults. It is not safe for concurrent use
// when the underlying detector is not.
type Processor struct {
	detector  detector.Detector
	extractor *features.Extractor
	maxFrames int
	open      OpenFunc
	logger    *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithMaxFrames caps the number of frames read per clip. Zero means no cap.
func WithMaxFrames(n int) Option {
	return func(p *Processor) { p.maxFrames = n }
}

// WithOpener replaces the default video file opener.
func WithOpener(open OpenFunc) Option {
	return func(p *Processor) { p.open = open }
}

// WithLogger sets the logger used for per-frame diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// NewProcessor creates a Processor. The detector stays owned by the caller.
func NewProcessor(det detector.Detector, ext *features.Extractor, opts ...Option) *Processor {
	p := &Processor{
		detector:  det,
		extractor: ext,
		open:      capture.OpenVideoFile,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessClip reads the clip at path and extracts one vector per frame.
//
// The number of frames read is the reported frame count capped by the
// configured maximum; an unknown count reads until the stream ends. A frame
// read failure ends the clip early and keeps what was read. A detector
// failure aborts the clip. On context cancellation the partial result is
// returned together with ctx.Err().
func (p *Processor) ProcessClip(ctx context.Context, path string) (*ClipResult, error) {
	src, err := p.open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open video %s: %w", path, err)
	}
	defer src.Close()

	cfg := p.extractor.Config()
	result := &ClipResult{
		Landmarks: [][]float64{},
		Metadata: ClipMetadata{
			VideoPath:             path,
			FPS:                   src.FPS(),
			NumFeatures:           p.extractor.PerFrame(),
			CoordinateType:        features.CoordinateType,
			ScaleNormalized:       cfg.NormalizeScale,
			IncludeFingerFeatures: cfg.IncludeFingerFeatures,
		},
	}

	limit := frameLimit(src.FrameCount(), p.maxFrames)
	withHands := 0

	for limit < 0 || len(result.Landmarks) < limit {
		if err := ctx.Err(); err != nil {
			finish(result, withHands)
			return result, err
		}

		frame, err := src.ReadFrame()
		if err != nil {
			if !errors.Is(err, capture.ErrEndOfStream) {
				p.logger.Warn("frame read failed, ending clip early",
					slog.String("video", path),
					slog.Int("frame", len(result.Landmarks)),
					logging.Err(err))
			}
			break
		}

		hands, err := p.detector.Detect(frame)
		frame.Close()
		if err != nil {
			return nil, fmt.Errorf("detect frame %d of %s: %w", len(result.Landmarks), path, err)
		}

		left, right := detector.SplitHands(hands)
		if left != nil || right != nil {
			withHands++
		}
		result.Landmarks = append(result.Landmarks, p.extractor.Frame(left, right))
	}

	finish(result, withHands)
	return result, nil
}

// frameLimit returns how many frames to read, or -1 to read to the end.
func frameLimit(reported, maxFrames int) int {
	switch {
	case reported > 0 && maxFrames > 0:
		return min(reported, maxFrames)
	case reported > 0:
		return reported
	case maxFrames > 0:
		return maxFrames
	default:
		return -1
	}
}

func finish(r *ClipResult, withHands int) {
	r.Metadata.TotalFrames = len(r.Landmarks)
	r.Metadata.FramesWithHands = withHands
	r.Metadata.DetectionRate = DetectionRate(withHands, len(r.Landmarks))
}

// DetectionRate is m/n, or 0 when no frames were processed.
func DetectionRate(m, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(m) / float64(n)
}
