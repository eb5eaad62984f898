// Package features turns detected hand landmarks into the fixed-length
// numeric vectors stored in the training dataset.
package features

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/paranroman/bisimo/internal/detector"
)

// Block sizes of a per-hand vector, in output order.
const (
	RelativeCoords = (detector.NumLandmarks - 1) * 3 // 60
	ScaleFeatures  = 1
	WristFeatures  = 2
	PalmFeatures   = 5 // normal xyz, facing, openness
	FingerFeatures = 9 // 5 extensions, 4 spreads
)

// CoordinateType describes the coordinate frame of the relative block.
const CoordinateType = "relative_to_wrist"

// MinScale is the lower bound applied to the wrist to middle-MCP distance.
const MinScale = 0.001

// Config selects the optional parts of the feature vector.
type Config struct {
	// NormalizeScale divides the relative coordinates by the hand scale.
	NormalizeScale bool

	// IncludeFingerFeatures appends the 9-value finger shape block.
	IncludeFingerFeatures bool
}

// DefaultConfig enables scale normalization and finger features.
func DefaultConfig() Config {
	return Config{
		NormalizeScale:        true,
		IncludeFingerFeatures: true,
	}
}

// Extractor computes per-hand and per-frame feature vectors. It holds no
// mutable state and is safe for concurrent use.
type Extractor struct {
	config  Config
	perHand int
}

// New creates an Extractor for the given configuration.
func New(config Config) *Extractor {
	n := RelativeCoords + ScaleFeatures + WristFeatures + PalmFeatures
	if config.IncludeFingerFeatures {
		n += FingerFeatures
	}
	return &Extractor{config: config, perHand: n}
}

// Config returns the configuration the extractor was built with.
func (e *Extractor) Config() Config {
	return e.config
}

// PerHand is the length of one hand vector: 77, or 68 without finger features.
func (e *Extractor) PerHand() int {
	return e.perHand
}

// PerFrame is the length of one frame vector (left hand then right hand).
func (e *Extractor) PerFrame() int {
	return 2 * e.perHand
}

// Hand returns the feature vector for one hand. A nil hand yields zeros.
func (e *Extractor) Hand(h *detector.HandLandmarks) []float64 {
	out := make([]float64, e.perHand)
	if h == nil {
		return out
	}
	e.fill(out, h)
	return out
}

// Frame returns the left-hand vector followed by the right-hand vector.
// Either hand may be nil.
func (e *Extractor) Frame(left, right *detector.HandLandmarks) []float64 {
	out := make([]float64, e.PerFrame())
	if left != nil {
		e.fill(out[:e.perHand], left)
	}
	if right != nil {
		e.fill(out[e.perHand:], right)
	}
	return out
}

func (e *Extractor) fill(out []float64, h *detector.HandLandmarks) {
	wrist := h.Points[detector.Wrist].Vec()
	raw := RawScale(h)
	scale := max(raw, MinScale)

	i := 0
	for j := 1; j < detector.NumLandmarks; j++ {
		rel := r3.Sub(h.Points[j].Vec(), wrist)
		if e.config.NormalizeScale {
			rel = r3.Scale(1/scale, rel)
		}
		out[i], out[i+1], out[i+2] = rel.X, rel.Y, rel.Z
		i += 3
	}

	out[i] = scale
	i++

	out[i], out[i+1] = wrist.X, wrist.Y
	i += 2

	normal, facing := PalmFacing(h)
	out[i], out[i+1], out[i+2] = normal.X, normal.Y, normal.Z
	out[i+3] = facing
	out[i+4] = Openness(h)
	i += PalmFeatures

	if !e.config.IncludeFingerFeatures {
		return
	}

	ext := FingerExtensions(h)
	copy(out[i:], ext[:])
	i += len(ext)

	spreads := FingerSpreads(h)
	copy(out[i:], spreads[:])
}

// RawScale is the unclamped wrist to middle-MCP distance.
func RawScale(h *detector.HandLandmarks) float64 {
	return r3.Norm(r3.Sub(h.Points[detector.MiddleMCP].Vec(), h.Points[detector.Wrist].Vec()))
}
