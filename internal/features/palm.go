package features

import (
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/paranroman/bisimo/internal/detector"
)

// Orientation labels shown by the live preview.
const (
	OrientationPalm = "PALM"
	OrientationBack = "BACK"
	OrientationSide = "SIDE"
)

const facingThreshold = 0.2

// PalmFacing returns the unit palm normal and the facing score (-normal.z).
// A degenerate palm yields the zero vector and a score of 0.
func PalmFacing(h *detector.HandLandmarks) (r3.Vec, float64) {
	if h == nil {
		return r3.Vec{}, 0
	}
	wrist := h.Points[detector.Wrist].Vec()
	along := r3.Sub(h.Points[detector.MiddleMCP].Vec(), wrist)
	across := r3.Sub(h.Points[detector.PinkyMCP].Vec(), h.Points[detector.IndexMCP].Vec())

	normal := r3.Cross(along, across)
	if n := r3.Norm(normal); n > 0 {
		normal = r3.Scale(1/n, normal)
	}
	return normal, -normal.Z
}

// Openness maps the mean wrist to fingertip distance, in hand-scale units,
// onto [0, 1] where 1.0 reads as closed and 3.0 as fully open.
func Openness(h *detector.HandLandmarks) float64 {
	if h == nil {
		return 0
	}
	scale := RawScale(h)
	if scale < MinScale {
		return 0
	}

	wrist := h.Points[detector.Wrist].Vec()
	dists := make([]float64, len(detector.Fingertips))
	for i, tip := range detector.Fingertips {
		dists[i] = r3.Norm(r3.Sub(h.Points[tip].Vec(), wrist)) / scale
	}

	return clamp((stat.Mean(dists, nil)-1)/2, 0, 1)
}

// OrientationLabel converts a facing score into PALM, BACK or SIDE. The
// detector reports the left hand mirrored, so its sign is flipped.
func OrientationLabel(handedness string, facing float64) string {
	if handedness == detector.Left {
		facing = -facing
	}
	switch {
	case facing > facingThreshold:
		return OrientationPalm
	case facing < -facingThreshold:
		return OrientationBack
	default:
		return OrientationSide
	}
}

func clamp(v, lo, hi float64) float64 {
	return min(hi, max(lo, v))
}
