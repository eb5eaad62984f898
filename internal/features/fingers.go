package features

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/paranroman/bisimo/internal/detector"
)

// FingerExtensions scores each finger from 0 (fully bent) to 1 (straight),
// thumb first.
func FingerExtensions(h *detector.HandLandmarks) [5]float64 {
	var out [5]float64
	if h == nil {
		return out
	}
	for f, chain := range detector.FingerJoints {
		base := h.Points[chain[0]].Vec()
		pip := h.Points[chain[1]].Vec()
		dip := h.Points[chain[2]].Vec()
		tip := h.Points[chain[3]].Vec()

		v1 := r3.Sub(pip, base)
		v2 := r3.Sub(dip, pip)
		v3 := r3.Sub(tip, dip)

		avg := (angleBetween(v1, v2) + angleBetween(v2, v3)) / 2
		out[f] = 1 - avg/math.Pi
	}
	return out
}

// FingerSpreads returns the distances between adjacent fingertips divided
// by the hand scale. A degenerate hand yields zeros.
func FingerSpreads(h *detector.HandLandmarks) [4]float64 {
	var out [4]float64
	if h == nil {
		return out
	}
	scale := RawScale(h)
	if scale < MinScale {
		return out
	}
	tips := detector.Fingertips
	for i := 0; i < len(tips)-1; i++ {
		out[i] = r3.Norm(r3.Sub(h.Points[tips[i]].Vec(), h.Points[tips[i+1]].Vec())) / scale
	}
	return out
}

func angleBetween(a, b r3.Vec) float64 {
	cos := r3.Dot(a, b) / (r3.Norm(a)*r3.Norm(b) + 1e-8)
	return math.Acos(clamp(cos, -1, 1))
}
