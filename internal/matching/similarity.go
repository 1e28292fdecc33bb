package matching

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity returns the cosine of the angle between a and b in [-1, 1].
// Empty, zero or differently sized vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	x := toFloat64(a)
	y := toFloat64(b)

	normX := floats.Norm(x, 2)
	normY := floats.Norm(y, 2)
	if normX == 0 || normY == 0 || math.IsNaN(normX) || math.IsNaN(normY) {
		return 0
	}

	sim := floats.Dot(x, y) / (normX * normY)
	return math.Max(-1, math.Min(1, sim))
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
