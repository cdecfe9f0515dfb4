package matcher

import "math"

// EuclideanDistance returns sqrt(Σ (a[i]-b[i])²), accumulated in float64.
// Callers must check that a and b have the same length.
func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
