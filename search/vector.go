package search

import "math"

// NormalizeVector normalizes a vector to unit L2 norm.
// Returns a new vector and true, or nil and false for a zero-norm input,
// which cannot be normalized.
func NormalizeVector(v []float32) ([]float32, bool) {
	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	if magnitude == 0 {
		return nil, false
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result, true
}

// dotProduct calculates the dot product of two equal-length vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// clipUnit clips a similarity into the [0, 1] range.
func clipUnit(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
