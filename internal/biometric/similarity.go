package biometric

import (
	"errors"
	"math"
)

var (
	// ErrDegenerateVector is returned when either vector has zero norm.
	ErrDegenerateVector = errors.New("degenerate vector: zero norm")
	// ErrDimensionMismatch is returned for empty vectors or vectors of different length.
	ErrDimensionMismatch = errors.New("vector dimensions do not match")
)

// Cosine returns the cosine similarity of a and b, clamped to [-1, 1].
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, ErrDimensionMismatch
	}

	// Components are divided by each vector's largest magnitude so the sums
	// stay finite for any finite input.
	sa, sb := maxAbs(a), maxAbs(b)
	if sa == 0 || sb == 0 {
		return 0, ErrDegenerateVector
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := a[i]/sa, b[i]/sb
		dot += x * y
		normA += x * x
		normB += y * y
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		// non-finite components
		return 0, ErrDegenerateVector
	}
	// rounding can push identical vectors slightly past 1
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim, nil
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		if ax := math.Abs(x); ax > m || math.IsNaN(x) {
			m = ax
		}
	}
	return m
}
