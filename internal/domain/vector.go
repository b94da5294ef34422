package domain

import (
	"fmt"
	"math"
)

// CosineDistance returns 1 - cos(a, b), in [0, 2].
// A zero vector is treated as orthogonal to everything (distance 1).
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Similarity converts a cosine distance to a similarity in [-1, 1].
func Similarity(distance float64) float64 {
	return 1 - distance
}

// CheckDimensions validates that vec is non-empty and has exactly dims components.
// dims <= 0 accepts any non-empty vector.
func CheckDimensions(vec []float32, dims int) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding: %w", ErrVectorDimMismatch)
	}
	if dims > 0 && len(vec) != dims {
		return fmt.Errorf("got %d, want %d: %w", len(vec), dims, ErrVectorDimMismatch)
	}
	return nil
}
