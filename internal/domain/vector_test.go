package domain

import (
	"errors"
	"math"
	"testing"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineDistance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckDimensions(t *testing.T) {
	if err := CheckDimensions([]float32{1, 2}, 2); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckDimensions(nil, 2); !errors.Is(err, ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch for empty, got %v", err)
	}
	if err := CheckDimensions([]float32{1}, 384); !errors.Is(err, ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
	if err := CheckDimensions([]float32{1}, 0); err != nil {
		t.Errorf("dims 0 should accept any non-empty vector, got %v", err)
	}
}
