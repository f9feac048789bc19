package nn

import (
	"math"
	"testing"

	"github.com/spot-ml/spot/internal/backend/cpu"
	"github.com/spot-ml/spot/internal/tensor"
)

// TestLayerNorm_NormalizesLastDim checks that each feature row comes out
// with zero mean and unit variance before gamma/beta.
func TestLayerNorm_NormalizesLastDim(t *testing.T) {
	backend := cpu.New()
	ln := NewLayerNorm(4, 1e-5, backend)

	input, err := tensor.FromSlice(
		[]float32{1, 2, 3, 4, 10, 20, 30, 40},
		tensor.Shape{2, 4}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	output := ln.Forward(input)

	if !output.Shape().Equal(tensor.Shape{2, 4}) {
		t.Fatalf("Expected shape [2 4], got %v", output.Shape())
	}

	data := output.Data()
	for row := 0; row < 2; row++ {
		var sum, sumSq float64
		for col := 0; col < 4; col++ {
			v := float64(data[row*4+col])
			sum += v
			sumSq += v * v
		}
		mean := sum / 4
		variance := sumSq/4 - mean*mean
		if math.Abs(mean) > 1e-5 {
			t.Errorf("Row %d mean = %v, want ~0", row, mean)
		}
		if math.Abs(variance-1.0) > 1e-3 {
			t.Errorf("Row %d variance = %v, want ~1", row, variance)
		}
	}
}

// TestLayerNorm_GammaBetaApplied verifies scale and shift after
// normalization.
func TestLayerNorm_GammaBetaApplied(t *testing.T) {
	backend := cpu.New()
	ln := NewLayerNorm(2, 1e-5, backend)

	copy(ln.Gamma.Tensor().Data(), []float32{2, 2})
	copy(ln.Beta.Tensor().Data(), []float32{5, 5})

	input, err := tensor.FromSlice([]float32{-1, 1}, tensor.Shape{1, 2}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	output := ln.Forward(input)
	data := output.Data()

	// Normalized values are close to -1 and 1, so outputs are ~3 and ~7.
	if math.Abs(float64(data[0])-3.0) > 1e-2 {
		t.Errorf("Expected ~3, got %v", data[0])
	}
	if math.Abs(float64(data[1])-7.0) > 1e-2 {
		t.Errorf("Expected ~7, got %v", data[1])
	}
}

// TestLayerNorm_SequenceShape runs the 3D sequence layout through.
func TestLayerNorm_SequenceShape(t *testing.T) {
	backend := cpu.New()
	ln := NewLayerNorm(16, 1e-5, backend)

	input := tensor.Randn[float32](tensor.Shape{7, 2, 16}, backend)
	output := ln.Forward(input)

	if !output.Shape().Equal(tensor.Shape{7, 2, 16}) {
		t.Errorf("Expected shape [7 2 16], got %v", output.Shape())
	}

	for i, v := range output.Data() {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("Output contains NaN/Inf at index %d", i)
		}
	}
}

// TestLayerNorm_ConstantInput exercises the epsilon guard: zero variance
// must not divide by zero.
func TestLayerNorm_ConstantInput(t *testing.T) {
	backend := cpu.New()
	ln := NewLayerNorm(4, 1e-5, backend)

	input := tensor.Full[float32](tensor.Shape{3, 4}, 2.5, backend)
	output := ln.Forward(input)

	for i, v := range output.Data() {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("Output contains NaN/Inf at index %d", i)
		}
		// Centered value is 0, so the output is beta (= 0).
		if math.Abs(float64(v)) > 1e-5 {
			t.Errorf("Expected ~0 at index %d, got %v", i, v)
		}
	}
}

func TestLayerNorm_Parameters(t *testing.T) {
	backend := cpu.New()
	ln := NewLayerNorm(8, 1e-5, backend)

	params := ln.Parameters()
	if len(params) != 2 {
		t.Fatalf("Expected 2 parameters, got %d", len(params))
	}
	if params[0].Name() != "gamma" || params[1].Name() != "beta" {
		t.Errorf("Unexpected parameter names: %s, %s", params[0].Name(), params[1].Name())
	}
}
