package cpu

import (
	"testing"

	"github.com/spot-ml/spot/internal/tensor"
)

func TestCPUBackend_Conv2D(t *testing.T) {
	backend := newTestBackend()

	t.Run("Identity1x1", func(t *testing.T) {
		input := rawFloat32(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 2, 3, 4})
		kernel := rawFloat32(t, tensor.Shape{1, 1, 1, 1}, []float32{1})

		result := backend.Conv2D(input, kernel, 1, 0)

		expectShape(t, result, tensor.Shape{1, 1, 2, 2})
		if !float32SliceEqual(result.AsFloat32(), input.AsFloat32()) {
			t.Errorf("1x1 identity conv = %v", result.AsFloat32())
		}
	})

	t.Run("Sum3x3", func(t *testing.T) {
		// 4x4 input of ones, 3x3 kernel of ones: every window sums to 9.
		input := rawFloat32(t, tensor.Shape{1, 1, 4, 4}, []float32{
			1, 1, 1, 1,
			1, 1, 1, 1,
			1, 1, 1, 1,
			1, 1, 1, 1,
		})
		kernel := rawFloat32(t, tensor.Shape{1, 1, 3, 3}, []float32{
			1, 1, 1,
			1, 1, 1,
			1, 1, 1,
		})

		result := backend.Conv2D(input, kernel, 1, 0)

		expectShape(t, result, tensor.Shape{1, 1, 2, 2})
		if !float32SliceEqual(result.AsFloat32(), []float32{9, 9, 9, 9}) {
			t.Errorf("3x3 sum conv = %v", result.AsFloat32())
		}
	})

	t.Run("Padding", func(t *testing.T) {
		// With padding 1 the corner window covers only 4 real pixels.
		input := rawFloat32(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 1, 1, 1})
		kernel := rawFloat32(t, tensor.Shape{1, 1, 3, 3}, []float32{
			1, 1, 1,
			1, 1, 1,
			1, 1, 1,
		})

		result := backend.Conv2D(input, kernel, 1, 1)

		expectShape(t, result, tensor.Shape{1, 1, 2, 2})
		if !float32SliceEqual(result.AsFloat32(), []float32{4, 4, 4, 4}) {
			t.Errorf("padded conv = %v", result.AsFloat32())
		}
	})

	t.Run("Stride", func(t *testing.T) {
		input := rawFloat32(t, tensor.Shape{1, 1, 4, 4}, []float32{
			1, 2, 3, 4,
			5, 6, 7, 8,
			9, 10, 11, 12,
			13, 14, 15, 16,
		})
		kernel := rawFloat32(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 0, 0, 0})

		result := backend.Conv2D(input, kernel, 2, 0)

		expectShape(t, result, tensor.Shape{1, 1, 2, 2})
		if !float32SliceEqual(result.AsFloat32(), []float32{1, 3, 9, 11}) {
			t.Errorf("strided conv = %v", result.AsFloat32())
		}
	})

	t.Run("MultiChannel", func(t *testing.T) {
		// Two input channels summed by a kernel of ones, two output
		// channels where the second doubles the first.
		input := rawFloat32(t, tensor.Shape{1, 2, 2, 2}, []float32{
			1, 2, 3, 4,
			10, 20, 30, 40,
		})
		kernel := rawFloat32(t, tensor.Shape{2, 2, 1, 1}, []float32{
			1, 1,
			2, 2,
		})

		result := backend.Conv2D(input, kernel, 1, 0)

		expectShape(t, result, tensor.Shape{1, 2, 2, 2})
		expected := []float32{
			11, 22, 33, 44,
			22, 44, 66, 88,
		}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("multi-channel conv = %v, want %v", result.AsFloat32(), expected)
		}
	})

	t.Run("BatchIndependence", func(t *testing.T) {
		input := rawFloat32(t, tensor.Shape{2, 1, 1, 2}, []float32{
			1, 2,
			100, 200,
		})
		kernel := rawFloat32(t, tensor.Shape{1, 1, 1, 1}, []float32{3})

		result := backend.Conv2D(input, kernel, 1, 0)

		expected := []float32{3, 6, 300, 600}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("batched conv = %v, want %v", result.AsFloat32(), expected)
		}
	})

	t.Run("ChannelMismatch", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for channel mismatch")
			}
		}()
		input := rawFloat32(t, tensor.Shape{1, 2, 2, 2}, make([]float32, 8))
		kernel := rawFloat32(t, tensor.Shape{1, 3, 1, 1}, make([]float32, 3))
		backend.Conv2D(input, kernel, 1, 0)
	})
}

func TestCPUBackend_MaxPool2D(t *testing.T) {
	backend := newTestBackend()

	t.Run("Pool2x2", func(t *testing.T) {
		input := rawFloat32(t, tensor.Shape{1, 1, 4, 4}, []float32{
			1, 2, 5, 6,
			3, 4, 7, 8,
			9, 10, 13, 14,
			11, 12, 15, 16,
		})

		result := backend.MaxPool2D(input, 2, 2)

		expectShape(t, result, tensor.Shape{1, 1, 2, 2})
		if !float32SliceEqual(result.AsFloat32(), []float32{4, 8, 12, 16}) {
			t.Errorf("MaxPool2D = %v", result.AsFloat32())
		}
	})

	t.Run("NegativeValues", func(t *testing.T) {
		input := rawFloat32(t, tensor.Shape{1, 1, 2, 2}, []float32{-5, -2, -9, -3})

		result := backend.MaxPool2D(input, 2, 2)

		if got := result.AsFloat32()[0]; got != -2 {
			t.Errorf("max of negatives = %v, want -2", got)
		}
	})

	t.Run("ChannelsIndependent", func(t *testing.T) {
		input := rawFloat32(t, tensor.Shape{1, 2, 2, 2}, []float32{
			1, 2, 3, 4,
			40, 30, 20, 10,
		})

		result := backend.MaxPool2D(input, 2, 1)

		expectShape(t, result, tensor.Shape{1, 2, 1, 1})
		if !float32SliceEqual(result.AsFloat32(), []float32{4, 40}) {
			t.Errorf("per-channel max = %v", result.AsFloat32())
		}
	})

	t.Run("KernelTooLarge", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic when kernel exceeds input")
			}
		}()
		input := rawFloat32(t, tensor.Shape{1, 1, 2, 2}, make([]float32, 4))
		backend.MaxPool2D(input, 3, 1)
	})
}
