package cpu

import (
	"fmt"
	"testing"

	"github.com/spot-ml/spot/internal/tensor"
)

func TestCPUBackend_MatMul(t *testing.T) {
	backend := newTestBackend()

	t.Run("Known2x3x2", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		b := rawFloat32(t, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})

		result := backend.MatMul(a, b)

		expectShape(t, result, tensor.Shape{2, 2})
		expected := []float32{58, 64, 139, 154}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("MatMul = %v, want %v", result.AsFloat32(), expected)
		}
	})

	t.Run("Identity", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 2}, []float32{3, 1, 4, 1})
		eye := rawFloat32(t, tensor.Shape{2, 2}, []float32{1, 0, 0, 1})

		result := backend.MatMul(a, eye)
		if !float32SliceEqual(result.AsFloat32(), a.AsFloat32()) {
			t.Errorf("A @ I = %v, want %v", result.AsFloat32(), a.AsFloat32())
		}
	})

	t.Run("Float64", func(t *testing.T) {
		a, _ := tensor.NewRaw(tensor.Shape{1, 2}, tensor.Float64, tensor.CPU)
		b, _ := tensor.NewRaw(tensor.Shape{2, 1}, tensor.Float64, tensor.CPU)
		copy(a.AsFloat64(), []float64{1.5, 2.5})
		copy(b.AsFloat64(), []float64{4, 2})

		result := backend.MatMul(a, b)
		if got := result.AsFloat64()[0]; got != 11 {
			t.Errorf("MatMul float64 = %v, want 11", got)
		}
	})

	t.Run("InnerMismatch", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for inner dimension mismatch")
			}
		}()
		a := rawFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))
		b := rawFloat32(t, tensor.Shape{2, 2}, make([]float32, 4))
		backend.MatMul(a, b)
	})

	t.Run("Reject1D", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for 1D input")
			}
		}()
		a := rawFloat32(t, tensor.Shape{3}, make([]float32, 3))
		b := rawFloat32(t, tensor.Shape{3, 2}, make([]float32, 6))
		backend.MatMul(a, b)
	})
}

func TestCPUBackend_BatchMatMul(t *testing.T) {
	backend := newTestBackend()

	t.Run("TwoBatches", func(t *testing.T) {
		// Batch 0 is the known 2x3 @ 3x2 product; batch 1 is all ones.
		a := rawFloat32(t, tensor.Shape{2, 2, 3}, []float32{
			1, 2, 3, 4, 5, 6,
			1, 1, 1, 1, 1, 1,
		})
		b := rawFloat32(t, tensor.Shape{2, 3, 2}, []float32{
			7, 8, 9, 10, 11, 12,
			1, 1, 1, 1, 1, 1,
		})

		result := backend.BatchMatMul(a, b)

		expectShape(t, result, tensor.Shape{2, 2, 2})
		expected := []float32{
			58, 64, 139, 154,
			3, 3, 3, 3,
		}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("BatchMatMul = %v, want %v", result.AsFloat32(), expected)
		}
	})

	t.Run("FourD", func(t *testing.T) {
		// [1, 2, 2, 2] @ [1, 2, 2, 2]: two head matrices under one batch.
		a := rawFloat32(t, tensor.Shape{1, 2, 2, 2}, []float32{
			1, 0, 0, 1,
			2, 0, 0, 2,
		})
		b := rawFloat32(t, tensor.Shape{1, 2, 2, 2}, []float32{
			5, 6, 7, 8,
			5, 6, 7, 8,
		})

		result := backend.BatchMatMul(a, b)

		expectShape(t, result, tensor.Shape{1, 2, 2, 2})
		expected := []float32{
			5, 6, 7, 8,
			10, 12, 14, 16,
		}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("BatchMatMul 4D = %v, want %v", result.AsFloat32(), expected)
		}
	})

	t.Run("BatchMismatch", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for batch dimension mismatch")
			}
		}()
		a := rawFloat32(t, tensor.Shape{2, 2, 2}, make([]float32, 8))
		b := rawFloat32(t, tensor.Shape{3, 2, 2}, make([]float32, 12))
		backend.BatchMatMul(a, b)
	})

	t.Run("Reject2D", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for 2D input")
			}
		}()
		a := rawFloat32(t, tensor.Shape{2, 2}, make([]float32, 4))
		b := rawFloat32(t, tensor.Shape{2, 2}, make([]float32, 4))
		backend.BatchMatMul(a, b)
	})
}

// benchRawFloat32 builds a deterministic float32 RawTensor for benchmarks.
func benchRawFloat32(b *testing.B, shape tensor.Shape) *tensor.RawTensor {
	b.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		b.Fatalf("NewRaw(%v): %v", shape, err)
	}
	data := raw.AsFloat32()
	for i := range data {
		data[i] = float32(i%13) * 0.25
	}
	return raw
}

func BenchmarkCPUBackend_MatMul(b *testing.B) {
	backend := newTestBackend()
	sizes := []int{64, 256, 512}

	for _, size := range sizes {
		x := benchRawFloat32(b, tensor.Shape{size, size})
		y := benchRawFloat32(b, tensor.Shape{size, size})

		b.Run(fmt.Sprintf("%dx%d", size, size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = backend.MatMul(x, y)
			}
		})
	}
}

// BenchmarkCPUBackend_BatchMatMul runs the attention score shape: 2 images,
// 8 heads, 400 tokens, 32-wide head subspace.
func BenchmarkCPUBackend_BatchMatMul(b *testing.B) {
	backend := newTestBackend()

	q := benchRawFloat32(b, tensor.Shape{2, 8, 400, 32})
	k := benchRawFloat32(b, tensor.Shape{2, 8, 32, 400})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = backend.BatchMatMul(q, k)
	}
}
