package cpu

import (
	"testing"

	"github.com/spot-ml/spot/internal/tensor"
)

func newTestBackend() *CPUBackend {
	return New()
}

// rawFloat32 builds a float32 RawTensor from literal data.
func rawFloat32(t *testing.T, shape tensor.Shape, data []float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v): %v", shape, err)
	}
	if len(data) != raw.NumElements() {
		t.Fatalf("data length %d does not match shape %v", len(data), shape)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

// rawBool builds a bool RawTensor from literal data.
func rawBool(t *testing.T, shape tensor.Shape, data []bool) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Bool, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v): %v", shape, err)
	}
	copy(raw.AsBool(), data)
	return raw
}

func float32SliceEqual(a, b []float32) bool {
	const epsilon = 1e-5
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > epsilon {
			return false
		}
	}
	return true
}

func expectShape(t *testing.T, got *tensor.RawTensor, want tensor.Shape) {
	t.Helper()
	if !got.Shape().Equal(want) {
		t.Fatalf("shape = %v, want %v", got.Shape(), want)
	}
}

func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend == nil {
		t.Fatal("New() returned nil")
	}
	if backend.Name() != "CPU" {
		t.Errorf("Name() = %q, want %q", backend.Name(), "CPU")
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want CPU", backend.Device())
	}
}

func TestCPUBackend_Add(t *testing.T) {
	backend := newTestBackend()

	t.Run("SameShape", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		b := rawFloat32(t, tensor.Shape{2, 3}, []float32{10, 11, 12, 13, 14, 15})

		result := backend.Add(a, b)

		expected := []float32{11, 13, 15, 17, 19, 21}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Add = %v, want %v", result.AsFloat32(), expected)
		}
	})

	t.Run("InputsPreserved", func(t *testing.T) {
		// Residual connections read an operand again after adding it, so
		// Add must never write through its inputs.
		a := rawFloat32(t, tensor.Shape{3}, []float32{1, 2, 3})
		b := rawFloat32(t, tensor.Shape{3}, []float32{10, 20, 30})

		result := backend.Add(a, b)

		if result == a || result == b {
			t.Fatal("Add returned an input tensor")
		}
		if !float32SliceEqual(a.AsFloat32(), []float32{1, 2, 3}) {
			t.Errorf("input a mutated: %v", a.AsFloat32())
		}
		if !float32SliceEqual(b.AsFloat32(), []float32{10, 20, 30}) {
			t.Errorf("input b mutated: %v", b.AsFloat32())
		}
	})

	t.Run("BroadcastRow", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		b := rawFloat32(t, tensor.Shape{3}, []float32{10, 20, 30})

		result := backend.Add(a, b)

		expectShape(t, result, tensor.Shape{2, 3})
		expected := []float32{11, 22, 33, 14, 25, 36}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Add broadcast = %v, want %v", result.AsFloat32(), expected)
		}
	})

	t.Run("BroadcastColumn", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 1}, []float32{100, 200})
		b := rawFloat32(t, tensor.Shape{1, 3}, []float32{1, 2, 3})

		result := backend.Add(a, b)

		expectShape(t, result, tensor.Shape{2, 3})
		expected := []float32{101, 102, 103, 201, 202, 203}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Add broadcast = %v, want %v", result.AsFloat32(), expected)
		}
	})

	t.Run("IncompatibleShapes", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for incompatible shapes")
			}
		}()
		a := rawFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))
		b := rawFloat32(t, tensor.Shape{2, 4}, make([]float32, 8))
		backend.Add(a, b)
	})
}

func TestCPUBackend_SubMulDiv(t *testing.T) {
	backend := newTestBackend()

	a := rawFloat32(t, tensor.Shape{4}, []float32{10, 20, 30, 40})
	b := rawFloat32(t, tensor.Shape{4}, []float32{2, 4, 5, 8})

	sub := backend.Sub(a, b)
	if !float32SliceEqual(sub.AsFloat32(), []float32{8, 16, 25, 32}) {
		t.Errorf("Sub = %v", sub.AsFloat32())
	}

	mul := backend.Mul(a, b)
	if !float32SliceEqual(mul.AsFloat32(), []float32{20, 80, 150, 320}) {
		t.Errorf("Mul = %v", mul.AsFloat32())
	}

	div := backend.Div(a, b)
	if !float32SliceEqual(div.AsFloat32(), []float32{5, 5, 6, 5}) {
		t.Errorf("Div = %v", div.AsFloat32())
	}
}

func TestCPUBackend_Scalars(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, tensor.Shape{3}, []float32{1, 2, 3})

	if got := backend.AddScalar(x, float32(10)).AsFloat32(); !float32SliceEqual(got, []float32{11, 12, 13}) {
		t.Errorf("AddScalar = %v", got)
	}
	if got := backend.SubScalar(x, float32(1)).AsFloat32(); !float32SliceEqual(got, []float32{0, 1, 2}) {
		t.Errorf("SubScalar = %v", got)
	}
	if got := backend.MulScalar(x, float32(2)).AsFloat32(); !float32SliceEqual(got, []float32{2, 4, 6}) {
		t.Errorf("MulScalar = %v", got)
	}
	if got := backend.DivScalar(x, float32(2)).AsFloat32(); !float32SliceEqual(got, []float32{0.5, 1, 1.5}) {
		t.Errorf("DivScalar = %v", got)
	}
}

func TestCPUBackend_Reshape(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	y := backend.Reshape(x, tensor.Shape{3, 2})

	expectShape(t, y, tensor.Shape{3, 2})
	if !float32SliceEqual(y.AsFloat32(), x.AsFloat32()) {
		t.Errorf("Reshape changed data: %v", y.AsFloat32())
	}

	t.Run("ElementCountMismatch", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for element count mismatch")
			}
		}()
		backend.Reshape(x, tensor.Shape{4, 2})
	})
}

func TestCPUBackend_Transpose(t *testing.T) {
	backend := newTestBackend()

	t.Run("Default2D", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		y := backend.Transpose(x)

		expectShape(t, y, tensor.Shape{3, 2})
		expected := []float32{1, 4, 2, 5, 3, 6}
		if !float32SliceEqual(y.AsFloat32(), expected) {
			t.Errorf("Transpose = %v, want %v", y.AsFloat32(), expected)
		}
	})

	t.Run("Permute3D", func(t *testing.T) {
		// (2, 3, 4) -> (3, 2, 4): swap the first two axes, keep rows.
		data := make([]float32, 24)
		for i := range data {
			data[i] = float32(i)
		}
		x := rawFloat32(t, tensor.Shape{2, 3, 4}, data)
		y := backend.Transpose(x, 1, 0, 2)

		expectShape(t, y, tensor.Shape{3, 2, 4})
		got := y.AsFloat32()
		// y[j, i, k] = x[i, j, k]
		for i := 0; i < 2; i++ {
			for j := 0; j < 3; j++ {
				for k := 0; k < 4; k++ {
					want := data[i*12+j*4+k]
					if got[j*8+i*4+k] != want {
						t.Fatalf("y[%d,%d,%d] = %v, want %v", j, i, k, got[j*8+i*4+k], want)
					}
				}
			}
		}
	})

	t.Run("BoolTensor", func(t *testing.T) {
		x := rawBool(t, tensor.Shape{2, 2}, []bool{true, false, false, true})
		y := backend.Transpose(x)

		got := y.AsBool()
		want := []bool{true, false, false, true}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("bool transpose = %v, want %v", got, want)
			}
		}
	})

	t.Run("DuplicateAxis", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for duplicate axis")
			}
		}()
		x := rawFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))
		backend.Transpose(x, 0, 0)
	})
}

func TestCPUBackend_Expand(t *testing.T) {
	backend := newTestBackend()

	t.Run("GrowSingleton", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{1, 3}, []float32{1, 2, 3})
		y := backend.Expand(x, tensor.Shape{2, 3})

		expectShape(t, y, tensor.Shape{2, 3})
		expected := []float32{1, 2, 3, 1, 2, 3}
		if !float32SliceEqual(y.AsFloat32(), expected) {
			t.Errorf("Expand = %v, want %v", y.AsFloat32(), expected)
		}
	})

	t.Run("AddLeadingDims", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2}, []float32{7, 9})
		y := backend.Expand(x, tensor.Shape{3, 2})

		expected := []float32{7, 9, 7, 9, 7, 9}
		if !float32SliceEqual(y.AsFloat32(), expected) {
			t.Errorf("Expand = %v, want %v", y.AsFloat32(), expected)
		}
	})

	t.Run("BoolMask", func(t *testing.T) {
		x := rawBool(t, tensor.Shape{1, 2}, []bool{true, false})
		y := backend.Expand(x, tensor.Shape{2, 2})

		got := y.AsBool()
		want := []bool{true, false, true, false}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("bool expand = %v, want %v", got, want)
			}
		}
	})

	t.Run("NonSingletonMismatch", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for non-singleton expand")
			}
		}()
		x := rawFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))
		backend.Expand(x, tensor.Shape{2, 5})
	})
}

func TestCPUBackend_UnsqueezeSqueeze(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	y := backend.Unsqueeze(x, 0)
	expectShape(t, y, tensor.Shape{1, 2, 3})

	z := backend.Unsqueeze(x, -1)
	expectShape(t, z, tensor.Shape{2, 3, 1})

	back := backend.Squeeze(y, 0)
	expectShape(t, back, tensor.Shape{2, 3})

	t.Run("SqueezeNonUnit", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic squeezing size-2 dim")
			}
		}()
		backend.Squeeze(x, 0)
	})
}

func TestCPUBackend_Cat(t *testing.T) {
	backend := newTestBackend()

	t.Run("Dim0", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{1, 3}, []float32{1, 2, 3})
		b := rawFloat32(t, tensor.Shape{2, 3}, []float32{4, 5, 6, 7, 8, 9})

		result := backend.Cat([]*tensor.RawTensor{a, b}, 0)

		expectShape(t, result, tensor.Shape{3, 3})
		expected := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Cat dim0 = %v", result.AsFloat32())
		}
	})

	t.Run("Dim1", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 2}, []float32{1, 2, 5, 6})
		b := rawFloat32(t, tensor.Shape{2, 1}, []float32{3, 7})

		result := backend.Cat([]*tensor.RawTensor{a, b}, 1)

		expectShape(t, result, tensor.Shape{2, 3})
		expected := []float32{1, 2, 3, 5, 6, 7}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Cat dim1 = %v", result.AsFloat32())
		}
	})

	t.Run("NegativeDim", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 1}, []float32{1, 2})
		b := rawFloat32(t, tensor.Shape{2, 1}, []float32{3, 4})

		result := backend.Cat([]*tensor.RawTensor{a, b}, -1)

		expectShape(t, result, tensor.Shape{2, 2})
		expected := []float32{1, 3, 2, 4}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Cat dim-1 = %v", result.AsFloat32())
		}
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for mismatched non-cat dims")
			}
		}()
		a := rawFloat32(t, tensor.Shape{2, 2}, make([]float32, 4))
		b := rawFloat32(t, tensor.Shape{3, 3}, make([]float32, 9))
		backend.Cat([]*tensor.RawTensor{a, b}, 0)
	})
}
