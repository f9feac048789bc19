package cpu

import (
	"math"
	"testing"

	"github.com/spot-ml/spot/internal/tensor"
)

func TestCPUBackend_Softmax(t *testing.T) {
	backend := newTestBackend()

	t.Run("RowsSumToOne", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2, 4}, []float32{
			1, 2, 3, 4,
			-1, 0, 1, 2,
		})

		result := backend.Softmax(x, -1)

		data := result.AsFloat32()
		for row := 0; row < 2; row++ {
			var sum float32
			for i := 0; i < 4; i++ {
				v := data[row*4+i]
				if v < 0 || v > 1 {
					t.Fatalf("softmax value out of range: %v", v)
				}
				sum += v
			}
			if math.Abs(float64(sum-1)) > 1e-5 {
				t.Errorf("row %d sums to %v, want 1", row, sum)
			}
		}
	})

	t.Run("Monotonic", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{1, 3}, []float32{1, 2, 3})
		data := backend.Softmax(x, -1).AsFloat32()
		if !(data[0] < data[1] && data[1] < data[2]) {
			t.Errorf("softmax not monotonic: %v", data)
		}
	})

	t.Run("LargeValuesStable", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{1, 3}, []float32{1000, 1001, 1002})

		data := backend.Softmax(x, -1).AsFloat32()

		var sum float32
		for _, v := range data {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("softmax overflowed: %v", data)
			}
			sum += v
		}
		if math.Abs(float64(sum-1)) > 1e-5 {
			t.Errorf("large-value row sums to %v", sum)
		}
	})

	t.Run("AllNegInfRowIsNaN", func(t *testing.T) {
		// A fully masked attention row; the caller replaces it afterwards.
		negInf := float32(math.Inf(-1))
		x := rawFloat32(t, tensor.Shape{2, 2}, []float32{negInf, negInf, 0, 0})

		data := backend.Softmax(x, -1).AsFloat32()

		if !math.IsNaN(float64(data[0])) || !math.IsNaN(float64(data[1])) {
			t.Errorf("fully masked row = %v, want NaN", data[:2])
		}
		if !float32SliceEqual(data[2:], []float32{0.5, 0.5}) {
			t.Errorf("unmasked row = %v, want [0.5 0.5]", data[2:])
		}
	})

	t.Run("MiddleDim", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2, 2, 2}, []float32{
			0, 0, 0, 0,
			0, 0, 0, 0,
		})

		data := backend.Softmax(x, 1).AsFloat32()

		for _, v := range data {
			if math.Abs(float64(v-0.5)) > 1e-6 {
				t.Fatalf("uniform softmax over dim 1 = %v", data)
			}
		}
	})
}

func TestCPUBackend_MathOps(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, tensor.Shape{3}, []float32{0, 1, 4})

	exp := backend.Exp(x).AsFloat32()
	if math.Abs(float64(exp[0]-1)) > 1e-6 || math.Abs(float64(exp[1])-math.E) > 1e-5 {
		t.Errorf("Exp = %v", exp)
	}

	sqrt := backend.Sqrt(x).AsFloat32()
	if !float32SliceEqual(sqrt, []float32{0, 1, 2}) {
		t.Errorf("Sqrt = %v", sqrt)
	}

	rsqrt := backend.Rsqrt(rawFloat32(t, tensor.Shape{2}, []float32{1, 4})).AsFloat32()
	if !float32SliceEqual(rsqrt, []float32{1, 0.5}) {
		t.Errorf("Rsqrt = %v", rsqrt)
	}

	angles := rawFloat32(t, tensor.Shape{2}, []float32{0, float32(math.Pi / 2)})
	sin := backend.Sin(angles).AsFloat32()
	cos := backend.Cos(angles).AsFloat32()
	if math.Abs(float64(sin[0])) > 1e-6 || math.Abs(float64(sin[1]-1)) > 1e-6 {
		t.Errorf("Sin = %v", sin)
	}
	if math.Abs(float64(cos[0]-1)) > 1e-6 || math.Abs(float64(cos[1])) > 1e-6 {
		t.Errorf("Cos = %v", cos)
	}

	t.Run("IntPanics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for int dtype")
			}
		}()
		raw, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Int32, tensor.CPU)
		backend.Exp(raw)
	})
}

func TestCPUBackend_Reductions(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	t.Run("Sum", func(t *testing.T) {
		result := backend.Sum(x)
		expectShape(t, result, tensor.Shape{})
		if got := result.AsFloat32()[0]; got != 21 {
			t.Errorf("Sum = %v, want 21", got)
		}
	})

	t.Run("SumDimKeep", func(t *testing.T) {
		result := backend.SumDim(x, 1, true)
		expectShape(t, result, tensor.Shape{2, 1})
		if !float32SliceEqual(result.AsFloat32(), []float32{6, 15}) {
			t.Errorf("SumDim keep = %v", result.AsFloat32())
		}
	})

	t.Run("SumDimDrop", func(t *testing.T) {
		result := backend.SumDim(x, 0, false)
		expectShape(t, result, tensor.Shape{3})
		if !float32SliceEqual(result.AsFloat32(), []float32{5, 7, 9}) {
			t.Errorf("SumDim drop = %v", result.AsFloat32())
		}
	})

	t.Run("SumDimNegative", func(t *testing.T) {
		result := backend.SumDim(x, -1, false)
		if !float32SliceEqual(result.AsFloat32(), []float32{6, 15}) {
			t.Errorf("SumDim -1 = %v", result.AsFloat32())
		}
	})

	t.Run("MeanDim", func(t *testing.T) {
		result := backend.MeanDim(x, 1, false)
		if !float32SliceEqual(result.AsFloat32(), []float32{2, 5}) {
			t.Errorf("MeanDim = %v", result.AsFloat32())
		}
	})

	t.Run("Argmax", func(t *testing.T) {
		y := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 9, 2, 8, 3, 4})
		result := backend.Argmax(y, 1)

		expectShape(t, result, tensor.Shape{2})
		got := result.AsInt32()
		if got[0] != 1 || got[1] != 0 {
			t.Errorf("Argmax = %v, want [1 0]", got)
		}
	})

	t.Run("ArgmaxRowOrder", func(t *testing.T) {
		// 3D input reduced over the middle dim: output rows must follow
		// row-major order of the remaining dims.
		y := rawFloat32(t, tensor.Shape{2, 2, 2}, []float32{
			1, 0, 0, 2,
			0, 3, 4, 0,
		})
		result := backend.Argmax(y, 1)

		expectShape(t, result, tensor.Shape{2, 2})
		got := result.AsInt32()
		want := []int32{0, 1, 1, 0}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("Argmax order = %v, want %v", got, want)
			}
		}
	})
}

func TestCPUBackend_Comparisons(t *testing.T) {
	backend := newTestBackend()

	a := rawFloat32(t, tensor.Shape{4}, []float32{1, 2, 3, 4})
	b := rawFloat32(t, tensor.Shape{4}, []float32{1, 5, 2, 4})

	eq := backend.Equal(a, b).AsBool()
	wantEq := []bool{true, false, false, true}
	for i := range wantEq {
		if eq[i] != wantEq[i] {
			t.Fatalf("Equal = %v, want %v", eq, wantEq)
		}
	}

	gt := backend.Greater(a, b).AsBool()
	wantGt := []bool{false, false, true, false}
	for i := range wantGt {
		if gt[i] != wantGt[i] {
			t.Fatalf("Greater = %v, want %v", gt, wantGt)
		}
	}

	not := backend.Not(backend.Equal(a, b)).AsBool()
	for i := range wantEq {
		if not[i] != !wantEq[i] {
			t.Fatalf("Not = %v", not)
		}
	}

	t.Run("BroadcastScalarOperand", func(t *testing.T) {
		zero := rawFloat32(t, tensor.Shape{1}, []float32{0})
		counts := rawFloat32(t, tensor.Shape{3}, []float32{0, 2, 0})

		isZero := backend.Equal(counts, zero).AsBool()
		want := []bool{true, false, true}
		for i := range want {
			if isZero[i] != want[i] {
				t.Fatalf("Equal broadcast = %v, want %v", isZero, want)
			}
		}
	})
}

func TestCPUBackend_Cast(t *testing.T) {
	backend := newTestBackend()

	t.Run("BoolToFloat32", func(t *testing.T) {
		mask := rawBool(t, tensor.Shape{4}, []bool{true, false, true, true})

		result := backend.Cast(mask, tensor.Float32)

		if !float32SliceEqual(result.AsFloat32(), []float32{1, 0, 1, 1}) {
			t.Errorf("bool cast = %v", result.AsFloat32())
		}
	})

	t.Run("Float32ToInt32", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{3}, []float32{1.9, -1.9, 3})

		result := backend.Cast(x, tensor.Int32)

		got := result.AsInt32()
		if got[0] != 1 || got[1] != -1 || got[2] != 3 {
			t.Errorf("float->int cast = %v", got)
		}
	})

	t.Run("SameDTypeCopies", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2}, []float32{1, 2})

		result := backend.Cast(x, tensor.Float32)

		result.AsFloat32()[0] = 99
		if x.AsFloat32()[0] != 1 {
			t.Error("same-dtype cast aliased the input")
		}
	})
}

func TestCPUBackend_Where(t *testing.T) {
	backend := newTestBackend()

	t.Run("ElementWise", func(t *testing.T) {
		cond := rawBool(t, tensor.Shape{4}, []bool{true, false, true, false})
		x := rawFloat32(t, tensor.Shape{4}, []float32{1, 1, 1, 1})
		y := rawFloat32(t, tensor.Shape{4}, []float32{2, 2, 2, 2})

		result := backend.Where(cond, x, y)

		if !float32SliceEqual(result.AsFloat32(), []float32{1, 2, 1, 2}) {
			t.Errorf("Where = %v", result.AsFloat32())
		}
	})

	t.Run("BroadcastCondition", func(t *testing.T) {
		// Row-level condition over a matrix, as used to blank out rows.
		cond := rawBool(t, tensor.Shape{2, 1}, []bool{true, false})
		x := rawFloat32(t, tensor.Shape{2, 3}, []float32{0, 0, 0, 0, 0, 0})
		y := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

		result := backend.Where(cond, x, y)

		expectShape(t, result, tensor.Shape{2, 3})
		if !float32SliceEqual(result.AsFloat32(), []float32{0, 0, 0, 4, 5, 6}) {
			t.Errorf("Where broadcast = %v", result.AsFloat32())
		}
	})

	t.Run("RejectedNaNDoesNotLeak", func(t *testing.T) {
		nan := float32(math.NaN())
		cond := rawBool(t, tensor.Shape{2}, []bool{true, true})
		x := rawFloat32(t, tensor.Shape{2}, []float32{7, 8})
		y := rawFloat32(t, tensor.Shape{2}, []float32{nan, nan})

		result := backend.Where(cond, x, y)

		if !float32SliceEqual(result.AsFloat32(), []float32{7, 8}) {
			t.Errorf("Where with NaN branch = %v", result.AsFloat32())
		}
	})

	t.Run("NonBoolCondition", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for non-bool condition")
			}
		}()
		cond := rawFloat32(t, tensor.Shape{2}, []float32{1, 0})
		x := rawFloat32(t, tensor.Shape{2}, []float32{1, 2})
		backend.Where(cond, x, x)
	})
}
