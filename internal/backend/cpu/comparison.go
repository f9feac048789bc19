package cpu

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// Equal returns a == b element-wise as a bool tensor, with broadcasting.
func (cpu *CPUBackend) Equal(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.compare("equal", a, b, func(x, y float64) bool { return x == y })
}

// Greater returns a > b element-wise as a bool tensor, with broadcasting.
func (cpu *CPUBackend) Greater(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.compare("greater", a, b, func(x, y float64) bool { return x > y })
}

// Not computes element-wise logical NOT of a bool tensor.
func (cpu *CPUBackend) Not(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Bool {
		panic("not: tensor must be bool dtype")
	}

	result, err := tensor.NewRaw(x.Shape(), tensor.Bool, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("not: %v", err))
	}

	src := x.AsBool()
	dst := result.AsBool()
	for i := range dst {
		dst[i] = !src[i]
	}

	return result
}

// compare evaluates pred over broadcast element pairs. Values are widened to
// float64 first; every numeric dtype compares exactly within float64's
// 53-bit mantissa at the tensor sizes this framework handles.
func (cpu *CPUBackend) compare(op string, a, b *tensor.RawTensor, pred func(x, y float64) bool) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", op, a.DType(), b.DType()))
	}

	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	result, err := tensor.NewRaw(outShape, tensor.Bool, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	outStrides := outShape.ComputeStrides()
	aStrides := computeBroadcastStridesForShape(a.Shape(), outShape)
	bStrides := computeBroadcastStridesForShape(b.Shape(), outShape)

	aAt := elementLoader(op, a)
	bAt := elementLoader(op, b)

	dst := result.AsBool()
	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		aIdx := computeFlatIndex(i, outStrides, aStrides)
		bIdx := computeFlatIndex(i, outStrides, bStrides)
		dst[i] = pred(aAt(aIdx), bAt(bIdx))
	}

	return result
}

// elementLoader returns an indexed float64 view over a tensor's elements.
func elementLoader(op string, t *tensor.RawTensor) func(int) float64 {
	switch t.DType() {
	case tensor.Float32:
		data := t.AsFloat32()
		return func(i int) float64 { return float64(data[i]) }
	case tensor.Float64:
		data := t.AsFloat64()
		return func(i int) float64 { return data[i] }
	case tensor.Int32:
		data := t.AsInt32()
		return func(i int) float64 { return float64(data[i]) }
	case tensor.Int64:
		data := t.AsInt64()
		return func(i int) float64 { return float64(data[i]) }
	case tensor.Uint8:
		data := t.AsUint8()
		return func(i int) float64 { return float64(data[i]) }
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, t.DType()))
	}
}
