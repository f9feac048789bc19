package cpu

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// Reshape returns a tensor with the same data but a different shape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: invalid shape: %v", err))
	}
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			t.Shape(), newShape))
	}

	result, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}

	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes the tensor's dimensions. With no axes it reverses them.
//
// The copy works on raw bytes so every dtype is covered, bool masks
// included.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	srcStrides := shape.ComputeStrides()
	dstStrides := newShape.ComputeStrides()
	elemSize := t.DType().Size()
	src := t.Data()
	dst := result.Data()

	n := shape.NumElements()
	coords := make([]int, ndim)
	for i := 0; i < n; i++ {
		idx := i
		for dim := 0; dim < ndim; dim++ {
			coords[dim] = idx / dstStrides[dim]
			idx %= dstStrides[dim]
		}

		srcIdx := 0
		for dstDim, srcDim := range axes {
			srcIdx += coords[dstDim] * srcStrides[srcDim]
		}

		copy(dst[i*elemSize:(i+1)*elemSize], src[srcIdx*elemSize:(srcIdx+1)*elemSize])
	}

	return result
}

// Expand broadcasts a tensor to a larger shape without changing its data
// layout semantics. Dimensions of size 1 may grow; others must match. The
// result is materialized, not a view.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	inShape := x.Shape()
	if len(newShape) < len(inShape) {
		panic(fmt.Sprintf("expand: target rank %d smaller than input rank %d", len(newShape), len(inShape)))
	}

	offset := len(newShape) - len(inShape)
	for i, dim := range inShape {
		target := newShape[offset+i]
		if dim != target && dim != 1 {
			panic(fmt.Sprintf("expand: cannot expand dim %d from %d to %d", i, dim, target))
		}
	}

	result, err := tensor.NewRaw(newShape, x.DType(), x.Device())
	if err != nil {
		panic(fmt.Sprintf("expand: %v", err))
	}

	outStrides := newShape.ComputeStrides()
	inStrides := computeBroadcastStridesForShape(inShape, newShape)
	elemSize := x.DType().Size()
	src := x.Data()
	dst := result.Data()

	n := newShape.NumElements()
	for i := 0; i < n; i++ {
		srcIdx := computeFlatIndex(i, outStrides, inStrides)
		copy(dst[i*elemSize:(i+1)*elemSize], src[srcIdx*elemSize:(srcIdx+1)*elemSize])
	}

	return result
}
