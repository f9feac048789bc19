package cpu

import (
	"fmt"
	"math"

	"github.com/spot-ml/spot/internal/parallel"
	"github.com/spot-ml/spot/internal/tensor"
)

// Softmax computes softmax along the specified dimension:
// Softmax(x_i) = exp(x_i - max) / sum(exp(x_j - max)).
//
// The max subtraction keeps exp from overflowing. Rows where every input is
// -Inf produce NaN (0/0); callers masking attention scores handle those rows
// explicitly.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("softmax: dimension %d out of range for tensor of rank %d", dim, ndim))
	}

	result, err := tensor.NewRaw(shape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("softmax: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		cpu.softmaxFloat32(result, x, dim)
	case tensor.Float64:
		cpu.softmaxFloat64(result, x, dim)
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

func (cpu *CPUBackend) softmaxFloat32(result, x *tensor.RawTensor, dim int) {
	src := x.AsFloat32()
	dst := result.AsFloat32()
	shape := x.Shape()
	strides := shape.ComputeStrides()

	dimSize := shape[dim]
	dimStride := strides[dim]
	numRows := shape.NumElements() / dimSize

	parallel.For(numRows, func(row int) {
		baseIdx := rowBaseIndex(row, shape, strides, dim)

		maxVal := float32(math.Inf(-1))
		for i := 0; i < dimSize; i++ {
			if v := src[baseIdx+i*dimStride]; v > maxVal {
				maxVal = v
			}
		}

		var sum float32
		for i := 0; i < dimSize; i++ {
			idx := baseIdx + i*dimStride
			e := float32(math.Exp(float64(src[idx] - maxVal)))
			dst[idx] = e
			sum += e
		}

		inv := 1 / sum
		for i := 0; i < dimSize; i++ {
			dst[baseIdx+i*dimStride] *= inv
		}
	}, cpu.pool)
}

func (cpu *CPUBackend) softmaxFloat64(result, x *tensor.RawTensor, dim int) {
	src := x.AsFloat64()
	dst := result.AsFloat64()
	shape := x.Shape()
	strides := shape.ComputeStrides()

	dimSize := shape[dim]
	dimStride := strides[dim]
	numRows := shape.NumElements() / dimSize

	parallel.For(numRows, func(row int) {
		baseIdx := rowBaseIndex(row, shape, strides, dim)

		maxVal := math.Inf(-1)
		for i := 0; i < dimSize; i++ {
			if v := src[baseIdx+i*dimStride]; v > maxVal {
				maxVal = v
			}
		}

		var sum float64
		for i := 0; i < dimSize; i++ {
			idx := baseIdx + i*dimStride
			e := math.Exp(src[idx] - maxVal)
			dst[idx] = e
			sum += e
		}

		inv := 1 / sum
		for i := 0; i < dimSize; i++ {
			dst[baseIdx+i*dimStride] *= inv
		}
	}, cpu.pool)
}

// ReLU computes max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.mapUnary("relu", x, func(v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	})
}

// Sigmoid computes 1/(1+e^-x) element-wise.
func (cpu *CPUBackend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.mapUnary("sigmoid", x, func(v float64) float64 {
		return 1 / (1 + math.Exp(-v))
	})
}

// GELU computes the Gaussian Error Linear Unit using the tanh approximation.
func (cpu *CPUBackend) GELU(x *tensor.RawTensor) *tensor.RawTensor {
	const c = 0.7978845608028654 // sqrt(2/pi)
	return cpu.mapUnary("gelu", x, func(v float64) float64 {
		return 0.5 * v * (1 + math.Tanh(c*(v+0.044715*v*v*v)))
	})
}
