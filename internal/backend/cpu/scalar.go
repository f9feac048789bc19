package cpu

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// Scalar operations. The scalar must already have the tensor's native Go
// type; the typed tensor layer guarantees that.

// AddScalar adds a scalar value to each element of the tensor.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("addScalar: failed to create result tensor: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		s := scalar.(float32)
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i, v := range src {
			dst[i] = v + s
		}
	case tensor.Float64:
		s := scalar.(float64)
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i, v := range src {
			dst[i] = v + s
		}
	case tensor.Int32:
		s := scalar.(int32)
		src, dst := x.AsInt32(), result.AsInt32()
		for i, v := range src {
			dst[i] = v + s
		}
	case tensor.Int64:
		s := scalar.(int64)
		src, dst := x.AsInt64(), result.AsInt64()
		for i, v := range src {
			dst[i] = v + s
		}
	default:
		panic(fmt.Sprintf("addScalar: unsupported dtype %v", x.DType()))
	}

	return result
}

// SubScalar subtracts a scalar value from each element of the tensor.
func (cpu *CPUBackend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("subScalar: failed to create result tensor: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		s := scalar.(float32)
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i, v := range src {
			dst[i] = v - s
		}
	case tensor.Float64:
		s := scalar.(float64)
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i, v := range src {
			dst[i] = v - s
		}
	case tensor.Int32:
		s := scalar.(int32)
		src, dst := x.AsInt32(), result.AsInt32()
		for i, v := range src {
			dst[i] = v - s
		}
	case tensor.Int64:
		s := scalar.(int64)
		src, dst := x.AsInt64(), result.AsInt64()
		for i, v := range src {
			dst[i] = v - s
		}
	default:
		panic(fmt.Sprintf("subScalar: unsupported dtype %v", x.DType()))
	}

	return result
}

// MulScalar multiplies each element of the tensor by a scalar value.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("mulScalar: failed to create result tensor: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		s := scalar.(float32)
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i, v := range src {
			dst[i] = v * s
		}
	case tensor.Float64:
		s := scalar.(float64)
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i, v := range src {
			dst[i] = v * s
		}
	case tensor.Int32:
		s := scalar.(int32)
		src, dst := x.AsInt32(), result.AsInt32()
		for i, v := range src {
			dst[i] = v * s
		}
	case tensor.Int64:
		s := scalar.(int64)
		src, dst := x.AsInt64(), result.AsInt64()
		for i, v := range src {
			dst[i] = v * s
		}
	default:
		panic(fmt.Sprintf("mulScalar: unsupported dtype %v", x.DType()))
	}

	return result
}

// DivScalar divides each element of the tensor by a scalar value.
func (cpu *CPUBackend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("divScalar: failed to create result tensor: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		s := scalar.(float32)
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i, v := range src {
			dst[i] = v / s
		}
	case tensor.Float64:
		s := scalar.(float64)
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i, v := range src {
			dst[i] = v / s
		}
	case tensor.Int32:
		s := scalar.(int32)
		src, dst := x.AsInt32(), result.AsInt32()
		for i, v := range src {
			dst[i] = v / s
		}
	case tensor.Int64:
		s := scalar.(int64)
		src, dst := x.AsInt64(), result.AsInt64()
		for i, v := range src {
			dst[i] = v / s
		}
	default:
		panic(fmt.Sprintf("divScalar: unsupported dtype %v", x.DType()))
	}

	return result
}
