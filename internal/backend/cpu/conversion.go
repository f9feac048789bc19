package cpu

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// Cast converts a tensor to a different data type. Bool sources become 0/1;
// casting to bool maps nonzero to true. Float to int truncates toward zero.
func (cpu *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	if x.DType() == dtype {
		return cpu.Reshape(x, x.Shape())
	}

	result, err := tensor.NewRaw(x.Shape(), dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cast: %v", err))
	}

	srcAt := castLoader(x)
	n := x.NumElements()

	switch dtype {
	case tensor.Float32:
		dst := result.AsFloat32()
		for i := 0; i < n; i++ {
			dst[i] = float32(srcAt(i))
		}
	case tensor.Float64:
		dst := result.AsFloat64()
		for i := 0; i < n; i++ {
			dst[i] = srcAt(i)
		}
	case tensor.Int32:
		dst := result.AsInt32()
		for i := 0; i < n; i++ {
			dst[i] = int32(srcAt(i))
		}
	case tensor.Int64:
		dst := result.AsInt64()
		for i := 0; i < n; i++ {
			dst[i] = int64(srcAt(i))
		}
	case tensor.Uint8:
		dst := result.AsUint8()
		for i := 0; i < n; i++ {
			dst[i] = uint8(srcAt(i))
		}
	case tensor.Bool:
		dst := result.AsBool()
		for i := 0; i < n; i++ {
			dst[i] = srcAt(i) != 0
		}
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %s", dtype))
	}

	return result
}

// castLoader returns an indexed float64 view over any dtype, bool included.
func castLoader(t *tensor.RawTensor) func(int) float64 {
	if t.DType() == tensor.Bool {
		data := t.AsBool()
		return func(i int) float64 {
			if data[i] {
				return 1
			}
			return 0
		}
	}
	return elementLoader("cast", t)
}
