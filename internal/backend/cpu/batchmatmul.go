package cpu

import (
	"fmt"

	"github.com/spot-ml/spot/internal/parallel"
	"github.com/spot-ml/spot/internal/tensor"
)

// BatchMatMul performs batched matrix multiplication.
//
// For 3D: [B, M, K] @ [B, K, N] -> [B, M, N]
// For 4D: [B, H, M, K] @ [B, H, K, N] -> [B, H, M, N]
//
// The last two dimensions are the matrix dimensions; all leading dimensions
// must match. Each batch runs as an independent BLAS Gemm, fanned out across
// workers. Batches are typically few but large (attention score matrices),
// so the fan-out threshold is one batch per worker.
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()
	ndim := len(aShape)

	if ndim < 3 {
		panic(fmt.Sprintf("batchmatmul: inputs must be at least 3D, got %dD", ndim))
	}
	if len(bShape) != ndim {
		panic(fmt.Sprintf("batchmatmul: dimension mismatch, got %dD and %dD", ndim, len(bShape)))
	}

	for i := 0; i < ndim-2; i++ {
		if aShape[i] != bShape[i] {
			panic(fmt.Sprintf("batchmatmul: batch dimension mismatch at dim %d: %d vs %d", i, aShape[i], bShape[i]))
		}
	}

	m := aShape[ndim-2]
	k1 := aShape[ndim-1]
	k2 := bShape[ndim-2]
	n := bShape[ndim-1]

	if k1 != k2 {
		panic(fmt.Sprintf("batchmatmul: inner dimension mismatch: %d vs %d", k1, k2))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("batchmatmul: dtype mismatch: %s vs %s", a.DType(), b.DType()))
	}

	batchSize := 1
	for i := 0; i < ndim-2; i++ {
		batchSize *= aShape[i]
	}

	outShape := make(tensor.Shape, ndim)
	copy(outShape, aShape[:ndim-2])
	outShape[ndim-2] = m
	outShape[ndim-1] = n

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("batchmatmul: failed to create result tensor: %v", err))
	}

	cfg := cpu.pool
	cfg.MinChunkSize = 1

	switch a.DType() {
	case tensor.Float32:
		aData, bData, cData := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()
		parallel.For(batchSize, func(batch int) {
			aOff := batch * m * k1
			bOff := batch * k1 * n
			cOff := batch * m * n
			gemmFloat32(cData[cOff:cOff+m*n], aData[aOff:aOff+m*k1], bData[bOff:bOff+k1*n], m, k1, n)
		}, cfg)
	case tensor.Float64:
		aData, bData, cData := a.AsFloat64(), b.AsFloat64(), result.AsFloat64()
		parallel.For(batchSize, func(batch int) {
			aOff := batch * m * k1
			bOff := batch * k1 * n
			cOff := batch * m * n
			gemmFloat64(cData[cOff:cOff+m*n], aData[aOff:aOff+m*k1], bData[bOff:bOff+k1*n], m, k1, n)
		}, cfg)
	default:
		panic(fmt.Sprintf("batchmatmul: unsupported dtype %s", a.DType()))
	}

	return result
}
