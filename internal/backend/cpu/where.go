package cpu

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// Where selects elements from x where condition is true and from y
// otherwise. All three tensors broadcast to a common shape; condition must
// be bool, x and y must share a dtype.
//
// Selection never evaluates the unselected operand, so NaN or Inf in the
// rejected branch cannot leak into the result.
func (cpu *CPUBackend) Where(condition, x, y *tensor.RawTensor) *tensor.RawTensor {
	if condition.DType() != tensor.Bool {
		panic(fmt.Sprintf("where: condition must be bool, got %s", condition.DType()))
	}
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("where: dtype mismatch: %s vs %s", x.DType(), y.DType()))
	}

	xyShape, _, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}
	outShape, _, err := tensor.BroadcastShapes(condition.Shape(), xyShape)
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}

	outStrides := outShape.ComputeStrides()
	condStrides := computeBroadcastStridesForShape(condition.Shape(), outShape)
	xStrides := computeBroadcastStridesForShape(x.Shape(), outShape)
	yStrides := computeBroadcastStridesForShape(y.Shape(), outShape)

	cond := condition.AsBool()
	elemSize := x.DType().Size()
	xData := x.Data()
	yData := y.Data()
	dst := result.Data()

	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		condIdx := computeFlatIndex(i, outStrides, condStrides)
		var src []byte
		var srcIdx int
		if cond[condIdx] {
			src = xData
			srcIdx = computeFlatIndex(i, outStrides, xStrides)
		} else {
			src = yData
			srcIdx = computeFlatIndex(i, outStrides, yStrides)
		}
		copy(dst[i*elemSize:(i+1)*elemSize], src[srcIdx*elemSize:(srcIdx+1)*elemSize])
	}

	return result
}
