package tensor

import (
	"fmt"
	"math"
)

// Verify that MockBackend implements Backend.
var _ Backend = (*MockBackend)(nil)

// MockBackend is a naive reference backend for tests. Every operation is
// implemented directly in float64 with no fast paths, so results are easy to
// reason about and compare against optimized backends.
type MockBackend struct{}

// NewMockBackend creates a new MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Name returns the backend name.
func (m *MockBackend) Name() string { return "mock" }

// Device returns the device type.
func (m *MockBackend) Device() Device { return CPU }

// Add performs element-wise addition with broadcasting.
func (m *MockBackend) Add(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (m *MockBackend) Sub(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (m *MockBackend) Mul(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (m *MockBackend) Div(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x / y })
}

// AddScalar adds a scalar to each element.
func (m *MockBackend) AddScalar(x *RawTensor, scalar any) *RawTensor {
	s := scalarToFloat64(scalar)
	return m.unary(x, func(v float64) float64 { return v + s })
}

// SubScalar subtracts a scalar from each element.
func (m *MockBackend) SubScalar(x *RawTensor, scalar any) *RawTensor {
	s := scalarToFloat64(scalar)
	return m.unary(x, func(v float64) float64 { return v - s })
}

// MulScalar multiplies each element by a scalar.
func (m *MockBackend) MulScalar(x *RawTensor, scalar any) *RawTensor {
	s := scalarToFloat64(scalar)
	return m.unary(x, func(v float64) float64 { return v * s })
}

// DivScalar divides each element by a scalar.
func (m *MockBackend) DivScalar(x *RawTensor, scalar any) *RawTensor {
	s := scalarToFloat64(scalar)
	return m.unary(x, func(v float64) float64 { return v / s })
}

// Exp computes e^x per element.
func (m *MockBackend) Exp(x *RawTensor) *RawTensor {
	return m.unary(x, math.Exp)
}

// Sqrt computes the square root per element.
func (m *MockBackend) Sqrt(x *RawTensor) *RawTensor {
	return m.unary(x, math.Sqrt)
}

// Rsqrt computes 1/sqrt(x) per element.
func (m *MockBackend) Rsqrt(x *RawTensor) *RawTensor {
	return m.unary(x, func(v float64) float64 { return 1.0 / math.Sqrt(v) })
}

// Sin computes the sine per element.
func (m *MockBackend) Sin(x *RawTensor) *RawTensor {
	return m.unary(x, math.Sin)
}

// Cos computes the cosine per element.
func (m *MockBackend) Cos(x *RawTensor) *RawTensor {
	return m.unary(x, math.Cos)
}

// MatMul performs 2D matrix multiplication.
func (m *MockBackend) MatMul(a, b *RawTensor) *RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic("mock matmul: only 2D tensors supported")
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("mock matmul: incompatible shapes %v @ %v", aShape, bShape))
	}

	M, K, N := aShape[0], aShape[1], bShape[1]
	result := m.alloc(Shape{M, N}, a.DType())

	aData := m.toFloat64(a)
	bData := m.toFloat64(b)
	out := make([]float64, M*N)
	for i := 0; i < M; i++ {
		for j := 0; j < N; j++ {
			sum := 0.0
			for k := 0; k < K; k++ {
				sum += aData[i*K+k] * bData[k*N+j]
			}
			out[i*N+j] = sum
		}
	}
	m.fromFloat64(out, result)
	return result
}

// BatchMatMul multiplies trailing matrices over shared leading dims.
func (m *MockBackend) BatchMatMul(a, b *RawTensor) *RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) < 3 || len(aShape) != len(bShape) {
		panic(fmt.Sprintf("mock batchmatmul: want matching 3D/4D shapes, got %v and %v", aShape, bShape))
	}
	batch := 1
	for i := 0; i < len(aShape)-2; i++ {
		if aShape[i] != bShape[i] {
			panic(fmt.Sprintf("mock batchmatmul: leading dims differ: %v vs %v", aShape, bShape))
		}
		batch *= aShape[i]
	}
	M, K := aShape[len(aShape)-2], aShape[len(aShape)-1]
	if bShape[len(bShape)-2] != K {
		panic(fmt.Sprintf("mock batchmatmul: inner dims differ: %v @ %v", aShape, bShape))
	}
	N := bShape[len(bShape)-1]

	outShape := aShape.Clone()
	outShape[len(outShape)-1] = N
	result := m.alloc(outShape, a.DType())

	aData := m.toFloat64(a)
	bData := m.toFloat64(b)
	out := make([]float64, batch*M*N)
	for bi := 0; bi < batch; bi++ {
		ao, bo, co := bi*M*K, bi*K*N, bi*M*N
		for i := 0; i < M; i++ {
			for j := 0; j < N; j++ {
				sum := 0.0
				for k := 0; k < K; k++ {
					sum += aData[ao+i*K+k] * bData[bo+k*N+j]
				}
				out[co+i*N+j] = sum
			}
		}
	}
	m.fromFloat64(out, result)
	return result
}

// Conv2D performs direct 2D convolution over (N, C, H, W).
func (m *MockBackend) Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor {
	inShape, kShape := input.Shape(), kernel.Shape()
	if len(inShape) != 4 || len(kShape) != 4 {
		panic("mock conv2d: requires 4D tensors (N, C, H, W)")
	}
	N, CIn, H, W := inShape[0], inShape[1], inShape[2], inShape[3]
	COut, KH, KW := kShape[0], kShape[2], kShape[3]
	if CIn != kShape[1] {
		panic(fmt.Sprintf("mock conv2d: input channels %d != kernel channels %d", CIn, kShape[1]))
	}

	HOut := (H+2*padding-KH)/stride + 1
	WOut := (W+2*padding-KW)/stride + 1
	result := m.alloc(Shape{N, COut, HOut, WOut}, input.DType())

	inData := m.toFloat64(input)
	kData := m.toFloat64(kernel)
	out := make([]float64, N*COut*HOut*WOut)
	for n := 0; n < N; n++ {
		for co := 0; co < COut; co++ {
			for oh := 0; oh < HOut; oh++ {
				for ow := 0; ow < WOut; ow++ {
					sum := 0.0
					for ci := 0; ci < CIn; ci++ {
						for kh := 0; kh < KH; kh++ {
							for kw := 0; kw < KW; kw++ {
								h := oh*stride - padding + kh
								w := ow*stride - padding + kw
								if h >= 0 && h < H && w >= 0 && w < W {
									sum += inData[((n*CIn+ci)*H+h)*W+w] * kData[((co*CIn+ci)*KH+kh)*KW+kw]
								}
							}
						}
					}
					out[((n*COut+co)*HOut+oh)*WOut+ow] = sum
				}
			}
		}
	}
	m.fromFloat64(out, result)
	return result
}

// MaxPool2D performs 2D max pooling over (N, C, H, W).
func (m *MockBackend) MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor {
	inShape := input.Shape()
	if len(inShape) != 4 {
		panic(fmt.Sprintf("mock maxpool2d: expected 4D input, got %dD", len(inShape)))
	}
	N, C, H, W := inShape[0], inShape[1], inShape[2], inShape[3]
	HOut := (H-kernelSize)/stride + 1
	WOut := (W-kernelSize)/stride + 1
	result := m.alloc(Shape{N, C, HOut, WOut}, input.DType())

	inData := m.toFloat64(input)
	out := make([]float64, N*C*HOut*WOut)
	for n := 0; n < N; n++ {
		for c := 0; c < C; c++ {
			for oh := 0; oh < HOut; oh++ {
				for ow := 0; ow < WOut; ow++ {
					maxVal := math.Inf(-1)
					for kh := 0; kh < kernelSize; kh++ {
						for kw := 0; kw < kernelSize; kw++ {
							v := inData[((n*C+c)*H+oh*stride+kh)*W+ow*stride+kw]
							if v > maxVal {
								maxVal = v
							}
						}
					}
					out[((n*C+c)*HOut+oh)*WOut+ow] = maxVal
				}
			}
		}
	}
	m.fromFloat64(out, result)
	return result
}

// Reshape changes the tensor shape, copying the data.
func (m *MockBackend) Reshape(t *RawTensor, newShape Shape) *RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(err)
	}
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("mock reshape: cannot reshape %d elements to %v", t.NumElements(), newShape))
	}
	result := m.alloc(newShape, t.DType())
	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes dimensions; with no axes all dimensions reverse.
func (m *MockBackend) Transpose(t *RawTensor, axes ...int) *RawTensor {
	shape := t.Shape()
	if len(axes) == 0 {
		axes = make([]int, len(shape))
		for i := range axes {
			axes[i] = len(shape) - 1 - i
		}
	}
	if len(axes) != len(shape) {
		panic(fmt.Sprintf("mock transpose: axes length %d does not match rank %d", len(axes), len(shape)))
	}

	newShape := make(Shape, len(shape))
	for i, axis := range axes {
		if axis < 0 || axis >= len(shape) {
			panic(fmt.Sprintf("mock transpose: axis %d out of bounds", axis))
		}
		newShape[i] = shape[axis]
	}
	result := m.alloc(newShape, t.DType())

	oldStrides := shape.ComputeStrides()
	newStrides := newShape.ComputeStrides()
	src := m.toFloat64(t)
	out := make([]float64, t.NumElements())
	indices := make([]int, len(shape))
	for i := range src {
		rem := i
		for j := range shape {
			indices[j] = rem / oldStrides[j]
			rem %= oldStrides[j]
		}
		newIdx := 0
		for j, axis := range axes {
			newIdx += indices[axis] * newStrides[j]
		}
		out[newIdx] = src[i]
	}
	m.fromFloat64(out, result)
	return result
}

// Expand broadcasts size-1 dimensions up to the target shape.
func (m *MockBackend) Expand(x *RawTensor, shape Shape) *RawTensor {
	outShape, _, err := BroadcastShapes(x.Shape(), shape)
	if err != nil {
		panic(fmt.Sprintf("mock expand: %v", err))
	}
	if !outShape.Equal(shape) {
		panic(fmt.Sprintf("mock expand: cannot expand %v to %v", x.Shape(), shape))
	}
	result := m.alloc(shape, x.DType())
	src := m.toFloat64(x)
	out := make([]float64, shape.NumElements())
	for i := range out {
		out[i] = src[broadcastIndex(i, shape, x.Shape())]
	}
	m.fromFloat64(out, result)
	return result
}

// Unsqueeze inserts a size-1 dimension at dim.
func (m *MockBackend) Unsqueeze(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape) + 1
	}
	if dim < 0 || dim > len(shape) {
		panic(fmt.Sprintf("mock unsqueeze: dim %d out of range for rank %d", dim, len(shape)))
	}
	newShape := make(Shape, 0, len(shape)+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)
	return m.Reshape(x, newShape)
}

// Squeeze removes a size-1 dimension at dim.
func (m *MockBackend) Squeeze(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("mock squeeze: dim %d out of range for rank %d", dim, len(shape)))
	}
	if shape[dim] != 1 {
		panic(fmt.Sprintf("mock squeeze: dimension %d has size %d, not 1", dim, shape[dim]))
	}
	newShape := make(Shape, 0, len(shape)-1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, shape[dim+1:]...)
	return m.Reshape(x, newShape)
}

// Cat concatenates tensors along dim.
func (m *MockBackend) Cat(tensors []*RawTensor, dim int) *RawTensor {
	if len(tensors) == 0 {
		panic("mock cat: no tensors")
	}
	first := tensors[0].Shape()
	if dim < 0 {
		dim += len(first)
	}
	outShape := first.Clone()
	for _, t := range tensors[1:] {
		outShape[dim] += t.Shape()[dim]
	}
	result := m.alloc(outShape, tensors[0].DType())

	// outer = dims before dim, inner = dims after dim
	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= first[i]
	}
	for i := dim + 1; i < len(first); i++ {
		inner *= first[i]
	}

	out := make([]float64, outShape.NumElements())
	rowLen := outShape[dim] * inner
	offset := 0
	for _, t := range tensors {
		src := m.toFloat64(t)
		tDim := t.Shape()[dim]
		for o := 0; o < outer; o++ {
			copy(out[o*rowLen+offset:o*rowLen+offset+tDim*inner], src[o*tDim*inner:(o+1)*tDim*inner])
		}
		offset += tDim * inner
	}
	m.fromFloat64(out, result)
	return result
}

// Softmax normalizes along dim with the row max subtracted.
func (m *MockBackend) Softmax(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	result := m.alloc(shape, x.DType())

	src := m.toFloat64(x)
	out := make([]float64, len(src))
	outer, size, inner := splitAt(shape, dim)
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			maxVal := math.Inf(-1)
			for i := 0; i < size; i++ {
				if v := src[(o*size+i)*inner+in]; v > maxVal {
					maxVal = v
				}
			}
			sum := 0.0
			for i := 0; i < size; i++ {
				e := math.Exp(src[(o*size+i)*inner+in] - maxVal)
				out[(o*size+i)*inner+in] = e
				sum += e
			}
			for i := 0; i < size; i++ {
				out[(o*size+i)*inner+in] /= sum
			}
		}
	}
	m.fromFloat64(out, result)
	return result
}

// Equal compares element-wise, producing a bool tensor.
func (m *MockBackend) Equal(a, b *RawTensor) *RawTensor {
	return m.compare(a, b, func(x, y float64) bool { return x == y })
}

// Greater compares element-wise, producing a bool tensor.
func (m *MockBackend) Greater(a, b *RawTensor) *RawTensor {
	return m.compare(a, b, func(x, y float64) bool { return x > y })
}

// Not inverts a bool tensor.
func (m *MockBackend) Not(x *RawTensor) *RawTensor {
	if x.DType() != Bool {
		panic(fmt.Sprintf("mock not: requires bool tensor, got %s", x.DType()))
	}
	result := m.alloc(x.Shape(), Bool)
	src := x.AsBool()
	dst := result.AsBool()
	for i, v := range src {
		dst[i] = !v
	}
	return result
}

// Sum reduces all elements to a single-element tensor.
func (m *MockBackend) Sum(x *RawTensor) *RawTensor {
	result := m.alloc(Shape{1}, x.DType())
	src := m.toFloat64(x)
	total := 0.0
	for _, v := range src {
		total += v
	}
	m.fromFloat64([]float64{total}, result)
	return result
}

// SumDim sums along dim.
func (m *MockBackend) SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	return m.reduceDim(x, dim, keepDim, false)
}

// MeanDim averages along dim.
func (m *MockBackend) MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	return m.reduceDim(x, dim, keepDim, true)
}

func (m *MockBackend) reduceDim(x *RawTensor, dim int, keepDim, mean bool) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	outer, size, inner := splitAt(shape, dim)

	outShape := reducedShape(shape, dim, keepDim)
	result := m.alloc(outShape, x.DType())

	src := m.toFloat64(x)
	out := make([]float64, outer*inner)
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			sum := 0.0
			for i := 0; i < size; i++ {
				sum += src[(o*size+i)*inner+in]
			}
			if mean {
				sum /= float64(size)
			}
			out[o*inner+in] = sum
		}
	}
	m.fromFloat64(out, result)
	return result
}

// Argmax returns int32 indices of the maximum along dim.
func (m *MockBackend) Argmax(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	outer, size, inner := splitAt(shape, dim)

	result := m.alloc(reducedShape(shape, dim, false), Int32)
	src := m.toFloat64(x)
	dst := result.AsInt32()
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			best, bestIdx := math.Inf(-1), 0
			for i := 0; i < size; i++ {
				if v := src[(o*size+i)*inner+in]; v > best {
					best, bestIdx = v, i
				}
			}
			dst[o*inner+in] = int32(bestIdx)
		}
	}
	return result
}

// Where selects from x where condition holds, else from y.
func (m *MockBackend) Where(condition, x, y *RawTensor) *RawTensor {
	if condition.DType() != Bool {
		panic(fmt.Sprintf("mock where: condition must be bool, got %s", condition.DType()))
	}
	outShape, _, err := BroadcastShapes(condition.Shape(), x.Shape())
	if err != nil {
		panic(err)
	}
	outShape, _, err = BroadcastShapes(outShape, y.Shape())
	if err != nil {
		panic(err)
	}
	result := m.alloc(outShape, x.DType())

	cond := condition.AsBool()
	xData := m.toFloat64(x)
	yData := m.toFloat64(y)
	out := make([]float64, outShape.NumElements())
	for i := range out {
		if cond[broadcastIndex(i, outShape, condition.Shape())] {
			out[i] = xData[broadcastIndex(i, outShape, x.Shape())]
		} else {
			out[i] = yData[broadcastIndex(i, outShape, y.Shape())]
		}
	}
	m.fromFloat64(out, result)
	return result
}

// Cast converts the tensor to a different data type.
func (m *MockBackend) Cast(x *RawTensor, dtype DataType) *RawTensor {
	result := m.alloc(x.Shape(), dtype)
	m.fromFloat64(m.toFloat64(x), result)
	return result
}

func (m *MockBackend) alloc(shape Shape, dtype DataType) *RawTensor {
	result, err := NewRaw(shape, dtype, m.Device())
	if err != nil {
		panic(err)
	}
	return result
}

func (m *MockBackend) unary(x *RawTensor, op func(float64) float64) *RawTensor {
	result := m.alloc(x.Shape(), x.DType())
	src := m.toFloat64(x)
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = op(v)
	}
	m.fromFloat64(out, result)
	return result
}

func (m *MockBackend) elementWise(a, b *RawTensor, op func(float64, float64) float64) *RawTensor {
	outShape, _, err := BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}
	result := m.alloc(outShape, a.DType())

	aData := m.toFloat64(a)
	bData := m.toFloat64(b)
	out := make([]float64, outShape.NumElements())
	for i := range out {
		out[i] = op(aData[broadcastIndex(i, outShape, a.Shape())], bData[broadcastIndex(i, outShape, b.Shape())])
	}
	m.fromFloat64(out, result)
	return result
}

func (m *MockBackend) compare(a, b *RawTensor, op func(float64, float64) bool) *RawTensor {
	outShape, _, err := BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}
	result := m.alloc(outShape, Bool)

	aData := m.toFloat64(a)
	bData := m.toFloat64(b)
	dst := result.AsBool()
	for i := range dst {
		dst[i] = op(aData[broadcastIndex(i, outShape, a.Shape())], bData[broadcastIndex(i, outShape, b.Shape())])
	}
	return result
}

func (m *MockBackend) toFloat64(t *RawTensor) []float64 {
	switch t.DType() {
	case Float32:
		src := t.AsFloat32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case Float64:
		return t.AsFloat64()
	case Int32:
		src := t.AsInt32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case Int64:
		src := t.AsInt64()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case Uint8:
		src := t.AsUint8()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case Bool:
		src := t.AsBool()
		dst := make([]float64, len(src))
		for i, v := range src {
			if v {
				dst[i] = 1
			}
		}
		return dst
	default:
		panic(fmt.Sprintf("mock: unsupported dtype %s", t.DType()))
	}
}

func (m *MockBackend) fromFloat64(src []float64, t *RawTensor) {
	switch t.DType() {
	case Float32:
		dst := t.AsFloat32()
		for i, v := range src {
			dst[i] = float32(v)
		}
	case Float64:
		copy(t.AsFloat64(), src)
	case Int32:
		dst := t.AsInt32()
		for i, v := range src {
			dst[i] = int32(v)
		}
	case Int64:
		dst := t.AsInt64()
		for i, v := range src {
			dst[i] = int64(v)
		}
	case Uint8:
		dst := t.AsUint8()
		for i, v := range src {
			dst[i] = uint8(v)
		}
	case Bool:
		dst := t.AsBool()
		for i, v := range src {
			dst[i] = v != 0
		}
	}
}

func scalarToFloat64(scalar any) float64 {
	switch v := scalar.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint8:
		return float64(v)
	default:
		panic(fmt.Sprintf("unsupported scalar type %T", scalar))
	}
}

// broadcastIndex maps a flat index in outShape onto the corresponding flat
// index in inShape under broadcasting (size-1 dims pin to index 0).
func broadcastIndex(flatIdx int, outShape, inShape Shape) int {
	outStrides := outShape.ComputeStrides()
	inStrides := inShape.ComputeStrides()

	inIdx := 0
	offset := len(outShape) - len(inShape)
	rem := flatIdx
	for i := 0; i < len(outShape); i++ {
		idx := rem / outStrides[i]
		rem %= outStrides[i]
		if i < offset {
			continue
		}
		if inShape[i-offset] == 1 {
			continue
		}
		inIdx += idx * inStrides[i-offset]
	}
	return inIdx
}

// splitAt factors a shape into (outer, size, inner) products around dim.
func splitAt(shape Shape, dim int) (outer, size, inner int) {
	outer, size, inner = 1, shape[dim], 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	return outer, size, inner
}

// reducedShape drops or keeps dim as size 1 after a reduction.
func reducedShape(shape Shape, dim int, keepDim bool) Shape {
	if keepDim {
		out := shape.Clone()
		out[dim] = 1
		return out
	}
	if len(shape) == 1 {
		return Shape{1}
	}
	out := make(Shape, 0, len(shape)-1)
	out = append(out, shape[:dim]...)
	out = append(out, shape[dim+1:]...)
	return out
}
