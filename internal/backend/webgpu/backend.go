package webgpu

import (
	"github.com/spot-ml/spot/internal/backend/cpu"
	"github.com/spot-ml/spot/internal/tensor"
)

// Backend implements tensor operations on GPU via WebGPU compute shaders.
// Operations without a shader implementation, and inputs the shaders do
// not cover (non-float32 dtypes, broadcast shapes), run on an embedded
// CPU backend instead.
type Backend struct {
	gpu *gpuContext
	cpu *cpu.CPUBackend
}

var _ tensor.Backend = (*Backend)(nil)

// New creates a WebGPU backend bound to the default high-performance
// adapter. It returns an error when the native library is missing or no
// adapter can be acquired; it never falls back to CPU-only silently.
func New() (*Backend, error) {
	gpu, err := newGPUContext()
	if err != nil {
		return nil, err
	}
	return &Backend{gpu: gpu, cpu: cpu.New()}, nil
}

// IsAvailable reports whether a WebGPU adapter can be acquired on this
// system. It is safe to call on platforms without the native library.
func IsAvailable() bool {
	return gpuAvailable()
}

// Release frees all GPU resources held by the backend. The backend must
// not be used afterwards. Release is safe to call more than once.
func (b *Backend) Release() {
	if b.gpu != nil {
		b.gpu.release()
		b.gpu = nil
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "WebGPU"
}

// Device returns the compute device.
func (b *Backend) Device() tensor.Device {
	return tensor.WebGPU
}

// binaryOnGPU reports whether a binary element-wise op can run on GPU.
// The shaders operate index-for-index, so both operands must be float32
// and already the same shape; broadcasting stays on the CPU. Empty
// tensors stay on the CPU too, since zero-size GPU buffers are invalid.
func (b *Backend) binaryOnGPU(x, y *tensor.RawTensor) bool {
	return b.gpu != nil &&
		x.DType() == tensor.Float32 && y.DType() == tensor.Float32 &&
		x.Shape().Equal(y.Shape()) &&
		x.NumElements() > 0
}

func (b *Backend) unaryOnGPU(x *tensor.RawTensor) bool {
	return b.gpu != nil && x.DType() == tensor.Float32 && x.NumElements() > 0
}

// Add performs element-wise addition.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	if b.binaryOnGPU(x, y) {
		result, err := b.gpu.runBinaryOp(x, y, "add", addShader)
		if err != nil {
			panic("webgpu: Add: " + err.Error())
		}
		return result
	}
	return b.cpu.Add(x, y)
}

// Sub performs element-wise subtraction.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	if b.binaryOnGPU(x, y) {
		result, err := b.gpu.runBinaryOp(x, y, "sub", subShader)
		if err != nil {
			panic("webgpu: Sub: " + err.Error())
		}
		return result
	}
	return b.cpu.Sub(x, y)
}

// Mul performs element-wise multiplication.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	if b.binaryOnGPU(x, y) {
		result, err := b.gpu.runBinaryOp(x, y, "mul", mulShader)
		if err != nil {
			panic("webgpu: Mul: " + err.Error())
		}
		return result
	}
	return b.cpu.Mul(x, y)
}

// Div performs element-wise division.
func (b *Backend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	if b.binaryOnGPU(x, y) {
		result, err := b.gpu.runBinaryOp(x, y, "div", divShader)
		if err != nil {
			panic("webgpu: Div: " + err.Error())
		}
		return result
	}
	return b.cpu.Div(x, y)
}

// AddScalar adds a scalar to every element.
func (b *Backend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return b.cpu.AddScalar(x, scalar)
}

// SubScalar subtracts a scalar from every element.
func (b *Backend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return b.cpu.SubScalar(x, scalar)
}

// MulScalar multiplies every element by a scalar.
func (b *Backend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return b.cpu.MulScalar(x, scalar)
}

// DivScalar divides every element by a scalar.
func (b *Backend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return b.cpu.DivScalar(x, scalar)
}

// MatMul multiplies two 2D matrices: (M, K) @ (K, N) -> (M, N).
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	if b.gpu != nil &&
		x.DType() == tensor.Float32 && y.DType() == tensor.Float32 &&
		len(x.Shape()) == 2 && len(y.Shape()) == 2 &&
		x.Shape()[1] == y.Shape()[0] &&
		x.NumElements() > 0 && y.NumElements() > 0 {
		result, err := b.gpu.runMatMul(x, y)
		if err != nil {
			panic("webgpu: MatMul: " + err.Error())
		}
		return result
	}
	return b.cpu.MatMul(x, y)
}

// BatchMatMul multiplies matching trailing matrices over shared leading
// dims: [..., M, K] @ [..., K, N] -> [..., M, N].
func (b *Backend) BatchMatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	if b.batchMatMulOnGPU(x, y) {
		result, err := b.gpu.runBatchMatMul(x, y)
		if err != nil {
			panic("webgpu: BatchMatMul: " + err.Error())
		}
		return result
	}
	return b.cpu.BatchMatMul(x, y)
}

func (b *Backend) batchMatMulOnGPU(x, y *tensor.RawTensor) bool {
	if b.gpu == nil || x.DType() != tensor.Float32 || y.DType() != tensor.Float32 {
		return false
	}
	if x.NumElements() == 0 || y.NumElements() == 0 {
		return false
	}
	xs, ys := x.Shape(), y.Shape()
	n := len(xs)
	if n != len(ys) || (n != 3 && n != 4) {
		return false
	}
	for i := 0; i < n-2; i++ {
		if xs[i] != ys[i] {
			return false
		}
	}
	return xs[n-1] == ys[n-2]
}

// Conv2D performs 2D convolution over (N, C, H, W) input.
func (b *Backend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.cpu.Conv2D(input, kernel, stride, padding)
}

// MaxPool2D performs 2D max pooling over (N, C, H, W) input.
func (b *Backend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	return b.cpu.MaxPool2D(input, kernelSize, stride)
}

// Reshape returns a tensor with a new shape and the same elements.
func (b *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	return b.cpu.Reshape(t, newShape)
}

// Transpose permutes tensor dimensions. The plain 2D case runs on GPU.
func (b *Backend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	if b.unaryOnGPU(t) && len(t.Shape()) == 2 && transposeIs2DSwap(axes) {
		result, err := b.gpu.runTranspose(t)
		if err != nil {
			panic("webgpu: Transpose: " + err.Error())
		}
		return result
	}
	return b.cpu.Transpose(t, axes...)
}

func transposeIs2DSwap(axes []int) bool {
	return len(axes) == 0 || (len(axes) == 2 && axes[0] == 1 && axes[1] == 0)
}

// Expand broadcasts size-1 dims of x to the given shape.
func (b *Backend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	return b.cpu.Expand(x, shape)
}

// Unsqueeze inserts a size-1 dimension at dim.
func (b *Backend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.cpu.Unsqueeze(x, dim)
}

// Squeeze removes a size-1 dimension at dim.
func (b *Backend) Squeeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.cpu.Squeeze(x, dim)
}

// Cat concatenates tensors along dim.
func (b *Backend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.cpu.Cat(tensors, dim)
}

// Exp computes e^x element-wise.
func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	if b.unaryOnGPU(x) {
		result, err := b.gpu.runUnaryOp(x, "exp", expShader)
		if err != nil {
			panic("webgpu: Exp: " + err.Error())
		}
		return result
	}
	return b.cpu.Exp(x)
}

// Sqrt computes the element-wise square root.
func (b *Backend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	if b.unaryOnGPU(x) {
		result, err := b.gpu.runUnaryOp(x, "sqrt", sqrtShader)
		if err != nil {
			panic("webgpu: Sqrt: " + err.Error())
		}
		return result
	}
	return b.cpu.Sqrt(x)
}

// Rsqrt computes the element-wise reciprocal square root.
func (b *Backend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	if b.unaryOnGPU(x) {
		result, err := b.gpu.runUnaryOp(x, "rsqrt", rsqrtShader)
		if err != nil {
			panic("webgpu: Rsqrt: " + err.Error())
		}
		return result
	}
	return b.cpu.Rsqrt(x)
}

// Sin computes the element-wise sine.
func (b *Backend) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	if b.unaryOnGPU(x) {
		result, err := b.gpu.runUnaryOp(x, "sin", sinShader)
		if err != nil {
			panic("webgpu: Sin: " + err.Error())
		}
		return result
	}
	return b.cpu.Sin(x)
}

// Cos computes the element-wise cosine.
func (b *Backend) Cos(x *tensor.RawTensor) *tensor.RawTensor {
	if b.unaryOnGPU(x) {
		result, err := b.gpu.runUnaryOp(x, "cos", cosShader)
		if err != nil {
			panic("webgpu: Cos: " + err.Error())
		}
		return result
	}
	return b.cpu.Cos(x)
}

// Softmax normalizes along dim. The last-dimension case, which is what
// attention and classification use, runs one GPU thread per row.
func (b *Backend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	ndim := len(x.Shape())
	if dim < 0 {
		dim = ndim + dim
	}
	if b.unaryOnGPU(x) && ndim >= 1 && dim == ndim-1 {
		result, err := b.gpu.runSoftmax(x)
		if err != nil {
			panic("webgpu: Softmax: " + err.Error())
		}
		return result
	}
	return b.cpu.Softmax(x, dim)
}

// Equal compares element-wise and returns a bool tensor.
func (b *Backend) Equal(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.cpu.Equal(x, y)
}

// Greater compares element-wise and returns a bool tensor.
func (b *Backend) Greater(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.cpu.Greater(x, y)
}

// Not inverts a bool tensor element-wise.
func (b *Backend) Not(x *tensor.RawTensor) *tensor.RawTensor {
	return b.cpu.Not(x)
}

// Sum reduces all elements to a scalar tensor.
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	return b.cpu.Sum(x)
}

// SumDim sums along dim.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.cpu.SumDim(x, dim, keepDim)
}

// MeanDim averages along dim.
func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.cpu.MeanDim(x, dim, keepDim)
}

// Argmax returns indices of maxima along dim.
func (b *Backend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.cpu.Argmax(x, dim)
}

// Where selects x where condition holds, else y.
func (b *Backend) Where(condition, x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.cpu.Where(condition, x, y)
}

// Cast converts to a different data type.
func (b *Backend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	return b.cpu.Cast(x, dtype)
}

// ReLU applies the fused rectifier kernel.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return b.cpu.ReLU(x)
}

// Sigmoid applies the fused logistic kernel.
func (b *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return b.cpu.Sigmoid(x)
}

// GELU applies the fused GELU kernel.
func (b *Backend) GELU(x *tensor.RawTensor) *tensor.RawTensor {
	return b.cpu.GELU(x)
}
