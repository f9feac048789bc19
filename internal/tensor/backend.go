package tensor

// Backend is the interface compute backends implement. All operations take
// and return RawTensor values; shape and dtype validation is the backend's
// responsibility and misuse panics.
//
// Implementations:
//   - cpu: portable kernels, gonum-backed matrix products
//   - webgpu: WGSL compute pipelines for the hot ops, CPU delegate otherwise
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Element-wise operations against a scalar.
	AddScalar(x *RawTensor, scalar any) *RawTensor
	SubScalar(x *RawTensor, scalar any) *RawTensor
	MulScalar(x *RawTensor, scalar any) *RawTensor
	DivScalar(x *RawTensor, scalar any) *RawTensor

	// MatMul multiplies two 2D matrices: (M, K) @ (K, N) -> (M, N).
	MatMul(a, b *RawTensor) *RawTensor

	// BatchMatMul multiplies matching trailing matrices over shared leading
	// dims: [..., M, K] @ [..., K, N] -> [..., M, N] for 3D and 4D inputs.
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Convolutional primitives over (N, C, H, W) inputs.
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor

	// Shape manipulation.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor
	Unsqueeze(x *RawTensor, dim int) *RawTensor
	Squeeze(x *RawTensor, dim int) *RawTensor
	Cat(tensors []*RawTensor, dim int) *RawTensor

	// Element-wise math.
	Exp(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor
	Rsqrt(x *RawTensor) *RawTensor
	Sin(x *RawTensor) *RawTensor
	Cos(x *RawTensor) *RawTensor

	// Softmax normalizes along dim with the max subtracted per row first.
	Softmax(x *RawTensor, dim int) *RawTensor

	// Comparisons produce bool tensors; Not inverts one.
	Equal(a, b *RawTensor) *RawTensor
	Greater(a, b *RawTensor) *RawTensor
	Not(x *RawTensor) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	Argmax(x *RawTensor, dim int) *RawTensor

	// Where selects x where condition holds, else y, with broadcasting.
	Where(condition, x, y *RawTensor) *RawTensor

	// Cast converts to a different data type.
	Cast(x *RawTensor, dtype DataType) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
