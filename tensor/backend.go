// Copyright 2025 Spot ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/spot-ml/spot/internal/tensor"

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - backend/cpu: Portable pure-Go kernels with gonum-backed matrix products
//   - backend/webgpu: GPU compute via WGSL pipelines with CPU delegation
//
// Example:
//
//	import (
//	    "github.com/spot-ml/spot/tensor"
//	    "github.com/spot-ml/spot/backend/cpu"
//	)
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)  // Uses backend.Add under the hood
type Backend interface {
	// Element-wise binary operations with broadcasting.
	Add(a, b *RawTensor) *RawTensor // Element-wise addition.
	Sub(a, b *RawTensor) *RawTensor // Element-wise subtraction.
	Mul(a, b *RawTensor) *RawTensor // Element-wise multiplication.
	Div(a, b *RawTensor) *RawTensor // Element-wise division.

	// Scalar operations (element-wise with scalar).
	AddScalar(x *RawTensor, scalar any) *RawTensor // Add scalar.
	SubScalar(x *RawTensor, scalar any) *RawTensor // Subtract scalar.
	MulScalar(x *RawTensor, scalar any) *RawTensor // Multiply by scalar.
	DivScalar(x *RawTensor, scalar any) *RawTensor // Divide by scalar.

	// Matrix operations.
	MatMul(a, b *RawTensor) *RawTensor      // Matrix multiplication (2D).
	BatchMatMul(a, b *RawTensor) *RawTensor // Batched matrix multiplication for 3D/4D tensors.

	// Convolutional operations.
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor // 2D convolution.
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor   // 2D max pooling.

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor // Reshape tensor.
	Transpose(t *RawTensor, axes ...int) *RawTensor  // Transpose dimensions.
	Expand(x *RawTensor, shape Shape) *RawTensor     // Broadcast to shape.
	Unsqueeze(x *RawTensor, dim int) *RawTensor      // Add dimension of size 1.
	Squeeze(x *RawTensor, dim int) *RawTensor        // Remove dimension of size 1.
	Cat(tensors []*RawTensor, dim int) *RawTensor    // Concatenate along dimension.

	// Math operations (element-wise).
	Exp(x *RawTensor) *RawTensor   // Exponential.
	Sqrt(x *RawTensor) *RawTensor  // Square root.
	Rsqrt(x *RawTensor) *RawTensor // Reciprocal square root (1/sqrt(x)).
	Sin(x *RawTensor) *RawTensor   // Sine.
	Cos(x *RawTensor) *RawTensor   // Cosine.

	// Activation functions.
	Softmax(x *RawTensor, dim int) *RawTensor // Softmax along dimension.

	// Comparison operations (element-wise, return bool tensor).
	Equal(a, b *RawTensor) *RawTensor   // a == b.
	Greater(a, b *RawTensor) *RawTensor // a > b.
	Not(x *RawTensor) *RawTensor        // Logical NOT on bool tensors.

	// Reduction operations.
	Sum(x *RawTensor) *RawTensor                            // Total sum (scalar result).
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // Sum along dimension.
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // Mean along dimension.
	Argmax(x *RawTensor, dim int) *RawTensor                // Index of maximum value along dimension.

	// Indexing operations.
	Where(condition, x, y *RawTensor) *RawTensor // Conditional element selection.

	// Type conversion.
	Cast(x *RawTensor, dtype DataType) *RawTensor // Cast to different data type.

	// Metadata.
	Name() string   // Backend name (e.g., "CPU", "WebGPU").
	Device() Device // Device type.
}

// Compile-time check that internal Backend implements public Backend.
var _ Backend = tensor.Backend(nil)
