package nn

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// MaxPool2D downsamples spatially by taking the maximum over each window.
// It has no parameters.
type MaxPool2D[B tensor.Backend] struct {
	kernelSize int
	stride     int
	backend    B
}

// NewMaxPool2D creates a pooling layer; kernelSize == stride gives the usual
// non-overlapping pooling.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, backend B) *MaxPool2D[B] {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("MaxPool2D: kernel size must be positive, got %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("MaxPool2D: stride must be positive, got %d", stride))
	}

	return &MaxPool2D[B]{kernelSize: kernelSize, stride: stride, backend: backend}
}

// Forward pools [batch, channels, h, w] down to
// [batch, channels, (h-k)/s+1, (w-k)/s+1].
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if len(input.Shape()) != 4 {
		panic(fmt.Sprintf("MaxPool2D.Forward: expected [batch, channels, h, w] input, got shape %v", input.Shape()))
	}

	raw := m.backend.MaxPool2D(input.Raw(), m.kernelSize, m.stride)
	return tensor.New[float32, B](raw, m.backend)
}

// Parameters returns nil; pooling has no parameters.
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] {
	return nil
}
