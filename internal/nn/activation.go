package nn

import (
	"github.com/spot-ml/spot/internal/tensor"
)

// ReLUBackend is implemented by backends with a fused ReLU kernel.
type ReLUBackend interface {
	ReLU(*tensor.RawTensor) *tensor.RawTensor
}

// SigmoidBackend is implemented by backends with a fused Sigmoid kernel.
type SigmoidBackend interface {
	Sigmoid(*tensor.RawTensor) *tensor.RawTensor
}

// GELUBackend is implemented by backends with a fused GELU kernel.
type GELUBackend interface {
	GELU(*tensor.RawTensor) *tensor.RawTensor
}

// ReLU applies the element-wise rectifier f(x) = max(0, x).
//
// Example:
//
//	relu := nn.NewReLU[*cpu.CPUBackend]()
//	output := relu.Forward(input) // negative values become 0
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies the rectifier.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	if fused, ok := any(backend).(ReLUBackend); ok {
		return tensor.New[float32, B](fused.ReLU(input.Raw()), backend)
	}

	// Compose from core ops: where(x > 0, x, 0).
	zeros := tensor.Zeros[float32](input.Shape(), backend)
	return tensor.Where(input.Greater(zeros), input, zeros)
}

// Parameters returns nil; ReLU has no parameters.
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// Sigmoid applies the element-wise logistic function 1 / (1 + exp(-x)),
// squashing values into (0, 1). Box coordinate heads use it to keep
// predictions inside the unit square.
type Sigmoid[B tensor.Backend] struct{}

// NewSigmoid creates a Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return &Sigmoid[B]{}
}

// Forward applies the logistic function.
func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	if fused, ok := any(backend).(SigmoidBackend); ok {
		return tensor.New[float32, B](fused.Sigmoid(input.Raw()), backend)
	}

	// Compose from core ops: 1 / (1 + exp(-x)).
	one := tensor.Ones[float32](input.Shape(), backend)
	return one.Div(input.MulScalar(-1).Exp().AddScalar(1))
}

// Parameters returns nil; Sigmoid has no parameters.
func (s *Sigmoid[B]) Parameters() []*Parameter[B] {
	return nil
}

// GELU applies the Gaussian Error Linear Unit (tanh approximation), the
// alternative feed-forward activation to ReLU in transformer layers.
type GELU[B tensor.Backend] struct{}

// NewGELU creates a GELU activation module.
func NewGELU[B tensor.Backend]() *GELU[B] {
	return &GELU[B]{}
}

// Forward applies GELU. The backend must provide the fused kernel; there is
// no composition fallback for the tanh approximation.
func (g *GELU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	fused, ok := any(backend).(GELUBackend)
	if !ok {
		panic("GELU: backend does not implement the GELU kernel")
	}
	return tensor.New[float32, B](fused.GELU(input.Raw()), backend)
}

// Parameters returns nil; GELU has no parameters.
func (g *GELU[B]) Parameters() []*Parameter[B] {
	return nil
}
