package nn

import (
	"github.com/spot-ml/spot/internal/tensor"
)

// Parameter is a named model weight.
//
// Parameters are created at layer construction, optionally overwritten by a
// checkpoint loader, and from then on only read. They carry no gradient
// state; training is out of scope for this framework.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
}

// NewParameter wraps an initialized tensor as a named parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the parameter name, e.g. "weight" or "bias".
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}
