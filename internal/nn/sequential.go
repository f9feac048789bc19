package nn

import (
	"github.com/spot-ml/spot/internal/tensor"
)

// Sequential chains modules, feeding each output into the next input.
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a module chain in call order.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Add appends a module to the end of the chain.
func (s *Sequential[B]) Add(module Module[B]) {
	s.modules = append(s.modules, module)
}

// Forward runs the input through every module in order.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Parameters returns the concatenated parameters of all modules.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// Len returns the number of modules in the chain.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}
