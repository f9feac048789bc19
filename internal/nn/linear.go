package nn

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W.T + b.
//
// The weight matrix has shape [out_features, in_features], the bias
// [out_features]. Input may be 2D [batch, in_features] or 3D
// [seq, batch, in_features]; 3D input is flattened to rows for the matrix
// product and restored afterwards, so sequence layers never reshape by hand.
//
// Weights use Xavier initialization, biases start at zero.
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features], nil when disabled
	backend     B
}

// NewLinear creates a Linear layer with bias.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("Linear: feature counts must be positive, got in=%d out=%d", inFeatures, outFeatures))
	}

	weight := NewParameter("weight", Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, backend))
	bias := NewParameter("bias", Zeros(tensor.Shape{outFeatures}, backend))

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward applies the affine transformation.
//
// Input: [batch, in_features] or [seq, batch, in_features].
// Output: same leading dims with the last dim replaced by out_features.
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	ndim := len(shape)
	if ndim != 2 && ndim != 3 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D or 3D input, got shape %v", shape))
	}
	if shape[ndim-1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected %d input features, got %d", l.inFeatures, shape[ndim-1]))
	}

	x := input
	if ndim == 3 {
		x = x.Reshape(shape[0]*shape[1], l.inFeatures)
	}

	wT := l.weight.Tensor().Transpose() // [in_features, out_features]
	output := x.MatMul(wT)

	if l.bias != nil {
		b := l.bias.Tensor().Reshape(1, l.outFeatures)
		output = output.Add(b)
	}

	if ndim == 3 {
		output = output.Reshape(shape[0], shape[1], l.outFeatures)
	}

	return output
}

// Parameters returns [weight, bias], or [weight] without bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	if l.bias != nil {
		return []*Parameter[B]{l.weight, l.bias}
	}
	return []*Parameter[B]{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter, nil when the layer has none.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the input width.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the output width.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}

// StateDict returns the layer's parameters keyed by name.
func (l *Linear[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	stateDict["weight"] = l.weight.Tensor().Raw()
	if l.bias != nil {
		stateDict["bias"] = l.bias.Tensor().Raw()
	}
	return stateDict
}

// LoadStateDict copies checkpoint tensors into the layer's parameters,
// validating shapes and dtypes.
func (l *Linear[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	weightRaw, ok := stateDict["weight"]
	if !ok {
		return fmt.Errorf("missing weight in state dict")
	}
	if err := copyParam(l.weight, weightRaw, tensor.Shape{l.outFeatures, l.inFeatures}); err != nil {
		return fmt.Errorf("weight: %w", err)
	}

	if l.bias != nil {
		biasRaw, ok := stateDict["bias"]
		if !ok {
			return fmt.Errorf("missing bias in state dict")
		}
		if err := copyParam(l.bias, biasRaw, tensor.Shape{l.outFeatures}); err != nil {
			return fmt.Errorf("bias: %w", err)
		}
	}

	return nil
}

// copyParam copies a raw checkpoint tensor into an existing parameter.
func copyParam[B tensor.Backend](p *Parameter[B], raw *tensor.RawTensor, want tensor.Shape) error {
	if !raw.Shape().Equal(want) {
		return fmt.Errorf("shape mismatch: expected %v, got %v", want, raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("dtype mismatch: expected float32, got %v", raw.DType())
	}
	copy(p.Tensor().Data(), raw.AsFloat32())
	return nil
}
