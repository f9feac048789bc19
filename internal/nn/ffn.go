package nn

import (
	"github.com/spot-ml/spot/internal/tensor"
)

// FFN is the transformer feed-forward network:
//
//	FFN(x) = Linear2(activation(Linear1(x)))
//
// Linear1 expands embed_dim to ffn_dim, the activation is applied
// element-wise, and Linear2 projects back to embed_dim. Detection
// transformers typically use ffn_dim = 8 * embed_dim (2048 for D=256) with
// ReLU.
type FFN[B tensor.Backend] struct {
	Linear1    *Linear[B] // [embed_dim -> ffn_dim]
	Linear2    *Linear[B] // [ffn_dim -> embed_dim]
	Activation Module[B]
	backend    B
}

// NewFFN creates a feed-forward network with the given activation; pass
// NewReLU for the standard variant.
func NewFFN[B tensor.Backend](embedDim, ffnDim int, activation Module[B], backend B) *FFN[B] {
	return &FFN[B]{
		Linear1:    NewLinear(embedDim, ffnDim, backend),
		Linear2:    NewLinear(ffnDim, embedDim, backend),
		Activation: activation,
		backend:    backend,
	}
}

// Forward expands, activates, and projects back. Input may be 2D
// [batch, embed_dim] or 3D [seq, batch, embed_dim]; the output keeps the
// input shape.
func (f *FFN[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x = f.Linear1.Forward(x)
	x = f.Activation.Forward(x)
	return f.Linear2.Forward(x)
}

// Parameters returns the parameters of both linear layers.
func (f *FFN[B]) Parameters() []*Parameter[B] {
	params := make([]*Parameter[B], 0, 4)
	params = append(params, f.Linear1.Parameters()...)
	params = append(params, f.Linear2.Parameters()...)
	return params
}
