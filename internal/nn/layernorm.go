package nn

import (
	"github.com/spot-ml/spot/internal/tensor"
)

// LayerNorm normalizes activations along the last dimension:
//
//	y = gamma * (x - mean(x)) / sqrt(var(x) + eps) + beta
//
// Mean and variance are computed per position over the feature dimension,
// then the learnable gamma scale and beta shift are applied. Transformer
// layers normalize after every attention and feed-forward sublayer.
type LayerNorm[B tensor.Backend] struct {
	Gamma   *Parameter[B] // scale [d_model]
	Beta    *Parameter[B] // shift [d_model]
	Epsilon float32
	backend B
}

// NewLayerNorm creates a LayerNorm over the last dimension of size
// normalizedShape. Gamma starts at ones, beta at zeros.
func NewLayerNorm[B tensor.Backend](normalizedShape int, epsilon float32, backend B) *LayerNorm[B] {
	gamma := NewParameter("gamma", Ones(tensor.Shape{normalizedShape}, backend))
	beta := NewParameter("beta", Zeros(tensor.Shape{normalizedShape}, backend))

	return &LayerNorm[B]{
		Gamma:   gamma,
		Beta:    beta,
		Epsilon: epsilon,
		backend: backend,
	}
}

// Forward normalizes the input along its last dimension. The output shape
// equals the input shape.
func (l *LayerNorm[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	mean := x.MeanDim(-1, true)
	centered := x.Sub(mean)

	variance := centered.Mul(centered).MeanDim(-1, true)
	invStd := variance.AddScalar(l.Epsilon).Rsqrt()

	normalized := centered.Mul(invStd)

	// gamma and beta are [d_model]; right-aligned broadcasting stretches
	// them over the leading dimensions.
	return normalized.Mul(l.Gamma.Tensor()).Add(l.Beta.Tensor())
}

// Parameters returns gamma and beta.
func (l *LayerNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.Gamma, l.Beta}
}
