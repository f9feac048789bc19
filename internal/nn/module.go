// Package nn implements the neural network layers of the Spot detection
// framework: linear projections, layer normalization, masked multi-head
// attention, sinusoidal positional encodings, and the transformer
// encoder/decoder used by the detection model.
//
// Layers operate in inference mode: parameters are created once, loaded from
// checkpoints, and read concurrently without synchronization. Sequence
// tensors use the sequence-first layout [seq, batch, embed_dim].
package nn

import (
	"github.com/spot-ml/spot/internal/tensor"
)

// Module is the interface for single-input layers that can be chained.
//
// Attention and transformer layers take several inputs (masks, positional
// embeddings) and therefore do not satisfy Module; they only share its
// Parameters convention.
type Module[B tensor.Backend] interface {
	// Forward computes the module output for the input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns the module's parameters, nested modules included.
	// Modules without parameters return an empty slice.
	Parameters() []*Parameter[B]
}
