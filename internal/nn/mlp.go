package nn

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// MLP is a stack of linear layers with ReLU between them. The final layer is
// left unactivated so heads can apply their own output function, e.g. a
// sigmoid for box coordinates.
type MLP[B tensor.Backend] struct {
	layers []*Linear[B]
	relu   *ReLU[B]
}

// NewMLP creates an MLP with numLayers linear layers mapping
// inDim -> hiddenDim -> ... -> hiddenDim -> outDim.
func NewMLP[B tensor.Backend](inDim, hiddenDim, outDim, numLayers int, backend B) *MLP[B] {
	if numLayers < 1 {
		panic(fmt.Sprintf("MLP: need at least one layer, got %d", numLayers))
	}

	layers := make([]*Linear[B], 0, numLayers)
	for i := 0; i < numLayers; i++ {
		in := hiddenDim
		if i == 0 {
			in = inDim
		}
		out := hiddenDim
		if i == numLayers-1 {
			out = outDim
		}
		layers = append(layers, NewLinear(in, out, backend))
	}

	return &MLP[B]{layers: layers, relu: NewReLU[B]()}
}

// Forward applies the layer stack. Input may be 2D or 3D like Linear.
func (m *MLP[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x := input
	for i, layer := range m.layers {
		x = layer.Forward(x)
		if i < len(m.layers)-1 {
			x = m.relu.Forward(x)
		}
	}
	return x
}

// Parameters returns the parameters of all linear layers.
func (m *MLP[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, layer := range m.layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}

// Layers exposes the linear layers for checkpoint loading.
func (m *MLP[B]) Layers() []*Linear[B] {
	return m.layers
}
