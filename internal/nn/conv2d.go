package nn

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// Conv2D is a 2D convolution layer with a square kernel.
//
// Input [batch, in_channels, h, w] maps to
// [batch, out_channels, (h+2p-k)/s+1, (w+2p-k)/s+1]. Detection models use it
// for the backbone stages and for the 1x1 projection that matches backbone
// channels to the transformer's embedding width.
type Conv2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  int
	stride      int
	padding     int

	weight *Parameter[B] // [out_channels, in_channels, k, k]
	bias   *Parameter[B] // [out_channels], nil when disabled

	backend B
}

// NewConv2D creates a convolution layer with Xavier-initialized weights and
// zero bias.
func NewConv2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding int, backend B) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("Conv2D: channels must be positive, got in=%d out=%d", inChannels, outChannels))
	}
	if kernelSize <= 0 {
		panic(fmt.Sprintf("Conv2D: kernel size must be positive, got %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("Conv2D: stride must be positive, got %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("Conv2D: padding must be non-negative, got %d", padding))
	}

	fanIn := inChannels * kernelSize * kernelSize
	fanOut := outChannels * kernelSize * kernelSize
	weightShape := tensor.Shape{outChannels, inChannels, kernelSize, kernelSize}

	return &Conv2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		weight:      NewParameter("weight", Xavier(fanIn, fanOut, weightShape, backend)),
		bias:        NewParameter("bias", Zeros(tensor.Shape{outChannels}, backend)),
		backend:     backend,
	}
}

// Forward convolves the input and adds the bias.
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("Conv2D.Forward: expected [batch, channels, h, w] input, got shape %v", shape))
	}
	if shape[1] != c.inChannels {
		panic(fmt.Sprintf("Conv2D.Forward: input has %d channels, layer expects %d", shape[1], c.inChannels))
	}

	raw := c.backend.Conv2D(input.Raw(), c.weight.Tensor().Raw(), c.stride, c.padding)
	output := tensor.New[float32, B](raw, c.backend)

	if c.bias != nil {
		// [out_channels] -> [1, out_channels, 1, 1] to broadcast over the
		// batch and spatial dims.
		output = output.Add(c.bias.Tensor().Reshape(1, c.outChannels, 1, 1))
	}

	return output
}

// Parameters returns [weight, bias].
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	if c.bias != nil {
		return []*Parameter[B]{c.weight, c.bias}
	}
	return []*Parameter[B]{c.weight}
}

// OutChannels returns the number of output channels.
func (c *Conv2D[B]) OutChannels() int {
	return c.outChannels
}

// Weight returns the kernel parameter.
func (c *Conv2D[B]) Weight() *Parameter[B] {
	return c.weight
}

// Bias returns the bias parameter, nil when the layer has none.
func (c *Conv2D[B]) Bias() *Parameter[B] {
	return c.bias
}
