package nn

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// TransformerConfig configures the detection transformer and its layers.
type TransformerConfig struct {
	EmbedDim      int     // d_model, channel width of every token (e.g. 256)
	NumHeads      int     // attention heads, must divide EmbedDim
	FFNDim        int     // feed-forward hidden width (e.g. 2048)
	EncoderLayers int     // encoder depth, 0 for an identity encoder
	DecoderLayers int     // decoder depth
	Activation    string  // "relu" (default) or "gelu"
	NormEps       float32 // layer norm epsilon, 1e-5 when zero
	Dropout       float32 // accepted for config compatibility; inference ignores it
}

// withDefaults fills zero-value fields with the standard settings.
func (c TransformerConfig) withDefaults() TransformerConfig {
	if c.Activation == "" {
		c.Activation = "relu"
	}
	if c.NormEps == 0 {
		c.NormEps = 1e-5
	}
	return c
}

func (c TransformerConfig) validate() {
	if c.EmbedDim <= 0 {
		panic(fmt.Sprintf("Transformer: embed_dim must be positive, got %d", c.EmbedDim))
	}
	if c.NumHeads <= 0 {
		panic(fmt.Sprintf("Transformer: num_heads must be positive, got %d", c.NumHeads))
	}
	if c.EmbedDim%c.NumHeads != 0 {
		panic(fmt.Sprintf("Transformer: embed_dim (%d) must be divisible by num_heads (%d)",
			c.EmbedDim, c.NumHeads))
	}
	if c.FFNDim <= 0 {
		panic(fmt.Sprintf("Transformer: ffn_dim must be positive, got %d", c.FFNDim))
	}
	if c.EncoderLayers < 0 || c.DecoderLayers < 0 {
		panic(fmt.Sprintf("Transformer: layer counts must be non-negative, got encoder=%d decoder=%d",
			c.EncoderLayers, c.DecoderLayers))
	}
}

// activationFromName maps a config name to an activation module.
func activationFromName[B tensor.Backend](name string) Module[B] {
	switch name {
	case "relu":
		return NewReLU[B]()
	case "gelu":
		return NewGELU[B]()
	default:
		panic(fmt.Sprintf("Transformer: unknown activation %q", name))
	}
}

// TransformerEncoderLayer is one post-norm encoder layer: self-attention over
// the image token sequence followed by a feed-forward network, each with a
// residual connection and layer normalization.
//
// The position embedding is added to queries and keys only; values and the
// residual stream carry the raw features.
type TransformerEncoderLayer[B tensor.Backend] struct {
	SelfAttn *MultiHeadAttention[B]
	FFN      *FFN[B]
	Norm1    *LayerNorm[B]
	Norm2    *LayerNorm[B]
}

// NewTransformerEncoderLayer creates an encoder layer with fresh parameters.
func NewTransformerEncoderLayer[B tensor.Backend](config TransformerConfig, backend B) *TransformerEncoderLayer[B] {
	config = config.withDefaults()
	config.validate()

	return &TransformerEncoderLayer[B]{
		SelfAttn: NewMultiHeadAttention(config.EmbedDim, config.NumHeads, backend),
		FFN:      NewFFN(config.EmbedDim, config.FFNDim, activationFromName[B](config.Activation), backend),
		Norm1:    NewLayerNorm(config.EmbedDim, config.NormEps, backend),
		Norm2:    NewLayerNorm(config.EmbedDim, config.NormEps, backend),
	}
}

// Forward processes one encoder layer.
//
// Shapes: x and pos are [seq, batch, embed_dim]; mask, when present, is
// [batch, seq] with true marking padded tokens.
func (l *TransformerEncoderLayer[B]) Forward(
	x *tensor.Tensor[float32, B],
	mask KeyPaddingMask[B],
	pos *tensor.Tensor[float32, B],
) *tensor.Tensor[float32, B] {
	q := x.Add(pos)
	attnOut, _ := l.SelfAttn.Attend(q, q, x, mask, NoAttnMask[B]())
	x = l.Norm1.Forward(x.Add(attnOut))

	ffnOut := l.FFN.Forward(x)
	return l.Norm2.Forward(x.Add(ffnOut))
}

// Parameters returns the layer's parameters.
func (l *TransformerEncoderLayer[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	params = append(params, l.SelfAttn.Parameters()...)
	params = append(params, l.FFN.Parameters()...)
	params = append(params, l.Norm1.Parameters()...)
	params = append(params, l.Norm2.Parameters()...)
	return params
}

// TransformerEncoder chains encoder layers. Each layer owns its own
// parameters; sharing one layer across depths would collapse the stack into
// a single repeated transformation. A zero-layer encoder passes its input
// through unchanged.
type TransformerEncoder[B tensor.Backend] struct {
	Layers []*TransformerEncoderLayer[B]
}

// NewTransformerEncoder creates config.EncoderLayers independently
// parameterized layers.
func NewTransformerEncoder[B tensor.Backend](config TransformerConfig, backend B) *TransformerEncoder[B] {
	layers := make([]*TransformerEncoderLayer[B], config.EncoderLayers)
	for i := range layers {
		layers[i] = NewTransformerEncoderLayer(config, backend)
	}
	return &TransformerEncoder[B]{Layers: layers}
}

// Forward feeds the sequence through every layer in order.
func (e *TransformerEncoder[B]) Forward(
	x *tensor.Tensor[float32, B],
	mask KeyPaddingMask[B],
	pos *tensor.Tensor[float32, B],
) *tensor.Tensor[float32, B] {
	for _, layer := range e.Layers {
		x = layer.Forward(x, mask, pos)
	}
	return x
}

// Parameters returns the parameters of all layers.
func (e *TransformerEncoder[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, layer := range e.Layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}

// TransformerDecoderLayer is one post-norm decoder layer: self-attention
// among the object queries, cross-attention from queries into the encoder
// memory, then a feed-forward network. Queries are a fixed-length sequence
// and are never padding-masked; the memory keeps the feature mask from the
// encoder side.
type TransformerDecoderLayer[B tensor.Backend] struct {
	SelfAttn  *MultiHeadAttention[B]
	CrossAttn *MultiHeadAttention[B]
	FFN       *FFN[B]
	Norm1     *LayerNorm[B]
	Norm2     *LayerNorm[B]
	Norm3     *LayerNorm[B]
}

// NewTransformerDecoderLayer creates a decoder layer with fresh parameters.
func NewTransformerDecoderLayer[B tensor.Backend](config TransformerConfig, backend B) *TransformerDecoderLayer[B] {
	config = config.withDefaults()
	config.validate()

	return &TransformerDecoderLayer[B]{
		SelfAttn:  NewMultiHeadAttention(config.EmbedDim, config.NumHeads, backend),
		CrossAttn: NewMultiHeadAttention(config.EmbedDim, config.NumHeads, backend),
		FFN:       NewFFN(config.EmbedDim, config.FFNDim, activationFromName[B](config.Activation), backend),
		Norm1:     NewLayerNorm(config.EmbedDim, config.NormEps, backend),
		Norm2:     NewLayerNorm(config.EmbedDim, config.NormEps, backend),
		Norm3:     NewLayerNorm(config.EmbedDim, config.NormEps, backend),
	}
}

// Forward processes one decoder layer.
//
// Shapes:
//   - target, queryPos: [queries, batch, embed_dim]
//   - memory, pos: [mem_seq, batch, embed_dim]
//   - memoryMask, when present: [batch, mem_seq]
//
// The query position embedding is added to self-attention queries and keys
// and to cross-attention queries; the sine position embedding is added to
// cross-attention keys.
func (l *TransformerDecoderLayer[B]) Forward(
	target, memory *tensor.Tensor[float32, B],
	memoryMask KeyPaddingMask[B],
	pos, queryPos *tensor.Tensor[float32, B],
) *tensor.Tensor[float32, B] {
	q := target.Add(queryPos)
	selfOut, _ := l.SelfAttn.Attend(q, q, target, NoKeyPadding[B](), NoAttnMask[B]())
	target = l.Norm1.Forward(target.Add(selfOut))

	crossOut, _ := l.CrossAttn.Attend(
		target.Add(queryPos), memory.Add(pos), memory, memoryMask, NoAttnMask[B]())
	target = l.Norm2.Forward(target.Add(crossOut))

	ffnOut := l.FFN.Forward(target)
	return l.Norm3.Forward(target.Add(ffnOut))
}

// Parameters returns the layer's parameters.
func (l *TransformerDecoderLayer[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	params = append(params, l.SelfAttn.Parameters()...)
	params = append(params, l.CrossAttn.Parameters()...)
	params = append(params, l.FFN.Parameters()...)
	params = append(params, l.Norm1.Parameters()...)
	params = append(params, l.Norm2.Parameters()...)
	params = append(params, l.Norm3.Parameters()...)
	return params
}

// TransformerDecoder chains decoder layers and applies one final layer
// normalization after the last. Layers are independently parameterized like
// the encoder's.
type TransformerDecoder[B tensor.Backend] struct {
	Layers []*TransformerDecoderLayer[B]
	Norm   *LayerNorm[B]
}

// NewTransformerDecoder creates config.DecoderLayers independently
// parameterized layers plus the final normalization.
func NewTransformerDecoder[B tensor.Backend](config TransformerConfig, backend B) *TransformerDecoder[B] {
	config = config.withDefaults()

	layers := make([]*TransformerDecoderLayer[B], config.DecoderLayers)
	for i := range layers {
		layers[i] = NewTransformerDecoderLayer(config, backend)
	}
	return &TransformerDecoder[B]{
		Layers: layers,
		Norm:   NewLayerNorm(config.EmbedDim, config.NormEps, backend),
	}
}

// Forward runs the query sequence through every layer and normalizes the
// result. The output is [1, queries, batch, embed_dim]; the leading axis is
// reserved for stacking intermediate layer outputs.
func (d *TransformerDecoder[B]) Forward(
	target, memory *tensor.Tensor[float32, B],
	memoryMask KeyPaddingMask[B],
	pos, queryPos *tensor.Tensor[float32, B],
) *tensor.Tensor[float32, B] {
	x := target
	for _, layer := range d.Layers {
		x = layer.Forward(x, memory, memoryMask, pos, queryPos)
	}
	x = d.Norm.Forward(x)
	return x.Unsqueeze(0)
}

// Parameters returns the parameters of all layers and the final norm.
func (d *TransformerDecoder[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, layer := range d.Layers {
		params = append(params, layer.Parameters()...)
	}
	params = append(params, d.Norm.Parameters()...)
	return params
}

// Transformer is the full encoder-decoder over spatial feature maps. It owns
// the flattening protocol: feature maps [batch, embed_dim, h, w] become
// sequence-first token sequences [h*w, batch, embed_dim] in row-major
// spatial order, the mask [batch, h, w] flattens to [batch, h*w], and the
// query table expands across the batch.
type Transformer[B tensor.Backend] struct {
	Encoder *TransformerEncoder[B]
	Decoder *TransformerDecoder[B]
	Config  TransformerConfig
	backend B
}

// NewTransformer creates the encoder-decoder pair.
func NewTransformer[B tensor.Backend](config TransformerConfig, backend B) *Transformer[B] {
	config = config.withDefaults()
	config.validate()

	return &Transformer[B]{
		Encoder: NewTransformerEncoder(config, backend),
		Decoder: NewTransformerDecoder(config, backend),
		Config:  config,
		backend: backend,
	}
}

// Forward runs the full transformer.
//
// Inputs:
//   - src: feature map [batch, embed_dim, h, w]
//   - mask: feature mask [batch, h, w], true = padded
//   - queryEmbed: learned query table [queries, embed_dim]
//   - posEmbed: position embedding [batch, embed_dim, h, w]
//
// Returns the decoder state [1, queries, batch, embed_dim] and the encoder
// memory restored to [batch, embed_dim, h, w].
func (t *Transformer[B]) Forward(
	src *tensor.Tensor[float32, B],
	mask *tensor.Tensor[bool, B],
	queryEmbed *QueryEmbedding[B],
	posEmbed *tensor.Tensor[float32, B],
) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	srcShape := src.Shape()
	if len(srcShape) != 4 {
		panic(fmt.Sprintf("Transformer.Forward: expected [batch, embed_dim, h, w] features, got %v", srcShape))
	}
	batch, dim, h, w := srcShape[0], srcShape[1], srcShape[2], srcShape[3]
	if dim != t.Config.EmbedDim {
		panic(fmt.Sprintf("Transformer.Forward: feature channels %d != embed_dim %d", dim, t.Config.EmbedDim))
	}

	// [batch, dim, h, w] -> [h*w, batch, dim]; row-major spatial order makes
	// token s correspond to cell (s/w, s%w).
	seq := src.Reshape(batch, dim, h*w).Transpose(2, 0, 1)
	pos := posEmbed.Reshape(batch, dim, h*w).Transpose(2, 0, 1)
	keyMask := WithKeyPadding(mask.Reshape(batch, h*w))

	queries := queryEmbed.Expand(batch)
	target := tensor.Zeros[float32](queries.Shape(), t.backend)

	memory := t.Encoder.Forward(seq, keyMask, pos)
	decoded := t.Decoder.Forward(target, memory, keyMask, pos, queries)

	spatialMemory := memory.Transpose(1, 2, 0).Reshape(batch, dim, h, w)

	return decoded, spatialMemory
}

// Parameters returns all encoder and decoder parameters.
func (t *Transformer[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	params = append(params, t.Encoder.Parameters()...)
	params = append(params, t.Decoder.Parameters()...)
	return params
}
