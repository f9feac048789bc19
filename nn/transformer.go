// Copyright 2025 Spot ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/spot-ml/spot/internal/nn"
	"github.com/spot-ml/spot/internal/tensor"
)

// TransformerConfig defines the configuration for a detection transformer.
//
// Fields:
//   - EmbedDim: Embedding dimension (d_model, e.g., 256)
//   - NumHeads: Number of attention heads (e.g., 8)
//   - FFNDim: FFN hidden dimension (e.g., 2048)
//   - EncoderLayers: Encoder depth (0 for an identity encoder)
//   - DecoderLayers: Decoder depth
//   - Activation: "relu" (default) or "gelu"
//   - Dropout: Accepted for config compatibility; inference ignores it
//
// Example:
//
//	config := nn.TransformerConfig{
//	    EmbedDim:      256,
//	    NumHeads:      8,
//	    FFNDim:        2048,
//	    EncoderLayers: 6,
//	    DecoderLayers: 6,
//	}
type TransformerConfig = nn.TransformerConfig

// TransformerEncoderLayer is one post-norm encoder layer: self-attention
// with positional encodings added to queries and keys, then a feed-forward
// block, each followed by a residual connection and LayerNorm.
type TransformerEncoderLayer[B tensor.Backend] = nn.TransformerEncoderLayer[B]

// NewTransformerEncoderLayer creates a single encoder layer.
func NewTransformerEncoderLayer[B tensor.Backend](config TransformerConfig, backend B) *TransformerEncoderLayer[B] {
	return nn.NewTransformerEncoderLayer(config, backend)
}

// TransformerEncoder is a stack of encoder layers sharing one configuration.
type TransformerEncoder[B tensor.Backend] = nn.TransformerEncoder[B]

// NewTransformerEncoder creates an encoder stack. With zero layers the
// encoder passes features through unchanged.
func NewTransformerEncoder[B tensor.Backend](config TransformerConfig, backend B) *TransformerEncoder[B] {
	return nn.NewTransformerEncoder(config, backend)
}

// TransformerDecoderLayer is one post-norm decoder layer: query
// self-attention, cross-attention into the encoder memory, then a
// feed-forward block, with residuals and LayerNorm after each.
type TransformerDecoderLayer[B tensor.Backend] = nn.TransformerDecoderLayer[B]

// NewTransformerDecoderLayer creates a single decoder layer.
func NewTransformerDecoderLayer[B tensor.Backend](config TransformerConfig, backend B) *TransformerDecoderLayer[B] {
	return nn.NewTransformerDecoderLayer(config, backend)
}

// TransformerDecoder is a stack of decoder layers with a final LayerNorm.
type TransformerDecoder[B tensor.Backend] = nn.TransformerDecoder[B]

// NewTransformerDecoder creates a decoder stack.
func NewTransformerDecoder[B tensor.Backend](config TransformerConfig, backend B) *TransformerDecoder[B] {
	return nn.NewTransformerDecoder(config, backend)
}

// Transformer is the full encoder-decoder pair of a detection model.
//
// Forward takes the projected feature map, its padding mask, the learned
// object queries and the positional embedding, and returns the decoder
// state together with the encoder memory.
//
// Example:
//
//	backend := cpu.New()
//	t := nn.NewTransformer(nn.TransformerConfig{
//	    EmbedDim:      256,
//	    NumHeads:      8,
//	    FFNDim:        2048,
//	    EncoderLayers: 6,
//	    DecoderLayers: 6,
//	}, backend)
//	decoded, memory := t.Forward(features, mask, queries, pos)
type Transformer[B tensor.Backend] = nn.Transformer[B]

// NewTransformer creates the encoder-decoder pair.
func NewTransformer[B tensor.Backend](config TransformerConfig, backend B) *Transformer[B] {
	return nn.NewTransformer(config, backend)
}

// FFN (Feed-Forward Network) is the 2-layer MLP inside each transformer layer.
//
// Architecture:
//
//	FFN(x) = Linear2(activation(Linear1(x)))
type FFN[B tensor.Backend] = nn.FFN[B]

// NewFFN creates a new Feed-Forward Network.
//
// Parameters:
//   - embedDim: Input/output dimension
//   - ffnDim: Hidden dimension
//   - activation: Activation module between the two projections (e.g. NewReLU)
//   - backend: Computation backend
//
// Example:
//
//	ffn := nn.NewFFN(256, 2048, nn.NewReLU[B](), backend)
//	output := ffn.Forward(x)
func NewFFN[B tensor.Backend](embedDim, ffnDim int, activation Module[B], backend B) *FFN[B] {
	return nn.NewFFN(embedDim, ffnDim, activation, backend)
}
