// Copyright 2025 Spot ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers and building blocks.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, Conv2D, MaxPool2D, MLP
//   - Activations: ReLU, Sigmoid, GELU
//   - Normalization: LayerNorm
//   - Attention: ScaledDotProductAttention, MultiHeadAttention, masks
//   - Transformer: encoder/decoder layers and stacks
//   - Positional encodings: SinePositionalEncoding, QueryEmbedding
//   - Utilities: Sequential, Module interface, Parameter, checkpoints
//   - Initialization: Xavier, Normal, Zeros, Ones
//
// # Basic Usage
//
//	import (
//	    "github.com/spot-ml/spot/nn"
//	    "github.com/spot-ml/spot/backend/cpu"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    // Build a simple MLP
//	    model := nn.NewSequential[*cpu.CPUBackend](
//	        nn.NewLinear(784, 128, backend),
//	        nn.NewReLU[*cpu.CPUBackend](),
//	        nn.NewLinear(128, 10, backend),
//	    )
//
//	    // Forward pass
//	    output := model.Forward(input)
//	}
//
// # Layers
//
// Linear: Fully connected layer with Xavier initialization
//
//	layer := nn.NewLinear(inFeatures, outFeatures, backend)
//
// Conv2D: 2D convolutional layer with a square kernel
//
//	conv := nn.NewConv2D(inChannels, outChannels, kernelSize, stride, padding, backend)
//
// MaxPool2D: 2D max pooling layer
//
//	pool := nn.NewMaxPool2D(kernelSize, stride, backend)
//
// # Attention
//
// Multi-head attention over sequence-first tensors [seq, batch, embed_dim],
// with key padding masks for variable-length batches:
//
//	mha := nn.NewMultiHeadAttention[B](256, 8, backend)
//	out, weights := mha.Attend(q, k, v, nn.WithKeyPadding(mask), nn.NoAttnMask[B]())
//
// # Transformer
//
// The encoder-decoder transformer of a detection model:
//
//	t := nn.NewTransformer(nn.TransformerConfig{
//	    EmbedDim:      256,
//	    NumHeads:      8,
//	    FFNDim:        2048,
//	    EncoderLayers: 6,
//	    DecoderLayers: 6,
//	}, backend)
//	decoded, memory := t.Forward(features, mask, queries, pos)
//
// # Checkpoints
//
// Save and restore parameters through the native .spot format:
//
//	err := nn.SaveCheckpoint("model.spot", model, serialization.Header{ModelType: "linear"})
//	header, err := nn.LoadCheckpoint("model.spot", backend, model)
//
// # Parameter Management
//
// Access model parameters:
//
//	params := model.Parameters()
//	for _, param := range params {
//	    fmt.Println(param.Name(), param.Tensor().Shape())
//	}
package nn
