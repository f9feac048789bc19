// Copyright 2025 Spot ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/spot-ml/spot/internal/nn"
	"github.com/spot-ml/spot/internal/tensor"
)

// Positional Encodings for Detection Transformers

// SinePositionalEncoding implements the 2D sinusoidal position embedding
// derived from a padding mask.
//
// Positions are measured against each image's true (unpadded) extent, so two
// images of different sizes in the same batch get comparable encodings. Half
// the channels encode the vertical position, half the horizontal.
//
// Example:
//
//	backend := cpu.New()
//	pe := nn.NewSinePositionalEncoding(256, 10000, backend)
//	pos := pe.Encode(mask)  // [batch, h, w] -> [batch, 256, h, w]
type SinePositionalEncoding[B tensor.Backend] = nn.SinePositionalEncoding[B]

// NewSinePositionalEncoding creates an encoder producing embedDim channels.
//
// Parameters:
//   - embedDim: Embedding dimension (must be even)
//   - temperature: Frequency spacing base (10000 standard)
//   - backend: Computation backend
//
// Example:
//
//	pe := nn.NewSinePositionalEncoding(256, 10000, backend)
func NewSinePositionalEncoding[B tensor.Backend](embedDim int, temperature float64, backend B) *SinePositionalEncoding[B] {
	return nn.NewSinePositionalEncoding(embedDim, temperature, backend)
}

// QueryEmbedding is the learned object query table of a detection
// transformer. Each of the numQueries rows is a learned embedding that the
// decoder turns into one object slot.
//
// Example:
//
//	backend := cpu.New()
//	queries := nn.NewQueryEmbedding(100, 256, backend)
//	q := queries.Expand(batchSize)  // [100, batch, 256]
type QueryEmbedding[B tensor.Backend] = nn.QueryEmbedding[B]

// NewQueryEmbedding creates a query table initialized from N(0, 1).
//
// Parameters:
//   - numQueries: Number of object query slots
//   - embedDim: Embedding dimension
//   - backend: Computation backend
//
// Example:
//
//	queries := nn.NewQueryEmbedding(100, 256, backend)
func NewQueryEmbedding[B tensor.Backend](numQueries, embedDim int, backend B) *QueryEmbedding[B] {
	return nn.NewQueryEmbedding(numQueries, embedDim, backend)
}
