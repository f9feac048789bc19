package nn

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// MultiHeadAttention projects queries, keys and values into numHeads
// subspaces, attends in each, and merges the heads back:
//
//	MHA(Q, K, V) = Concat(head_1, ..., head_h) @ W_O
//	head_i = SDPA(Q @ W_Q_i, K @ W_K_i, V @ W_V_i)
//
// Sequences are sequence-first: [seq, batch, embed_dim]. Detection
// transformers keep this layout throughout, so flattened image features
// [h*w, batch, embed_dim] and object queries [queries, batch, embed_dim]
// feed in directly.
type MultiHeadAttention[B tensor.Backend] struct {
	WQ       *Linear[B] // query projection [embed_dim, embed_dim]
	WK       *Linear[B] // key projection [embed_dim, embed_dim]
	WV       *Linear[B] // value projection [embed_dim, embed_dim]
	WO       *Linear[B] // output projection [embed_dim, embed_dim]
	NumHeads int
	HeadDim  int
	EmbedDim int
	backend  B
}

// NewMultiHeadAttention creates a multi-head attention module. embedDim must
// be divisible by numHeads; the head dimension is embedDim / numHeads.
func NewMultiHeadAttention[B tensor.Backend](embedDim, numHeads int, backend B) *MultiHeadAttention[B] {
	if numHeads <= 0 {
		panic(fmt.Sprintf("MultiHeadAttention: num_heads must be positive, got %d", numHeads))
	}
	if embedDim%numHeads != 0 {
		panic(fmt.Sprintf("MultiHeadAttention: embed_dim (%d) must be divisible by num_heads (%d)",
			embedDim, numHeads))
	}

	return &MultiHeadAttention[B]{
		WQ:       NewLinear(embedDim, embedDim, backend),
		WK:       NewLinear(embedDim, embedDim, backend),
		WV:       NewLinear(embedDim, embedDim, backend),
		WO:       NewLinear(embedDim, embedDim, backend),
		NumHeads: numHeads,
		HeadDim:  embedDim / numHeads,
		EmbedDim: embedDim,
		backend:  backend,
	}
}

// Attend computes multi-head attention.
//
// Shapes:
//   - query: [seq_q, batch, embed_dim]
//   - key, value: [seq_k, batch, embed_dim]
//   - output: [seq_q, batch, embed_dim]
//   - weights: [batch, seq_q, seq_k], averaged over heads
//
// keyMask marks padded key positions [batch, seq_k]; attnMask is an additive
// score mask. Pass the absent variants for unmasked attention. Self-attention
// passes the same tensor as query, key and value; cross-attention gives the
// decoder's queries a different key/value sequence.
//
// A batch element whose keys are all padding yields a zero output vector at
// every query position, output projection bias included.
func (m *MultiHeadAttention[B]) Attend(
	query, key, value *tensor.Tensor[float32, B],
	keyMask KeyPaddingMask[B],
	attnMask AttnMask[B],
) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	m.validateInputs(query, key, value)

	seqQ := query.Shape()[0]
	seqK := key.Shape()[0]
	batch := query.Shape()[1]

	// Project, then split into heads: [seq, batch, embed_dim] ->
	// [seq, batch, heads, head_dim] -> [batch, heads, seq, head_dim].
	q := m.splitHeads(m.WQ.Forward(query), seqQ, batch)
	k := m.splitHeads(m.WK.Forward(key), seqK, batch)
	v := m.splitHeads(m.WV.Forward(value), seqK, batch)

	attnOut, headWeights := ScaledDotProductAttention(q, k, v, keyMask, attnMask, 0)

	// Merge heads: [batch, heads, seq_q, head_dim] ->
	// [seq_q, batch, heads, head_dim] -> [seq_q, batch, embed_dim].
	merged := attnOut.Transpose(2, 0, 1, 3).Reshape(seqQ, batch, m.EmbedDim)
	output := m.WO.Forward(merged)

	if keyMask.Present() {
		// Attention zeroed the weights of fully padded elements, but the
		// output projection bias re-offsets their rows. Force those output
		// vectors back to zero.
		allPad := fullyPaddedBatches(keyMask.Tensor()) // [batch, 1]
		cond := allPad.Unsqueeze(0)                    // [1, batch, 1]
		zero := tensor.Zeros[float32](tensor.Shape{1}, m.backend)
		output = tensor.Where(cond, zero, output)
	}

	avgWeights := headWeights.MeanDim(1, false) // [batch, seq_q, seq_k]

	return output, avgWeights
}

func (m *MultiHeadAttention[B]) validateInputs(query, key, value *tensor.Tensor[float32, B]) {
	if len(query.Shape()) != 3 || len(key.Shape()) != 3 || len(value.Shape()) != 3 {
		panic(fmt.Sprintf(
			"MultiHeadAttention: query, key and value must be 3D [seq, batch, embed_dim], got %v, %v, %v",
			query.Shape(), key.Shape(), value.Shape()))
	}
	if query.Shape()[2] != m.EmbedDim || key.Shape()[2] != m.EmbedDim || value.Shape()[2] != m.EmbedDim {
		panic(fmt.Sprintf("MultiHeadAttention: embed_dim mismatch, layer has %d, inputs are %v, %v, %v",
			m.EmbedDim, query.Shape(), key.Shape(), value.Shape()))
	}
	if query.Shape()[1] != key.Shape()[1] || key.Shape()[1] != value.Shape()[1] {
		panic(fmt.Sprintf("MultiHeadAttention: batch size mismatch between %v, %v, %v",
			query.Shape(), key.Shape(), value.Shape()))
	}
	if key.Shape()[0] != value.Shape()[0] {
		panic(fmt.Sprintf("MultiHeadAttention: key seq length %d != value seq length %d",
			key.Shape()[0], value.Shape()[0]))
	}
}

// splitHeads rearranges [seq, batch, embed_dim] into the per-head layout
// [batch, heads, seq, head_dim].
func (m *MultiHeadAttention[B]) splitHeads(x *tensor.Tensor[float32, B], seq, batch int) *tensor.Tensor[float32, B] {
	return x.Reshape(seq, batch, m.NumHeads, m.HeadDim).Transpose(1, 2, 0, 3)
}

// Parameters returns the parameters of all four projections.
func (m *MultiHeadAttention[B]) Parameters() []*Parameter[B] {
	params := make([]*Parameter[B], 0, 8)
	params = append(params, m.WQ.Parameters()...)
	params = append(params, m.WK.Parameters()...)
	params = append(params, m.WV.Parameters()...)
	params = append(params, m.WO.Parameters()...)
	return params
}
