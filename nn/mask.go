package nn

import (
	"github.com/spot-ml/spot/internal/nn"
	"github.com/spot-ml/spot/internal/tensor"
)

// KeyPaddingMask marks padded key positions that attention must ignore.
//
// The mask is a bool tensor of shape [batch, key_len] where true means the
// position is padding. It is an explicit present/absent variant: pass
// NoKeyPadding for unmasked attention.
type KeyPaddingMask[B tensor.Backend] = nn.KeyPaddingMask[B]

// NoKeyPadding returns the absent key padding mask.
func NoKeyPadding[B tensor.Backend]() KeyPaddingMask[B] {
	return nn.NoKeyPadding[B]()
}

// WithKeyPadding wraps a [batch, key_len] bool tensor where true marks padding.
//
// Example:
//
//	mask, _ := tensor.FromSlice([]bool{false, false, true}, tensor.Shape{1, 3}, backend)
//	out, weights := mha.Attend(q, k, v, nn.WithKeyPadding(mask), nn.NoAttnMask[B]())
func WithKeyPadding[B tensor.Backend](mask *tensor.Tensor[bool, B]) KeyPaddingMask[B] {
	return nn.WithKeyPadding(mask)
}

// AttnMask is an additive score mask applied before the attention softmax.
//
// The mask must broadcast against the raw score tensor
// [batch, heads, query_len, key_len]. Positions holding -Inf are excluded;
// finite values bias the scores.
type AttnMask[B tensor.Backend] = nn.AttnMask[B]

// NoAttnMask returns the absent attention mask.
func NoAttnMask[B tensor.Backend]() AttnMask[B] {
	return nn.NoAttnMask[B]()
}

// WithAttnMask wraps an additive score mask.
//
// Example:
//
//	causal := nn.CausalMask(seqLen, backend)
//	out, weights := mha.Attend(q, k, v, nn.NoKeyPadding[B](), nn.WithAttnMask(causal))
func WithAttnMask[B tensor.Backend](mask *tensor.Tensor[float32, B]) AttnMask[B] {
	return nn.WithAttnMask(mask)
}
