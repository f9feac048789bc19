package nn

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// KeyPaddingMask marks padded key positions that attention must ignore.
//
// The mask is a bool tensor of shape [batch, key_len] where true means the
// position is padding. It is an explicit present/absent variant: the zero
// value is absent, and attention layers check Present before applying it.
type KeyPaddingMask[B tensor.Backend] struct {
	mask *tensor.Tensor[bool, B]
}

// NoKeyPadding returns the absent variant.
func NoKeyPadding[B tensor.Backend]() KeyPaddingMask[B] {
	return KeyPaddingMask[B]{}
}

// WithKeyPadding wraps a [batch, key_len] bool tensor where true marks padding.
func WithKeyPadding[B tensor.Backend](mask *tensor.Tensor[bool, B]) KeyPaddingMask[B] {
	if mask == nil {
		panic("WithKeyPadding: mask tensor is nil, use NoKeyPadding for the absent variant")
	}
	if len(mask.Shape()) != 2 {
		panic(fmt.Sprintf("WithKeyPadding: expected [batch, key_len] mask, got shape %v", mask.Shape()))
	}
	return KeyPaddingMask[B]{mask: mask}
}

// Present reports whether a mask was supplied.
func (m KeyPaddingMask[B]) Present() bool {
	return m.mask != nil
}

// Tensor returns the underlying mask. Panics on the absent variant.
func (m KeyPaddingMask[B]) Tensor() *tensor.Tensor[bool, B] {
	if m.mask == nil {
		panic("KeyPaddingMask.Tensor: mask is absent")
	}
	return m.mask
}

// AttnMask is an additive score mask applied before softmax.
//
// The mask is a float32 tensor broadcastable against the raw score tensor
// [batch, heads, query_len, key_len]; typical shapes are [query_len, key_len]
// or [batch*heads, query_len, key_len]. Positions holding -Inf are excluded,
// finite values bias the scores. Like KeyPaddingMask it is a present/absent
// variant rather than a nullable pointer handed around the layers.
type AttnMask[B tensor.Backend] struct {
	mask *tensor.Tensor[float32, B]
}

// NoAttnMask returns the absent variant.
func NoAttnMask[B tensor.Backend]() AttnMask[B] {
	return AttnMask[B]{}
}

// WithAttnMask wraps an additive score mask.
func WithAttnMask[B tensor.Backend](mask *tensor.Tensor[float32, B]) AttnMask[B] {
	if mask == nil {
		panic("WithAttnMask: mask tensor is nil, use NoAttnMask for the absent variant")
	}
	return AttnMask[B]{mask: mask}
}

// Present reports whether a mask was supplied.
func (m AttnMask[B]) Present() bool {
	return m.mask != nil
}

// Tensor returns the underlying mask. Panics on the absent variant.
func (m AttnMask[B]) Tensor() *tensor.Tensor[float32, B] {
	if m.mask == nil {
		panic("AttnMask.Tensor: mask is absent")
	}
	return m.mask
}
