package nn

import (
	"fmt"
	"math"

	"github.com/spot-ml/spot/internal/tensor"
)

// ScaledDotProductAttention computes masked attention over split heads:
//
//	Attention(Q, K, V) = softmax(QK^T / sqrt(d_k)) @ V
//
// Shapes follow the split-head layout:
//   - query: [batch, heads, seq_q, head_dim]
//   - key, value: [batch, heads, seq_k, head_dim]
//
// keyMask marks padded key positions per batch element; their scores are set
// to -Inf before the softmax so they receive zero weight. attnMask is added
// to the scores and must broadcast against [batch, heads, seq_q, seq_k];
// -Inf entries exclude pairs, finite entries bias them.
//
// When every key of a batch element is padding, the softmax row has no
// finite entry. Those rows are replaced with all-zero weights so the
// attention output for that element is zero instead of NaN.
//
// scale is the score multiplier; pass 0 to use 1/sqrt(head_dim).
//
// Returns the attended values [batch, heads, seq_q, head_dim] and the
// attention weights [batch, heads, seq_q, seq_k].
func ScaledDotProductAttention[B tensor.Backend](
	query, key, value *tensor.Tensor[float32, B],
	keyMask KeyPaddingMask[B],
	attnMask AttnMask[B],
	scale float32,
) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	validateAttentionInputs(query, key, value, keyMask)

	backend := query.Backend()
	headDim := query.Shape()[3]
	if scale == 0 {
		scale = float32(1.0 / math.Sqrt(float64(headDim)))
	}

	// Scores: Q @ K^T, scaled.
	kT := key.Transpose(0, 1, 3, 2)
	scores := query.BatchMatMul(kT).MulScalar(scale)

	if attnMask.Present() {
		scores = scores.Add(attnMask.Tensor())
	}

	if keyMask.Present() {
		// [batch, seq_k] -> [batch, 1, 1, seq_k], broadcast over heads and
		// query positions.
		cond := keyMask.Tensor().Unsqueeze(1).Unsqueeze(2)
		negInf := tensor.Full[float32](tensor.Shape{1}, float32(math.Inf(-1)), backend)
		scores = tensor.Where(cond, negInf, scores)
	}

	weights := scores.Softmax(-1)

	if keyMask.Present() {
		// Rows with no attendable key came out of the softmax as NaN.
		// Zero their weights before touching V so nothing propagates.
		allPad := fullyPaddedBatches(keyMask.Tensor()) // [batch, 1]
		cond := allPad.Unsqueeze(2).Unsqueeze(3)       // [batch, 1, 1, 1]
		zero := tensor.Zeros[float32](tensor.Shape{1}, backend)
		weights = tensor.Where(cond, zero, weights)
	}

	output := weights.BatchMatMul(value)

	return output, weights
}

// validateAttentionInputs panics on malformed attention shapes.
func validateAttentionInputs[B tensor.Backend](
	query, key, value *tensor.Tensor[float32, B],
	keyMask KeyPaddingMask[B],
) {
	if len(query.Shape()) != 4 || len(key.Shape()) != 4 || len(value.Shape()) != 4 {
		panic(fmt.Sprintf(
			"ScaledDotProductAttention: query, key and value must be 4D [batch, heads, seq, head_dim], got %v, %v, %v",
			query.Shape(), key.Shape(), value.Shape()))
	}
	if query.Shape()[3] != key.Shape()[3] {
		panic(fmt.Sprintf("ScaledDotProductAttention: query head_dim %d != key head_dim %d",
			query.Shape()[3], key.Shape()[3]))
	}
	if key.Shape()[2] != value.Shape()[2] {
		panic(fmt.Sprintf("ScaledDotProductAttention: key seq length %d != value seq length %d",
			key.Shape()[2], value.Shape()[2]))
	}
	if keyMask.Present() {
		maskShape := keyMask.Tensor().Shape()
		if maskShape[0] != query.Shape()[0] || maskShape[1] != key.Shape()[2] {
			panic(fmt.Sprintf(
				"ScaledDotProductAttention: key padding mask %v does not match batch %d and key length %d",
				maskShape, query.Shape()[0], key.Shape()[2]))
		}
	}
}

// fullyPaddedBatches returns a [batch, 1] bool tensor that is true for batch
// elements whose key positions are all padding.
func fullyPaddedBatches[B tensor.Backend](mask *tensor.Tensor[bool, B]) *tensor.Tensor[bool, B] {
	backend := mask.Backend()
	keyLen := mask.Shape()[1]

	padCount := mask.Float32().SumDim(-1, true)
	total := tensor.Full[float32](tensor.Shape{1}, float32(keyLen), backend)
	return padCount.Equal(total)
}

// CausalMask builds an additive [seqLen, seqLen] mask whose upper triangle
// is -Inf, restricting each position to itself and earlier positions. The
// result broadcasts over batch and heads when passed as an attention mask.
func CausalMask[B tensor.Backend](seqLen int, backend B) *tensor.Tensor[float32, B] {
	mask := tensor.Zeros[float32](tensor.Shape{seqLen, seqLen}, backend)

	negInf := float32(math.Inf(-1))
	data := mask.Data()
	for i := 0; i < seqLen; i++ {
		for j := i + 1; j < seqLen; j++ {
			data[i*seqLen+j] = negInf
		}
	}

	return mask
}
