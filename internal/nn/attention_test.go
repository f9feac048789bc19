package nn

import (
	"math"
	"testing"

	"github.com/spot-ml/spot/internal/backend/cpu"
	"github.com/spot-ml/spot/internal/tensor"
)

// TestScaledDotProductAttention_Shapes verifies output and weight shapes for
// the split-head layout.
func TestScaledDotProductAttention_Shapes(t *testing.T) {
	backend := cpu.New()

	q := tensor.Randn[float32](tensor.Shape{2, 4, 6, 8}, backend)
	k := tensor.Randn[float32](tensor.Shape{2, 4, 10, 8}, backend)
	v := tensor.Randn[float32](tensor.Shape{2, 4, 10, 8}, backend)

	output, weights := ScaledDotProductAttention(q, k, v,
		NoKeyPadding[*cpu.CPUBackend](), NoAttnMask[*cpu.CPUBackend](), 0)

	if !output.Shape().Equal(tensor.Shape{2, 4, 6, 8}) {
		t.Errorf("Expected output shape [2 4 6 8], got %v", output.Shape())
	}
	if !weights.Shape().Equal(tensor.Shape{2, 4, 6, 10}) {
		t.Errorf("Expected weights shape [2 4 6 10], got %v", weights.Shape())
	}
}

// TestScaledDotProductAttention_UniformWeights checks that identical keys
// attract equal attention.
func TestScaledDotProductAttention_UniformWeights(t *testing.T) {
	backend := cpu.New()

	q := tensor.Randn[float32](tensor.Shape{1, 1, 2, 4}, backend)
	k := tensor.Ones[float32](tensor.Shape{1, 1, 5, 4}, backend)
	v := tensor.Randn[float32](tensor.Shape{1, 1, 5, 4}, backend)

	_, weights := ScaledDotProductAttention(q, k, v,
		NoKeyPadding[*cpu.CPUBackend](), NoAttnMask[*cpu.CPUBackend](), 0)

	for i, w := range weights.Data() {
		if math.Abs(float64(w)-0.2) > 1e-5 {
			t.Errorf("Weight[%d] = %v, want 0.2 (uniform over 5 keys)", i, w)
		}
	}
}

// TestScaledDotProductAttention_KeyPaddingZeroesWeights checks that padded
// key positions receive exactly zero attention weight.
func TestScaledDotProductAttention_KeyPaddingZeroesWeights(t *testing.T) {
	backend := cpu.New()

	q := tensor.Randn[float32](tensor.Shape{2, 2, 3, 4}, backend)
	k := tensor.Randn[float32](tensor.Shape{2, 2, 5, 4}, backend)
	v := tensor.Randn[float32](tensor.Shape{2, 2, 5, 4}, backend)

	// Batch 0: last two keys padded. Batch 1: nothing padded.
	mask := tensor.Zeros[bool](tensor.Shape{2, 5}, backend)
	mask.Set(true, 0, 3)
	mask.Set(true, 0, 4)

	_, weights := ScaledDotProductAttention(q, k, v,
		WithKeyPadding(mask), NoAttnMask[*cpu.CPUBackend](), 0)

	for h := 0; h < 2; h++ {
		for qi := 0; qi < 3; qi++ {
			if w := weights.At(0, h, qi, 3); w != 0 {
				t.Errorf("Padded key weight [0 %d %d 3] = %v, want 0", h, qi, w)
			}
			if w := weights.At(0, h, qi, 4); w != 0 {
				t.Errorf("Padded key weight [0 %d %d 4] = %v, want 0", h, qi, w)
			}

			// Remaining weights renormalize over the valid keys.
			var sum float64
			for ki := 0; ki < 3; ki++ {
				sum += float64(weights.At(0, h, qi, ki))
			}
			if math.Abs(sum-1.0) > 1e-5 {
				t.Errorf("Valid weights of query %d sum to %v, want 1", qi, sum)
			}
		}
	}
}

// TestScaledDotProductAttention_AllKeysPadded checks the degenerate batch
// element: zero weights and zero output instead of NaN.
func TestScaledDotProductAttention_AllKeysPadded(t *testing.T) {
	backend := cpu.New()

	q := tensor.Randn[float32](tensor.Shape{2, 2, 3, 4}, backend)
	k := tensor.Randn[float32](tensor.Shape{2, 2, 5, 4}, backend)
	v := tensor.Randn[float32](tensor.Shape{2, 2, 5, 4}, backend)

	// Batch 0 is fully padded.
	mask := tensor.Zeros[bool](tensor.Shape{2, 5}, backend)
	for ki := 0; ki < 5; ki++ {
		mask.Set(true, 0, ki)
	}

	output, weights := ScaledDotProductAttention(q, k, v,
		WithKeyPadding(mask), NoAttnMask[*cpu.CPUBackend](), 0)

	for h := 0; h < 2; h++ {
		for qi := 0; qi < 3; qi++ {
			for ki := 0; ki < 5; ki++ {
				if w := weights.At(0, h, qi, ki); w != 0 {
					t.Fatalf("Fully padded weights [0 %d %d %d] = %v, want 0", h, qi, ki, w)
				}
			}
			for d := 0; d < 4; d++ {
				if o := output.At(0, h, qi, d); o != 0 {
					t.Fatalf("Fully padded output [0 %d %d %d] = %v, want 0", h, qi, d, o)
				}
			}
		}
	}

	// Batch 1 stays unaffected and finite.
	for _, val := range output.Data() {
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			t.Fatal("Output contains NaN/Inf")
		}
	}
}

// TestScaledDotProductAttention_CausalMask verifies the additive mask
// excludes future positions.
func TestScaledDotProductAttention_CausalMask(t *testing.T) {
	backend := cpu.New()
	seq := 4

	q := tensor.Randn[float32](tensor.Shape{1, 2, seq, 8}, backend)
	k := tensor.Randn[float32](tensor.Shape{1, 2, seq, 8}, backend)
	v := tensor.Randn[float32](tensor.Shape{1, 2, seq, 8}, backend)

	mask := CausalMask(seq, backend)
	_, weights := ScaledDotProductAttention(q, k, v,
		NoKeyPadding[*cpu.CPUBackend](), WithAttnMask(mask), 0)

	for h := 0; h < 2; h++ {
		for qi := 0; qi < seq; qi++ {
			for ki := qi + 1; ki < seq; ki++ {
				if w := weights.At(0, h, qi, ki); w != 0 {
					t.Errorf("Future weight [0 %d %d %d] = %v, want 0", h, qi, ki, w)
				}
			}
		}
	}
}

// TestScaledDotProductAttention_ExplicitScale checks that an explicit scale
// overrides the default 1/sqrt(head_dim).
func TestScaledDotProductAttention_ExplicitScale(t *testing.T) {
	backend := cpu.New()

	q := tensor.Randn[float32](tensor.Shape{1, 1, 3, 4}, backend)
	k := tensor.Randn[float32](tensor.Shape{1, 1, 3, 4}, backend)
	v := tensor.Randn[float32](tensor.Shape{1, 1, 3, 4}, backend)

	// Scale 0 means 1/sqrt(4) = 0.5; passing it explicitly must agree.
	_, auto := ScaledDotProductAttention(q, k, v,
		NoKeyPadding[*cpu.CPUBackend](), NoAttnMask[*cpu.CPUBackend](), 0)
	_, explicit := ScaledDotProductAttention(q, k, v,
		NoKeyPadding[*cpu.CPUBackend](), NoAttnMask[*cpu.CPUBackend](), 0.5)

	autoData := auto.Data()
	explicitData := explicit.Data()
	for i := range autoData {
		if math.Abs(float64(autoData[i])-float64(explicitData[i])) > 1e-6 {
			t.Fatalf("Auto and explicit scale disagree at %d: %v vs %v",
				i, autoData[i], explicitData[i])
		}
	}
}

// TestScaledDotProductAttention_RejectsBadShapes exercises the validation
// panics.
func TestScaledDotProductAttention_RejectsBadShapes(t *testing.T) {
	backend := cpu.New()
	none := NoKeyPadding[*cpu.CPUBackend]()
	noAttn := NoAttnMask[*cpu.CPUBackend]()

	q3 := tensor.Zeros[float32](tensor.Shape{2, 3, 4}, backend)
	q4 := tensor.Zeros[float32](tensor.Shape{1, 1, 3, 4}, backend)
	kBad := tensor.Zeros[float32](tensor.Shape{1, 1, 3, 8}, backend)

	assertPanics(t, "3D query", func() {
		ScaledDotProductAttention(q3, q3, q3, none, noAttn, 0)
	})
	assertPanics(t, "head_dim mismatch", func() {
		ScaledDotProductAttention(q4, kBad, kBad, none, noAttn, 0)
	})

	wrongMask := tensor.Zeros[bool](tensor.Shape{1, 7}, backend)
	assertPanics(t, "mask length mismatch", func() {
		ScaledDotProductAttention(q4, q4, q4, WithKeyPadding(wrongMask), noAttn, 0)
	})
}

func assertPanics(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	f()
}
