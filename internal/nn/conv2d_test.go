package nn

import (
	"testing"

	"github.com/spot-ml/spot/internal/backend/cpu"
	"github.com/spot-ml/spot/internal/tensor"
)

func TestConv2D_ProjectionShape(t *testing.T) {
	backend := cpu.New()

	// 1x1 convolution, the channel projection used in front of the
	// transformer.
	conv := NewConv2D(512, 256, 1, 1, 0, backend)

	input := tensor.Randn[float32](tensor.Shape{2, 512, 10, 10}, backend)
	output := conv.Forward(input)

	if !output.Shape().Equal(tensor.Shape{2, 256, 10, 10}) {
		t.Fatalf("Expected shape [2 256 10 10], got %v", output.Shape())
	}
}

func TestConv2D_BiasApplied(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D(1, 1, 1, 1, 0, backend)

	copy(conv.Weight().Tensor().Data(), []float32{1})
	copy(conv.Bias().Tensor().Data(), []float32{2.5})

	input := tensor.Full[float32](tensor.Shape{1, 1, 2, 2}, 1.0, backend)
	output := conv.Forward(input)

	for i, v := range output.Data() {
		if v != 3.5 {
			t.Errorf("Output[%d] = %v, want 3.5 (1*1 + 2.5)", i, v)
		}
	}
}

func TestConv2D_StridedDownsample(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D(3, 8, 3, 2, 1, backend)

	input := tensor.Randn[float32](tensor.Shape{1, 3, 16, 16}, backend)
	output := conv.Forward(input)

	if !output.Shape().Equal(tensor.Shape{1, 8, 8, 8}) {
		t.Fatalf("Expected shape [1 8 8 8], got %v", output.Shape())
	}
	if conv.OutChannels() != 8 {
		t.Errorf("OutChannels() = %d, want 8", conv.OutChannels())
	}
}

func TestConv2D_RejectsChannelMismatch(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D(3, 8, 3, 1, 0, backend)

	assertPanics(t, "channel mismatch", func() {
		conv.Forward(tensor.Zeros[float32](tensor.Shape{1, 4, 8, 8}, backend))
	})
}
