package nn

import (
	"math"
	"testing"

	"github.com/spot-ml/spot/internal/backend/cpu"
	"github.com/spot-ml/spot/internal/tensor"
)

func smallTransformerConfig() TransformerConfig {
	return TransformerConfig{
		EmbedDim:      32,
		NumHeads:      4,
		FFNDim:        64,
		EncoderLayers: 2,
		DecoderLayers: 2,
	}
}

// TestTransformerEncoderLayer_PreservesShape runs one layer over a masked
// token sequence.
func TestTransformerEncoderLayer_PreservesShape(t *testing.T) {
	backend := cpu.New()
	layer := NewTransformerEncoderLayer(smallTransformerConfig(), backend)

	x := tensor.Randn[float32](tensor.Shape{12, 2, 32}, backend)
	pos := tensor.Randn[float32](tensor.Shape{12, 2, 32}, backend)

	mask := tensor.Zeros[bool](tensor.Shape{2, 12}, backend)
	mask.Set(true, 0, 10)
	mask.Set(true, 0, 11)

	out := layer.Forward(x, WithKeyPadding(mask), pos)

	if !out.Shape().Equal(tensor.Shape{12, 2, 32}) {
		t.Fatalf("Expected shape [12 2 32], got %v", out.Shape())
	}
	for _, v := range out.Data() {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatal("Encoder layer output contains NaN/Inf")
		}
	}
}

// TestTransformerEncoder_ZeroLayersIsIdentity checks that an empty encoder
// passes its input through untouched.
func TestTransformerEncoder_ZeroLayersIsIdentity(t *testing.T) {
	backend := cpu.New()

	config := smallTransformerConfig()
	config.EncoderLayers = 0
	encoder := NewTransformerEncoder(config, backend)

	x := tensor.Randn[float32](tensor.Shape{9, 2, 32}, backend)
	pos := tensor.Randn[float32](tensor.Shape{9, 2, 32}, backend)

	out := encoder.Forward(x, NoKeyPadding[*cpu.CPUBackend](), pos)

	inData := x.Data()
	outData := out.Data()
	for i := range inData {
		if inData[i] != outData[i] {
			t.Fatalf("Zero-layer encoder altered element %d: %v != %v", i, outData[i], inData[i])
		}
	}
}

// TestTransformerEncoder_LayersAreIndependent verifies stacked layers do
// not share parameter tensors.
func TestTransformerEncoder_LayersAreIndependent(t *testing.T) {
	backend := cpu.New()
	encoder := NewTransformerEncoder(smallTransformerConfig(), backend)

	if len(encoder.Layers) != 2 {
		t.Fatalf("Expected 2 layers, got %d", len(encoder.Layers))
	}

	w0 := encoder.Layers[0].SelfAttn.WQ.Weight().Tensor()
	w1 := encoder.Layers[1].SelfAttn.WQ.Weight().Tensor()

	if &w0.Data()[0] == &w1.Data()[0] {
		t.Fatal("Encoder layers share query projection storage")
	}

	w0.Data()[0] = 123
	if w1.Data()[0] == 123 {
		t.Fatal("Writing layer 0 weights changed layer 1")
	}
}

// TestTransformerDecoderLayer_Shapes checks the per-layer decoder contract
// for 100 queries over a 16-token memory.
func TestTransformerDecoderLayer_Shapes(t *testing.T) {
	backend := cpu.New()

	config := smallTransformerConfig()
	config.EmbedDim = 256
	config.NumHeads = 2
	config.FFNDim = 512
	layer := NewTransformerDecoderLayer(config, backend)

	target := tensor.Zeros[float32](tensor.Shape{100, 2, 256}, backend)
	queryPos := tensor.Randn[float32](tensor.Shape{100, 2, 256}, backend)
	memory := tensor.Randn[float32](tensor.Shape{16, 2, 256}, backend)
	pos := tensor.Randn[float32](tensor.Shape{16, 2, 256}, backend)

	out := layer.Forward(target, memory, NoKeyPadding[*cpu.CPUBackend](), pos, queryPos)

	if !out.Shape().Equal(tensor.Shape{100, 2, 256}) {
		t.Fatalf("Expected shape [100 2 256], got %v", out.Shape())
	}
}

// TestTransformerDecoder_StackedOutputShape checks the final stacked state
// keeps a leading axis for layer stacking.
func TestTransformerDecoder_StackedOutputShape(t *testing.T) {
	backend := cpu.New()

	config := smallTransformerConfig()
	config.EmbedDim = 256
	config.NumHeads = 2
	config.FFNDim = 512
	config.DecoderLayers = 2
	decoder := NewTransformerDecoder(config, backend)

	target := tensor.Zeros[float32](tensor.Shape{100, 2, 256}, backend)
	queryPos := tensor.Randn[float32](tensor.Shape{100, 2, 256}, backend)
	memory := tensor.Randn[float32](tensor.Shape{16, 2, 256}, backend)
	pos := tensor.Randn[float32](tensor.Shape{16, 2, 256}, backend)

	out := decoder.Forward(target, memory, NoKeyPadding[*cpu.CPUBackend](), pos, queryPos)

	if !out.Shape().Equal(tensor.Shape{1, 100, 2, 256}) {
		t.Fatalf("Expected shape [1 100 2 256], got %v", out.Shape())
	}
}

// TestTransformer_FlattenProtocol verifies the row-major spatial flattening:
// token s of batch n equals feature cell (s/w, s%w).
func TestTransformer_FlattenProtocol(t *testing.T) {
	backend := cpu.New()

	batch, dim, h, w := 2, 3, 4, 5
	src := tensor.Zeros[float32](tensor.Shape{batch, dim, h, w}, backend)
	for n := 0; n < batch; n++ {
		for c := 0; c < dim; c++ {
			for i := 0; i < h; i++ {
				for j := 0; j < w; j++ {
					src.Set(float32(n*1000+c*100+i*10+j), n, c, i, j)
				}
			}
		}
	}

	seq := src.Reshape(batch, dim, h*w).Transpose(2, 0, 1)

	if !seq.Shape().Equal(tensor.Shape{h * w, batch, dim}) {
		t.Fatalf("Expected shape [%d %d %d], got %v", h*w, batch, dim, seq.Shape())
	}
	for s := 0; s < h*w; s++ {
		for n := 0; n < batch; n++ {
			for c := 0; c < dim; c++ {
				want := float32(n*1000 + c*100 + (s/w)*10 + s%w)
				if got := seq.At(s, n, c); got != want {
					t.Fatalf("Token [%d %d %d] = %v, want %v", s, n, c, got, want)
				}
			}
		}
	}
}

// TestTransformer_EndToEndShapes runs the full encoder-decoder over a 20x20
// feature map.
func TestTransformer_EndToEndShapes(t *testing.T) {
	backend := cpu.New()

	config := TransformerConfig{
		EmbedDim:      256,
		NumHeads:      2,
		FFNDim:        2048,
		EncoderLayers: 1,
		DecoderLayers: 1,
	}
	transformer := NewTransformer(config, backend)
	queries := NewQueryEmbedding(100, 256, backend)
	enc := NewSinePositionalEncoding(256, 10000, backend)

	src := tensor.Randn[float32](tensor.Shape{2, 256, 20, 20}, backend)
	mask := tensor.Zeros[bool](tensor.Shape{2, 20, 20}, backend)
	pos := enc.Encode(mask)

	decoded, memory := transformer.Forward(src, mask, queries, pos)

	if !decoded.Shape().Equal(tensor.Shape{1, 100, 2, 256}) {
		t.Fatalf("Expected decoder state [1 100 2 256], got %v", decoded.Shape())
	}
	if !memory.Shape().Equal(tensor.Shape{2, 256, 20, 20}) {
		t.Fatalf("Expected memory [2 256 20 20], got %v", memory.Shape())
	}
	for _, v := range decoded.Data() {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatal("Decoder state contains NaN/Inf")
		}
	}
}

// TestTransformer_Deterministic runs the same input twice; without dropout
// the outputs must match exactly.
func TestTransformer_Deterministic(t *testing.T) {
	backend := cpu.New()

	config := smallTransformerConfig()
	config.EncoderLayers = 1
	config.DecoderLayers = 1
	transformer := NewTransformer(config, backend)
	queries := NewQueryEmbedding(10, 32, backend)
	enc := NewSinePositionalEncoding(32, 10000, backend)

	src := tensor.Randn[float32](tensor.Shape{2, 32, 6, 6}, backend)
	mask := tensor.Zeros[bool](tensor.Shape{2, 6, 6}, backend)
	mask.Set(true, 1, 5, 5)
	pos := enc.Encode(mask)

	first, _ := transformer.Forward(src, mask, queries, pos)
	second, _ := transformer.Forward(src, mask, queries, pos)

	firstData := first.Data()
	secondData := second.Data()
	for i := range firstData {
		if firstData[i] != secondData[i] {
			t.Fatalf("Forward passes differ at %d: %v vs %v", i, firstData[i], secondData[i])
		}
	}
}

func TestTransformer_ConfigValidation(t *testing.T) {
	backend := cpu.New()

	assertPanics(t, "indivisible heads", func() {
		NewTransformer(TransformerConfig{EmbedDim: 256, NumHeads: 3, FFNDim: 64}, backend)
	})
	assertPanics(t, "negative layers", func() {
		NewTransformer(TransformerConfig{
			EmbedDim: 32, NumHeads: 4, FFNDim: 64, EncoderLayers: -1,
		}, backend)
	})
	assertPanics(t, "unknown activation", func() {
		config := smallTransformerConfig()
		config.Activation = "swish"
		NewTransformerEncoderLayer(config, backend)
	})
}
