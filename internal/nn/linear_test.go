package nn

import (
	"testing"

	"github.com/spot-ml/spot/internal/backend/cpu"
	"github.com/spot-ml/spot/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear_Shapes(t *testing.T) {
	backend := cpu.New()
	linear := NewLinear(8, 4, backend)

	assert.Equal(t, 8, linear.InFeatures())
	assert.Equal(t, 4, linear.OutFeatures())
	assert.True(t, linear.Weight().Tensor().Shape().Equal(tensor.Shape{4, 8}))
	assert.True(t, linear.Bias().Tensor().Shape().Equal(tensor.Shape{4}))
	assert.Len(t, linear.Parameters(), 2)
}

func TestLinear_ForwardKnownValues(t *testing.T) {
	backend := cpu.New()
	linear := NewLinear(2, 2, backend)

	// y = x @ W.T + b with W = [[1, 2], [3, 4]], b = [10, 20].
	copy(linear.Weight().Tensor().Data(), []float32{1, 2, 3, 4})
	copy(linear.Bias().Tensor().Data(), []float32{10, 20})

	input, err := tensor.FromSlice([]float32{1, 1}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)

	output := linear.Forward(input)

	require.True(t, output.Shape().Equal(tensor.Shape{1, 2}))
	assert.InDelta(t, 13.0, float64(output.At(0, 0)), 1e-5) // 1*1 + 1*2 + 10
	assert.InDelta(t, 27.0, float64(output.At(0, 1)), 1e-5) // 1*3 + 1*4 + 20
}

func TestLinear_ForwardSequenceInput(t *testing.T) {
	backend := cpu.New()
	linear := NewLinear(16, 8, backend)

	// Sequence-first 3D input flows through without manual reshaping.
	input := tensor.Randn[float32](tensor.Shape{10, 2, 16}, backend)
	output := linear.Forward(input)

	assert.True(t, output.Shape().Equal(tensor.Shape{10, 2, 8}))
}

func TestLinear_SequenceMatchesFlattened(t *testing.T) {
	backend := cpu.New()
	linear := NewLinear(4, 3, backend)

	input := tensor.Randn[float32](tensor.Shape{5, 2, 4}, backend)

	seqOut := linear.Forward(input)
	flatOut := linear.Forward(input.Reshape(10, 4))

	seqData := seqOut.Data()
	flatData := flatOut.Data()
	require.Len(t, seqData, len(flatData))
	for i := range seqData {
		assert.InDelta(t, float64(flatData[i]), float64(seqData[i]), 1e-6)
	}
}

func TestLinear_RejectsBadInput(t *testing.T) {
	backend := cpu.New()
	linear := NewLinear(4, 2, backend)

	assert.Panics(t, func() {
		linear.Forward(tensor.Zeros[float32](tensor.Shape{4}, backend))
	})
	assert.Panics(t, func() {
		linear.Forward(tensor.Zeros[float32](tensor.Shape{2, 8}, backend))
	})
}

func TestLinear_StateDictRoundTrip(t *testing.T) {
	backend := cpu.New()
	src := NewLinear(3, 2, backend)
	dst := NewLinear(3, 2, backend)

	copy(src.Weight().Tensor().Data(), []float32{1, 2, 3, 4, 5, 6})
	copy(src.Bias().Tensor().Data(), []float32{7, 8})

	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	assert.Equal(t, src.Weight().Tensor().Data(), dst.Weight().Tensor().Data())
	assert.Equal(t, src.Bias().Tensor().Data(), dst.Bias().Tensor().Data())
}

func TestLinear_LoadStateDictValidates(t *testing.T) {
	backend := cpu.New()
	linear := NewLinear(3, 2, backend)

	err := linear.LoadStateDict(map[string]*tensor.RawTensor{})
	require.Error(t, err)

	wrong, rawErr := tensor.NewRaw(tensor.Shape{2, 4}, tensor.Float32, backend.Device())
	require.NoError(t, rawErr)
	err = linear.LoadStateDict(map[string]*tensor.RawTensor{"weight": wrong})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape mismatch")
}
