package nn

import (
	"testing"

	"github.com/spot-ml/spot/internal/backend/cpu"
	"github.com/spot-ml/spot/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPaddingMask_AbsentByDefault(t *testing.T) {
	var m KeyPaddingMask[*cpu.CPUBackend]
	assert.False(t, m.Present())
	assert.False(t, NoKeyPadding[*cpu.CPUBackend]().Present())
}

func TestKeyPaddingMask_Present(t *testing.T) {
	backend := cpu.New()
	mask := tensor.Zeros[bool](tensor.Shape{2, 5}, backend)

	m := WithKeyPadding(mask)
	require.True(t, m.Present())
	assert.True(t, m.Tensor().Shape().Equal(tensor.Shape{2, 5}))
}

func TestKeyPaddingMask_RejectsWrongRank(t *testing.T) {
	backend := cpu.New()
	mask := tensor.Zeros[bool](tensor.Shape{2, 5, 5}, backend)

	assert.Panics(t, func() { WithKeyPadding(mask) })
}

func TestKeyPaddingMask_TensorPanicsWhenAbsent(t *testing.T) {
	m := NoKeyPadding[*cpu.CPUBackend]()
	assert.Panics(t, func() { m.Tensor() })
}

func TestAttnMask_Variants(t *testing.T) {
	backend := cpu.New()

	assert.False(t, NoAttnMask[*cpu.CPUBackend]().Present())

	mask := tensor.Zeros[float32](tensor.Shape{4, 4}, backend)
	m := WithAttnMask(mask)
	require.True(t, m.Present())
	assert.True(t, m.Tensor().Shape().Equal(tensor.Shape{4, 4}))

	assert.Panics(t, func() { NoAttnMask[*cpu.CPUBackend]().Tensor() })
}
