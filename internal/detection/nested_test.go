package detection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spot-ml/spot/internal/backend/cpu"
	"github.com/spot-ml/spot/internal/tensor"
)

// TestFromImages_PadsToMaxExtent batches two images whose max extents come
// from different images: heights 639 and 622, widths 425 and 640. The batch
// must pad to 639x640 with the mask marking everything outside each image's
// own region.
func TestFromImages_PadsToMaxExtent(t *testing.T) {
	backend := cpu.New()

	img0 := tensor.Zeros[float32](tensor.Shape{3, 639, 425}, backend)
	img1 := tensor.Zeros[float32](tensor.Shape{3, 622, 640}, backend)
	img0.Set(7.0, 0, 100, 200)
	img1.Set(-3.0, 2, 621, 639)

	batch, err := FromImages([]*tensor.Tensor[float32, *cpu.CPUBackend]{img0, img1}, backend)
	require.NoError(t, err)

	require.True(t, batch.Tensors().Shape().Equal(tensor.Shape{2, 3, 639, 640}),
		"padded batch shape %v", batch.Tensors().Shape())
	require.True(t, batch.Mask().Shape().Equal(tensor.Shape{2, 639, 640}),
		"mask shape %v", batch.Mask().Shape())

	// Pixel values survive in the top-left corner.
	assert.Equal(t, float32(7.0), batch.Tensors().At(0, 0, 100, 200))
	assert.Equal(t, float32(-3.0), batch.Tensors().At(1, 2, 621, 639))

	// Padding is zero-filled.
	assert.Equal(t, float32(0), batch.Tensors().At(0, 0, 0, 500))
	assert.Equal(t, float32(0), batch.Tensors().At(1, 0, 630, 0))

	// Mask: false inside each image, true outside.
	assert.False(t, batch.Mask().At(0, 638, 424), "last valid cell of image 0")
	assert.True(t, batch.Mask().At(0, 638, 425), "first padded column of image 0")
	assert.False(t, batch.Mask().At(1, 621, 639), "last valid cell of image 1")
	assert.True(t, batch.Mask().At(1, 622, 0), "first padded row of image 1")
}

// TestFromImages_SingleImageHasNoPadding checks that a batch of one image
// needs no padding and gets an all-valid mask.
func TestFromImages_SingleImageHasNoPadding(t *testing.T) {
	backend := cpu.New()

	img := tensor.Randn[float32](tensor.Shape{3, 16, 24}, backend)
	batch, err := FromImages([]*tensor.Tensor[float32, *cpu.CPUBackend]{img}, backend)
	require.NoError(t, err)

	require.True(t, batch.Tensors().Shape().Equal(tensor.Shape{1, 3, 16, 24}))
	for _, padded := range batch.Mask().Data() {
		if padded {
			t.Fatal("single-image batch must not mark any cell as padded")
		}
	}

	// The image must be copied verbatim.
	imgData := img.Data()
	batchData := batch.Tensors().Data()
	for i := range imgData {
		if imgData[i] != batchData[i] {
			t.Fatalf("pixel %d: got %v, want %v", i, batchData[i], imgData[i])
		}
	}
}

func TestFromImages_Errors(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name   string
		images []*tensor.Tensor[float32, *cpu.CPUBackend]
	}{
		{
			name:   "empty batch",
			images: nil,
		},
		{
			name: "wrong rank",
			images: []*tensor.Tensor[float32, *cpu.CPUBackend]{
				tensor.Zeros[float32](tensor.Shape{16, 24}, backend),
			},
		},
		{
			name: "channel mismatch",
			images: []*tensor.Tensor[float32, *cpu.CPUBackend]{
				tensor.Zeros[float32](tensor.Shape{3, 16, 24}, backend),
				tensor.Zeros[float32](tensor.Shape{1, 16, 24}, backend),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromImages(tt.images, backend)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "want ErrInvalidInput, got %v", err)

			var invalid *InvalidInputError
			assert.True(t, errors.As(err, &invalid))
		})
	}
}
