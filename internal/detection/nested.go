package detection

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// NestedTensor packs variable-size images into one dense batch plus the mask
// that remembers where each image ends. The padded batch has shape
// [batch, channels, maxH, maxW] with images copied unscaled into the
// top-left corner; the mask [batch, maxH, maxW] is true over the padding and
// false over real pixels.
type NestedTensor[B tensor.Backend] struct {
	tensors *tensor.Tensor[float32, B]
	mask    *tensor.Tensor[bool, B]
}

// Tensors returns the padded [batch, channels, maxH, maxW] batch.
func (n *NestedTensor[B]) Tensors() *tensor.Tensor[float32, B] {
	return n.tensors
}

// Mask returns the [batch, maxH, maxW] padding mask, true = padded.
func (n *NestedTensor[B]) Mask() *tensor.Tensor[bool, B] {
	return n.mask
}

// FromImages batches images of shape [channels, h, w] by zero-padding each
// to the largest height and width in the list. All images must share a
// channel count and have positive dimensions; violations return
// InvalidInputError before any allocation.
func FromImages[B tensor.Backend](images []*tensor.Tensor[float32, B], backend B) (*NestedTensor[B], error) {
	if len(images) == 0 {
		return nil, &InvalidInputError{Reason: "empty image batch"}
	}

	channels := 0
	maxH, maxW := 0, 0
	for i, img := range images {
		shape := img.Shape()
		if len(shape) != 3 {
			return nil, &InvalidInputError{
				Reason: fmt.Sprintf("image %d: expected [channels, h, w], got shape %v", i, shape),
			}
		}
		c, h, w := shape[0], shape[1], shape[2]
		if c <= 0 || h <= 0 || w <= 0 {
			return nil, &InvalidInputError{
				Reason: fmt.Sprintf("image %d: non-positive dimensions %v", i, shape),
			}
		}
		if i == 0 {
			channels = c
		} else if c != channels {
			return nil, &InvalidInputError{
				Reason: fmt.Sprintf("image %d has %d channels, image 0 has %d", i, c, channels),
			}
		}
		if h > maxH {
			maxH = h
		}
		if w > maxW {
			maxW = w
		}
	}

	batch := len(images)
	padded := tensor.Zeros[float32](tensor.Shape{batch, channels, maxH, maxW}, backend)
	mask := tensor.Full[bool](tensor.Shape{batch, maxH, maxW}, true, backend)

	paddedData := padded.Data()
	maskData := mask.Data()

	for n, img := range images {
		shape := img.Shape()
		h, w := shape[1], shape[2]
		imgData := img.Data()

		// Copy rows into the top-left corner of each channel plane.
		for c := 0; c < channels; c++ {
			srcPlane := c * h * w
			dstPlane := (n*channels + c) * maxH * maxW
			for i := 0; i < h; i++ {
				copy(paddedData[dstPlane+i*maxW:dstPlane+i*maxW+w], imgData[srcPlane+i*w:srcPlane+(i+1)*w])
			}
		}

		maskPlane := n * maxH * maxW
		for i := 0; i < h; i++ {
			for j := 0; j < w; j++ {
				maskData[maskPlane+i*maxW+j] = false
			}
		}
	}

	return &NestedTensor[B]{tensors: padded, mask: mask}, nil
}
