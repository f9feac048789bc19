package detection

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/spot-ml/spot/internal/tensor"
)

// ResizeMask downsamples a padding mask [batch, h, w] to a backbone's output
// resolution [batch, outH, outW]. Each mask plane is cast to a grayscale
// image, resampled with nearest-neighbor interpolation, and re-thresholded
// so that any nonzero interpolated value stays padded. The valid region can
// shrink at the border but never grows past its true extent.
//
// Backbone implementations use this to derive the feature mask that travels
// with a downsampled feature map.
func ResizeMask[B tensor.Backend](mask *tensor.Tensor[bool, B], outH, outW int) *tensor.Tensor[bool, B] {
	shape := mask.Shape()
	if len(shape) != 3 {
		panic(fmt.Sprintf("ResizeMask: expected [batch, h, w] mask, got shape %v", shape))
	}
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("ResizeMask: output size must be positive, got %dx%d", outH, outW))
	}
	batch, h, w := shape[0], shape[1], shape[2]

	backend := mask.Backend()
	out := tensor.Zeros[bool](tensor.Shape{batch, outH, outW}, backend)

	maskData := mask.Data()
	outData := out.Data()

	src := image.NewGray(image.Rect(0, 0, w, h))
	dst := image.NewGray(image.Rect(0, 0, outW, outH))

	for n := 0; n < batch; n++ {
		plane := n * h * w
		for i := 0; i < h; i++ {
			for j := 0; j < w; j++ {
				v := uint8(0)
				if maskData[plane+i*w+j] {
					v = 255
				}
				src.Pix[i*src.Stride+j] = v
			}
		}

		draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

		outPlane := n * outH * outW
		for i := 0; i < outH; i++ {
			for j := 0; j < outW; j++ {
				outData[outPlane+i*outW+j] = dst.Pix[i*dst.Stride+j] != 0
			}
		}
	}

	return out
}
