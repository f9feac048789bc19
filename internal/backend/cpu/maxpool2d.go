package cpu

import (
	"fmt"
	"math"

	"github.com/spot-ml/spot/internal/parallel"
	"github.com/spot-ml/spot/internal/tensor"
)

// MaxPool2D applies 2D max pooling over a [N, C, H, W] tensor.
//
// Each output cell takes the maximum of a kernelSize x kernelSize window.
// H_out = (H - kernelSize)/stride + 1, same for W_out. Channels pool
// independently, so the (batch, channel) planes fan out across workers.
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	inShape := input.Shape()
	if len(inShape) != 4 {
		panic(fmt.Sprintf("maxpool2d: input must be 4D [N, C, H, W], got %dD", len(inShape)))
	}
	if kernelSize < 1 {
		panic(fmt.Sprintf("maxpool2d: kernel size must be >= 1, got %d", kernelSize))
	}
	if stride < 1 {
		panic(fmt.Sprintf("maxpool2d: stride must be >= 1, got %d", stride))
	}

	n, c, h, w := inShape[0], inShape[1], inShape[2], inShape[3]
	hOut := (h-kernelSize)/stride + 1
	wOut := (w-kernelSize)/stride + 1
	if hOut < 1 || wOut < 1 {
		panic(fmt.Sprintf("maxpool2d: kernel %d with stride %d does not fit input %dx%d", kernelSize, stride, h, w))
	}

	result, err := tensor.NewRaw(tensor.Shape{n, c, hOut, wOut}, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("maxpool2d: %v", err))
	}

	cfg := cpu.pool
	cfg.MinChunkSize = 1

	switch input.DType() {
	case tensor.Float32:
		src := input.AsFloat32()
		dst := result.AsFloat32()
		parallel.ForBatch(n, c, func(item, ch int) {
			inPlane := src[(item*c+ch)*h*w:]
			outPlane := dst[(item*c+ch)*hOut*wOut:]
			maxPoolPlaneFloat32(outPlane, inPlane, h, w, hOut, wOut, kernelSize, stride)
		}, cfg)
	case tensor.Float64:
		src := input.AsFloat64()
		dst := result.AsFloat64()
		parallel.ForBatch(n, c, func(item, ch int) {
			inPlane := src[(item*c+ch)*h*w:]
			outPlane := dst[(item*c+ch)*hOut*wOut:]
			maxPoolPlaneFloat64(outPlane, inPlane, h, w, hOut, wOut, kernelSize, stride)
		}, cfg)
	default:
		panic(fmt.Sprintf("maxpool2d: unsupported dtype %s (only float32/float64 supported)", input.DType()))
	}

	return result
}

func maxPoolPlaneFloat32(out, in []float32, h, w, hOut, wOut, k, stride int) {
	for oh := 0; oh < hOut; oh++ {
		for ow := 0; ow < wOut; ow++ {
			best := float32(math.Inf(-1))
			for y := 0; y < k; y++ {
				for x := 0; x < k; x++ {
					if v := in[(oh*stride+y)*w+ow*stride+x]; v > best {
						best = v
					}
				}
			}
			out[oh*wOut+ow] = best
		}
	}
}

func maxPoolPlaneFloat64(out, in []float64, h, w, hOut, wOut, k, stride int) {
	for oh := 0; oh < hOut; oh++ {
		for ow := 0; ow < wOut; ow++ {
			best := math.Inf(-1)
			for y := 0; y < k; y++ {
				for x := 0; x < k; x++ {
					if v := in[(oh*stride+y)*w+ow*stride+x]; v > best {
						best = v
					}
				}
			}
			out[oh*wOut+ow] = best
		}
	}
}
