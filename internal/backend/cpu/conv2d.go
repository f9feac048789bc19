package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/spot-ml/spot/internal/parallel"
	"github.com/spot-ml/spot/internal/tensor"
)

// Conv2D computes a 2D convolution.
//
// input:  [N, C_in, H, W]
// kernel: [C_out, C_in, K_h, K_w]
// output: [N, C_out, H_out, W_out]
//
// H_out = (H + 2*padding - K_h)/stride + 1, same for W_out. Each batch item
// is lowered to a column matrix (im2col) and multiplied against the
// flattened kernel with one BLAS Gemm; writing the product at the item's
// output offset lands it directly in [C_out, H_out, W_out] layout, so no
// rearrange pass is needed. Batch items run in parallel.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	inShape := input.Shape()
	kShape := kernel.Shape()

	if len(inShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N, C, H, W], got %dD", len(inShape)))
	}
	if len(kShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out, C_in, K_h, K_w], got %dD", len(kShape)))
	}
	if inShape[1] != kShape[1] {
		panic(fmt.Sprintf("conv2d: channel mismatch: input has %d, kernel expects %d", inShape[1], kShape[1]))
	}
	if stride < 1 {
		panic(fmt.Sprintf("conv2d: stride must be >= 1, got %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: padding must be >= 0, got %d", padding))
	}

	n, cIn, h, w := inShape[0], inShape[1], inShape[2], inShape[3]
	cOut, kh, kw := kShape[0], kShape[2], kShape[3]

	hOut := (h+2*padding-kh)/stride + 1
	wOut := (w+2*padding-kw)/stride + 1
	if hOut < 1 || wOut < 1 {
		panic(fmt.Sprintf("conv2d: kernel %dx%d with stride %d, padding %d does not fit input %dx%d",
			kh, kw, stride, padding, h, w))
	}

	result, err := tensor.NewRaw(tensor.Shape{n, cOut, hOut, wOut}, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv2d: %v", err))
	}

	cfg := cpu.pool
	cfg.MinChunkSize = 1

	switch input.DType() {
	case tensor.Float32:
		conv2dFloat32(result.AsFloat32(), input.AsFloat32(), kernel.AsFloat32(),
			n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding, cfg)
	case tensor.Float64:
		conv2dFloat64(result.AsFloat64(), input.AsFloat64(), kernel.AsFloat64(),
			n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding, cfg)
	default:
		panic(fmt.Sprintf("conv2d: unsupported dtype %s (only float32/float64 supported)", input.DType()))
	}

	return result
}

func conv2dFloat32(out, in, kernel []float32, n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding int, cfg parallel.Config) {
	colWidth := cIn * kh * kw
	positions := hOut * wOut

	parallel.For(n, func(item int) {
		colBuf := make([]float32, positions*colWidth)
		im2colFloat32(colBuf, in[item*cIn*h*w:], cIn, h, w, kh, kw, hOut, wOut, stride, padding)

		// out_item = kernel (C_out x K) @ colBuf^T (K x P)
		outOff := item * cOut * positions
		blas32.Gemm(blas.NoTrans, blas.Trans,
			1,
			blas32.General{Rows: cOut, Cols: colWidth, Stride: colWidth, Data: kernel},
			blas32.General{Rows: positions, Cols: colWidth, Stride: colWidth, Data: colBuf},
			0,
			blas32.General{Rows: cOut, Cols: positions, Stride: positions, Data: out[outOff : outOff+cOut*positions]},
		)
	}, cfg)
}

func conv2dFloat64(out, in, kernel []float64, n, cIn, h, w, cOut, kh, kw, hOut, wOut, stride, padding int, cfg parallel.Config) {
	colWidth := cIn * kh * kw
	positions := hOut * wOut

	parallel.For(n, func(item int) {
		colBuf := make([]float64, positions*colWidth)
		im2colFloat64(colBuf, in[item*cIn*h*w:], cIn, h, w, kh, kw, hOut, wOut, stride, padding)

		outOff := item * cOut * positions
		blas64.Gemm(blas.NoTrans, blas.Trans,
			1,
			blas64.General{Rows: cOut, Cols: colWidth, Stride: colWidth, Data: kernel},
			blas64.General{Rows: positions, Cols: colWidth, Stride: colWidth, Data: colBuf},
			0,
			blas64.General{Rows: cOut, Cols: positions, Stride: positions, Data: out[outOff : outOff+cOut*positions]},
		)
	}, cfg)
}

// im2colFloat32 lowers one batch item to a column matrix.
//
// in is the item's [C, H, W] block; colBuf gets [H_out*W_out, C*K_h*K_w]
// where each row is the flattened input patch under one output position.
// Out-of-bounds taps (padding) stay zero.
func im2colFloat32(colBuf, in []float32, c, h, w, kh, kw, hOut, wOut, stride, padding int) {
	colWidth := c * kh * kw
	row := 0

	for outH := 0; outH < hOut; outH++ {
		for outW := 0; outW < wOut; outW++ {
			hStart := outH*stride - padding
			wStart := outW*stride - padding
			bufIdx := row * colWidth

			for ch := 0; ch < c; ch++ {
				for y := 0; y < kh; y++ {
					for x := 0; x < kw; x++ {
						ih := hStart + y
						iw := wStart + x
						if ih >= 0 && ih < h && iw >= 0 && iw < w {
							colBuf[bufIdx] = in[ch*h*w+ih*w+iw]
						}
						bufIdx++
					}
				}
			}
			row++
		}
	}
}

func im2colFloat64(colBuf, in []float64, c, h, w, kh, kw, hOut, wOut, stride, padding int) {
	colWidth := c * kh * kw
	row := 0

	for outH := 0; outH < hOut; outH++ {
		for outW := 0; outW < wOut; outW++ {
			hStart := outH*stride - padding
			wStart := outW*stride - padding
			bufIdx := row * colWidth

			for ch := 0; ch < c; ch++ {
				for y := 0; y < kh; y++ {
					for x := 0; x < kw; x++ {
						ih := hStart + y
						iw := wStart + x
						if ih >= 0 && ih < h && iw >= 0 && iw < w {
							colBuf[bufIdx] = in[ch*h*w+ih*w+iw]
						}
						bufIdx++
					}
				}
			}
			row++
		}
	}
}
