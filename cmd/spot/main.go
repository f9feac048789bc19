// Package main provides the Spot ML Framework CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spot-ml/spot/backend/cpu"
	"github.com/spot-ml/spot/detection"
	"github.com/spot-ml/spot/loader"
	"github.com/spot-ml/spot/nn"
	"github.com/spot-ml/spot/tensor"
)

const version = "v0.3.1"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("Spot ML Framework %s\n", version)
			return
		case "demo":
			if err := runDemo(); err != nil {
				fmt.Fprintf(os.Stderr, "demo: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Println("Spot ML Framework - Transformer Object Detection for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  demo       Run detection on synthetic images with random weights")
	fmt.Println("")
	fmt.Println("Coming soon: detect, convert, serve")
}

// demoBackbone is a single strided convolution plus max pooling, enough to
// turn synthetic images into a feature map for the prediction core.
type demoBackbone struct {
	conv *nn.Conv2D[*cpu.Backend]
	pool *nn.MaxPool2D[*cpu.Backend]
}

func newDemoBackbone(backend *cpu.Backend) *demoBackbone {
	return &demoBackbone{
		conv: nn.NewConv2D(3, 32, 3, 2, 1, backend),
		pool: nn.NewMaxPool2D(2, 2, backend),
	}
}

func (b *demoBackbone) Extract(
	images *tensor.Tensor[float32, *cpu.Backend],
	mask *tensor.Tensor[bool, *cpu.Backend],
) (*tensor.Tensor[float32, *cpu.Backend], *tensor.Tensor[bool, *cpu.Backend]) {
	features := b.pool.Forward(b.conv.Forward(images))
	shape := features.Shape()
	return features, detection.ResizeMask(mask, shape[2], shape[3])
}

func (b *demoBackbone) OutChannels() int { return 32 }

func runDemo() error {
	backend := cpu.New()

	spec, err := loader.LookupModel("detr-demo")
	if err != nil {
		return err
	}
	fmt.Printf("Model: %s (%s)\n", spec.Name, spec.Description)

	model, err := detection.New(spec.Config, newDemoBackbone(backend), backend)
	if err != nil {
		return err
	}

	images := []*tensor.Tensor[float32, *cpu.Backend]{
		tensor.Randn[float32](tensor.Shape{3, 64, 48}, backend),
		tensor.Randn[float32](tensor.Shape{3, 48, 64}, backend),
	}
	fmt.Printf("Input: %d synthetic images, %v and %v\n",
		len(images), images[0].Shape(), images[1].Shape())

	pred, err := model.Forward(images)
	if err != nil {
		return err
	}
	fmt.Printf("Logits: %v  Boxes: %v\n", pred.Logits.Shape(), pred.Boxes.Shape())

	sizes := [][2]int{{64, 48}, {48, 64}}
	results, err := detection.PostProcess(pred, sizes, 0)
	if err != nil {
		return err
	}

	for i, dets := range results {
		best := dets[0]
		for _, det := range dets {
			if det.Score > best.Score {
				best = det
			}
		}
		fmt.Printf("Image %d: %d query slots, best class %d score %.2f box (%.0f, %.0f)-(%.0f, %.0f)\n",
			i, len(dets), best.ClassID, best.Score,
			best.Box.X0, best.Box.Y0, best.Box.X1, best.Box.Y1)
	}

	fmt.Println("Weights are random; load a checkpoint for real detections.")
	return nil
}
