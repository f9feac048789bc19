// Copyright 2025 Spot ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package detection provides transformer-based object detection.
//
// The model follows the DETR architecture: a backbone turns images into a
// feature map, a transformer encoder/decoder attends over the feature map
// with a fixed set of learned object queries, and prediction heads map each
// query to class logits and a bounding box. Variable-size image batches are
// handled by padding to a common size and masking the padded region.
//
// Example:
//
//	import (
//	    "github.com/spot-ml/spot/backend/cpu"
//	    "github.com/spot-ml/spot/detection"
//	    "github.com/spot-ml/spot/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    model, err := detection.New(detection.DefaultConfig(91), backbone, backend)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    images := []*tensor.Tensor[float32, *cpu.Backend]{img1, img2}
//	    pred, err := model.Forward(images)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    sizes := [][2]int{{480, 640}, {512, 512}}
//	    results, _ := detection.PostProcess(pred, sizes, 0.7)
//	    for _, det := range results[0] {
//	        fmt.Printf("class %d score %.2f box %+v\n", det.ClassID, det.Score, det.Box)
//	    }
//	}
package detection

import (
	"github.com/spot-ml/spot/internal/detection"
	"github.com/spot-ml/spot/tensor"
)

// Config holds the model hyperparameters.
type Config = detection.Config

// DefaultConfig returns the published DETR base configuration for the given
// number of object classes: 256-dim embeddings, 8 heads, 2048-dim feedforward,
// 6 encoder and 6 decoder layers, 100 object queries.
func DefaultConfig(numClasses int) Config {
	return detection.DefaultConfig(numClasses)
}

// Backbone turns a padded image batch into a feature map and downsamples the
// padding mask to match. Implementations wrap a CNN such as a ResNet.
type Backbone[B tensor.Backend] = detection.Backbone[B]

// DETR is the full detection model.
type DETR[B tensor.Backend] = detection.DETR[B]

// New creates a detection model from a config.
//
// backbone may be nil, in which case only ForwardFeatures is usable and
// Forward returns an error. All weights start randomly initialized; use
// loader.LoadDETR or nn.LoadCheckpoint to install trained weights.
func New[B tensor.Backend](config Config, backbone Backbone[B], backend B) (*DETR[B], error) {
	return detection.New(config, backbone, backend)
}

// Prediction holds the raw model output: class logits with shape
// [batch, num_queries, num_classes+1] and normalized (cx, cy, w, h) boxes
// with shape [batch, num_queries, 4].
type Prediction[B tensor.Backend] = detection.Prediction[B]

// PredictionHeads map decoder output to class logits and boxes.
type PredictionHeads[B tensor.Backend] = detection.PredictionHeads[B]

// NewPredictionHeads creates prediction heads for the given embedding width
// and number of object classes.
func NewPredictionHeads[B tensor.Backend](embedDim, numClasses int, backend B) *PredictionHeads[B] {
	return detection.NewPredictionHeads(embedDim, numClasses, backend)
}

// Box is an axis-aligned box in pixel coordinates, (X0, Y0) top-left and
// (X1, Y1) bottom-right.
type Box = detection.Box

// Detection is one scored object in an image.
type Detection = detection.Detection

// PostProcess converts raw predictions into one detection list per image.
//
// sizes carries the original (height, width) of each image and scales the
// normalized boxes back to pixel corners. Queries whose best real class
// scores below scoreThreshold are dropped; pass 0 to keep every query slot.
func PostProcess[B tensor.Backend](pred *Prediction[B], sizes [][2]int, scoreThreshold float32) ([][]Detection, error) {
	return detection.PostProcess(pred, sizes, scoreThreshold)
}

// PostProcessor converts raw predictions into detections, keeping a fixed
// score threshold across calls.
type PostProcessor[B tensor.Backend] = detection.PostProcessor[B]

// NewPostProcessor creates a post-processor with the given score threshold.
// A threshold of 0 keeps every query slot.
func NewPostProcessor[B tensor.Backend](scoreThreshold float32) *PostProcessor[B] {
	return detection.NewPostProcessor[B](scoreThreshold)
}

// NestedTensor is a padded image batch together with the mask that records
// which pixels are padding.
type NestedTensor[B tensor.Backend] = detection.NestedTensor[B]

// FromImages pads a list of [3, H, W] images to a common size and builds the
// padding mask. Images may have different heights and widths.
//
// Example:
//
//	batch, err := detection.FromImages(images, backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	padded := batch.Tensors() // [N, 3, maxH, maxW]
//	mask := batch.Mask()      // [N, maxH, maxW], true where padded
func FromImages[B tensor.Backend](images []*tensor.Tensor[float32, B], backend B) (*NestedTensor[B], error) {
	return detection.FromImages(images, backend)
}

// ResizeMask downsamples a boolean padding mask to a feature-map resolution
// using nearest-neighbor interpolation.
func ResizeMask[B tensor.Backend](mask *tensor.Tensor[bool, B], outH, outW int) *tensor.Tensor[bool, B] {
	return detection.ResizeMask(mask, outH, outW)
}

// Common errors. Wrapped errors unwrap to these, so callers can test with
// errors.Is.
var (
	ErrInvalidInput  = detection.ErrInvalidInput
	ErrInvalidConfig = detection.ErrInvalidConfig
)

// InvalidInputError reports a rejected per-call input. The model instance
// stays usable after the failed call.
type InvalidInputError = detection.InvalidInputError

// ConfigError reports an invalid model configuration.
type ConfigError = detection.ConfigError
