package detection

import (
	"fmt"

	"github.com/spot-ml/spot/internal/tensor"
)

// Box is an axis-aligned box in pixel coordinates, (X0, Y0) top-left and
// (X1, Y1) bottom-right.
type Box struct {
	X0, Y0, X1, Y1 float32
}

// Detection is one scored object in an image.
type Detection struct {
	ClassID int
	Score   float32
	Box     Box
}

// PostProcessor converts raw predictions into detections, keeping a fixed
// score threshold across calls.
type PostProcessor[B tensor.Backend] struct {
	ScoreThreshold float32
}

// NewPostProcessor creates a post-processor with the given score threshold.
// A threshold of 0 keeps every query slot.
func NewPostProcessor[B tensor.Backend](scoreThreshold float32) *PostProcessor[B] {
	return &PostProcessor[B]{ScoreThreshold: scoreThreshold}
}

// Process converts raw predictions into one detection list per image.
func (p *PostProcessor[B]) Process(pred *Prediction[B], sizes [][2]int) ([][]Detection, error) {
	return PostProcess(pred, sizes, p.ScoreThreshold)
}

// PostProcess converts raw predictions into one detection list per image.
//
// Class scores come from a softmax over the logits; a query whose best real
// class is weaker than the no-object class can still surface, so callers
// normally pass a scoreThreshold (0 keeps every query slot). sizes carries
// the original (height, width) of each image and scales the normalized
// (cx, cy, w, h) boxes back to pixel corners. Detections keep query order.
func PostProcess[B tensor.Backend](pred *Prediction[B], sizes [][2]int, scoreThreshold float32) ([][]Detection, error) {
	ls := pred.Logits.Shape()
	bs := pred.Boxes.Shape()
	if len(ls) != 3 {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("logits must be [batch, queries, classes+1], got shape %v", ls)}
	}
	if len(bs) != 3 || bs[2] != 4 {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("boxes must be [batch, queries, 4], got shape %v", bs)}
	}
	batch, queries, numProbs := ls[0], ls[1], ls[2]
	if bs[0] != batch || bs[1] != queries {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("boxes shape %v does not match logits %v", bs, ls)}
	}
	if numProbs < 2 {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("logits carry %d classes, need at least one real class plus no-object", numProbs)}
	}
	if len(sizes) != batch {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("got %d image sizes for a batch of %d", len(sizes), batch)}
	}

	probs := pred.Logits.Softmax(-1).Data()
	boxes := pred.Boxes.Data()

	results := make([][]Detection, batch)
	for n := 0; n < batch; n++ {
		h, w := sizes[n][0], sizes[n][1]
		if h <= 0 || w <= 0 {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("image %d has non-positive size %dx%d", n, h, w)}
		}
		fh, fw := float32(h), float32(w)

		dets := make([]Detection, 0, queries)
		for q := 0; q < queries; q++ {
			row := (n*queries + q) * numProbs

			// Best real class; the final index is no-object and never wins.
			best, bestScore := 0, probs[row]
			for c := 1; c < numProbs-1; c++ {
				if probs[row+c] > bestScore {
					best, bestScore = c, probs[row+c]
				}
			}
			if bestScore < scoreThreshold {
				continue
			}

			b := (n*queries + q) * 4
			cx, cy, bw, bh := boxes[b], boxes[b+1], boxes[b+2], boxes[b+3]
			dets = append(dets, Detection{
				ClassID: best,
				Score:   bestScore,
				Box: Box{
					X0: (cx - bw/2) * fw,
					Y0: (cy - bh/2) * fh,
					X1: (cx + bw/2) * fw,
					Y1: (cy + bh/2) * fh,
				},
			})
		}
		results[n] = dets
	}

	return results, nil
}
