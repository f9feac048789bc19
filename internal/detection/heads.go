package detection

import (
	"github.com/spot-ml/spot/internal/nn"
	"github.com/spot-ml/spot/internal/tensor"
)

// Prediction holds the raw outputs of a detection forward pass.
type Prediction[B tensor.Backend] struct {
	// Logits are unnormalized class scores with shape
	// [batch, num_queries, num_classes+1]. The final class index is the
	// no-object class.
	Logits *tensor.Tensor[float32, B]

	// Boxes are predicted boxes in normalized (cx, cy, w, h) format with
	// shape [batch, num_queries, 4]. Every coordinate lies in [0, 1].
	Boxes *tensor.Tensor[float32, B]
}

// PredictionHeads map decoder output to class logits and boxes.
//
// The classification head is a single linear projection; the box head is a
// three-layer MLP whose output is squashed through a sigmoid so boxes stay
// inside the unit square regardless of the embedding scale.
type PredictionHeads[B tensor.Backend] struct {
	ClassHead *nn.Linear[B]
	BoxHead   *nn.MLP[B]

	sigmoid *nn.Sigmoid[B]
}

// NewPredictionHeads creates prediction heads for the given embedding width
// and number of object classes. The classification head emits numClasses+1
// logits per query to make room for the no-object class.
func NewPredictionHeads[B tensor.Backend](embedDim, numClasses int, backend B) *PredictionHeads[B] {
	return &PredictionHeads[B]{
		ClassHead: nn.NewLinear(embedDim, numClasses+1, backend),
		BoxHead:   nn.NewMLP(embedDim, embedDim, 4, 3, backend),
		sigmoid:   nn.NewSigmoid[B](),
	}
}

// Predict applies both heads to decoder output of shape
// [1, num_queries, batch, embed_dim] and returns batch-first predictions.
func (h *PredictionHeads[B]) Predict(decoded *tensor.Tensor[float32, B]) *Prediction[B] {
	// [1, Q, N, D] -> [Q, N, D] -> [N, Q, D]
	queries := decoded.Squeeze(0).Transpose(1, 0, 2)

	logits := h.ClassHead.Forward(queries)
	boxes := h.sigmoid.Forward(h.BoxHead.Forward(queries))

	return &Prediction[B]{Logits: logits, Boxes: boxes}
}

// Parameters returns the parameters of both heads.
func (h *PredictionHeads[B]) Parameters() []*nn.Parameter[B] {
	params := h.ClassHead.Parameters()
	return append(params, h.BoxHead.Parameters()...)
}
