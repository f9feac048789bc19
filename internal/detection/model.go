package detection

import (
	"fmt"

	"github.com/spot-ml/spot/internal/nn"
	"github.com/spot-ml/spot/internal/tensor"
)

// Config holds the detection model hyperparameters.
type Config struct {
	EmbedDim      int     // transformer width, must be even and divisible by NumHeads
	NumHeads      int     // attention heads
	HiddenDim     int     // feed-forward hidden width
	EncoderLayers int     // encoder depth, 0 for an identity encoder
	DecoderLayers int     // decoder depth
	NumQueries    int     // object query slots, caps detections per image
	NumClasses    int     // object classes, excluding the no-object class
	Temperature   float64 // positional encoding temperature, 10000 when zero
	Activation    string  // "relu" (default) or "gelu"
	Dropout       float32 // accepted for config compatibility; inference ignores it
}

// DefaultConfig returns the standard detection configuration for the given
// number of object classes: a 256-wide transformer with 8 heads, 6+6 layers
// and 100 object queries.
func DefaultConfig(numClasses int) Config {
	return Config{
		EmbedDim:      256,
		NumHeads:      8,
		HiddenDim:     2048,
		EncoderLayers: 6,
		DecoderLayers: 6,
		NumQueries:    100,
		NumClasses:    numClasses,
		Temperature:   10000,
		Activation:    "relu",
	}
}

func (c Config) withDefaults() Config {
	if c.Temperature == 0 {
		c.Temperature = 10000
	}
	if c.Activation == "" {
		c.Activation = "relu"
	}
	return c
}

// Validate reports the first configuration problem as a *ConfigError, or nil
// when the configuration can build a working model.
func (c Config) Validate() error {
	c = c.withDefaults()

	if c.EmbedDim <= 0 {
		return &ConfigError{Field: "EmbedDim", Reason: fmt.Sprintf("must be positive, got %d", c.EmbedDim)}
	}
	if c.EmbedDim%2 != 0 {
		return &ConfigError{Field: "EmbedDim", Reason: fmt.Sprintf("must be even for sine positional encoding, got %d", c.EmbedDim)}
	}
	if c.NumHeads <= 0 {
		return &ConfigError{Field: "NumHeads", Reason: fmt.Sprintf("must be positive, got %d", c.NumHeads)}
	}
	if c.EmbedDim%c.NumHeads != 0 {
		return &ConfigError{Field: "NumHeads", Reason: fmt.Sprintf("embed dim %d is not divisible by %d heads", c.EmbedDim, c.NumHeads)}
	}
	if c.HiddenDim <= 0 {
		return &ConfigError{Field: "HiddenDim", Reason: fmt.Sprintf("must be positive, got %d", c.HiddenDim)}
	}
	if c.EncoderLayers < 0 {
		return &ConfigError{Field: "EncoderLayers", Reason: fmt.Sprintf("must be non-negative, got %d", c.EncoderLayers)}
	}
	if c.DecoderLayers < 0 {
		return &ConfigError{Field: "DecoderLayers", Reason: fmt.Sprintf("must be non-negative, got %d", c.DecoderLayers)}
	}
	if c.NumQueries <= 0 {
		return &ConfigError{Field: "NumQueries", Reason: fmt.Sprintf("must be positive, got %d", c.NumQueries)}
	}
	if c.NumClasses <= 0 {
		return &ConfigError{Field: "NumClasses", Reason: fmt.Sprintf("must be positive, got %d", c.NumClasses)}
	}
	if c.Temperature <= 0 {
		return &ConfigError{Field: "Temperature", Reason: fmt.Sprintf("must be positive, got %g", c.Temperature)}
	}
	if c.Activation != "relu" && c.Activation != "gelu" {
		return &ConfigError{Field: "Activation", Reason: fmt.Sprintf("must be \"relu\" or \"gelu\", got %q", c.Activation)}
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return &ConfigError{Field: "Dropout", Reason: fmt.Sprintf("must be in [0, 1), got %g", c.Dropout)}
	}
	return nil
}

// Backbone extracts spatial features from a padded image batch.
//
// Extract receives images [batch, channels, h, w] and the padding mask
// [batch, h, w] (true = padded) and returns a feature map
// [batch, OutChannels, h', w'] together with the mask resized to the output
// resolution, typically via ResizeMask.
type Backbone[B tensor.Backend] interface {
	Extract(images *tensor.Tensor[float32, B], mask *tensor.Tensor[bool, B]) (*tensor.Tensor[float32, B], *tensor.Tensor[bool, B])
	OutChannels() int
}

// DETR is the full detection model: an optional convolutional backbone, a 1x1
// projection onto the transformer width, sine positional encodings derived
// from the padding mask, the encoder-decoder transformer over object queries,
// and the classification and box heads.
//
// The model is inference-only. After construction (and optionally loading a
// checkpoint) it is safe for concurrent Forward calls.
type DETR[B tensor.Backend] struct {
	backbone    Backbone[B]
	inputProj   *nn.Conv2D[B]
	posEncoder  *nn.SinePositionalEncoding[B]
	queryEmbed  *nn.QueryEmbedding[B]
	transformer *nn.Transformer[B]
	heads       *PredictionHeads[B]
	config      Config
	backend     B
}

// New builds a detection model from the configuration. A nil backbone is
// allowed; such a model accepts pre-computed feature maps through
// ForwardFeatures but rejects raw images.
func New[B tensor.Backend](config Config, backbone Backbone[B], backend B) (*DETR[B], error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	model := &DETR[B]{
		backbone:   backbone,
		posEncoder: nn.NewSinePositionalEncoding(config.EmbedDim, config.Temperature, backend),
		queryEmbed: nn.NewQueryEmbedding(config.NumQueries, config.EmbedDim, backend),
		transformer: nn.NewTransformer(nn.TransformerConfig{
			EmbedDim:      config.EmbedDim,
			NumHeads:      config.NumHeads,
			FFNDim:        config.HiddenDim,
			EncoderLayers: config.EncoderLayers,
			DecoderLayers: config.DecoderLayers,
			Activation:    config.Activation,
			Dropout:       config.Dropout,
		}, backend),
		heads:   NewPredictionHeads(config.EmbedDim, config.NumClasses, backend),
		config:  config,
		backend: backend,
	}

	if backbone != nil {
		if backbone.OutChannels() <= 0 {
			return nil, &ConfigError{Field: "Backbone", Reason: fmt.Sprintf("backbone reports %d output channels", backbone.OutChannels())}
		}
		model.inputProj = nn.NewConv2D(backbone.OutChannels(), config.EmbedDim, 1, 1, 0, backend)
	}

	return model, nil
}

// Config returns the model configuration with defaults applied.
func (m *DETR[B]) Config() Config {
	return m.config
}

// Backend returns the backend the model's parameters live on.
func (m *DETR[B]) Backend() B {
	return m.backend
}

// Forward runs detection on a batch of variable-sized images, each
// [channels, h, w]. Images are padded to a common size, pushed through the
// backbone, and handed to the transformer and prediction heads.
func (m *DETR[B]) Forward(images []*tensor.Tensor[float32, B]) (*Prediction[B], error) {
	if m.backbone == nil {
		return nil, &InvalidInputError{Reason: "model was built without a backbone; use ForwardFeatures"}
	}

	batch, err := FromImages(images, m.backend)
	if err != nil {
		return nil, err
	}

	features, featureMask := m.backbone.Extract(batch.Tensors(), batch.Mask())
	if err := checkFeatureShapes(features, featureMask, m.backbone.OutChannels()); err != nil {
		return nil, err
	}

	projected := m.inputProj.Forward(features)
	return m.predict(projected, featureMask), nil
}

// ForwardFeatures runs detection on a pre-computed feature map
// [batch, embed_dim, h, w] with its feature mask [batch, h, w]
// (true = padded). The feature channels must equal the configured embedding
// width; there is no projection on this path.
func (m *DETR[B]) ForwardFeatures(features *tensor.Tensor[float32, B], featureMask *tensor.Tensor[bool, B]) (*Prediction[B], error) {
	if err := checkFeatureShapes(features, featureMask, m.config.EmbedDim); err != nil {
		return nil, err
	}
	return m.predict(features, featureMask), nil
}

func (m *DETR[B]) predict(features *tensor.Tensor[float32, B], featureMask *tensor.Tensor[bool, B]) *Prediction[B] {
	pos := m.posEncoder.Encode(featureMask)
	decoded, _ := m.transformer.Forward(features, featureMask, m.queryEmbed, pos)
	return m.heads.Predict(decoded)
}

// checkFeatureShapes validates a feature map / feature mask pair before it
// reaches the transformer, so malformed inputs surface as errors instead of
// panics deep inside an attention kernel.
func checkFeatureShapes[B tensor.Backend](features *tensor.Tensor[float32, B], mask *tensor.Tensor[bool, B], wantChannels int) error {
	fs := features.Shape()
	if len(fs) != 4 {
		return &InvalidInputError{Reason: fmt.Sprintf("features must be [batch, channels, h, w], got shape %v", fs)}
	}
	if fs[1] != wantChannels {
		return &InvalidInputError{Reason: fmt.Sprintf("feature channels %d do not match expected %d", fs[1], wantChannels)}
	}
	if fs[2] <= 0 || fs[3] <= 0 {
		return &InvalidInputError{Reason: fmt.Sprintf("feature map has empty spatial extent %dx%d", fs[2], fs[3])}
	}

	ms := mask.Shape()
	if len(ms) != 3 {
		return &InvalidInputError{Reason: fmt.Sprintf("feature mask must be [batch, h, w], got shape %v", ms)}
	}
	if ms[0] != fs[0] || ms[1] != fs[2] || ms[2] != fs[3] {
		return &InvalidInputError{Reason: fmt.Sprintf("feature mask shape %v does not match features %v", ms, fs)}
	}
	return nil
}

// Parameters returns every learned parameter of the model.
func (m *DETR[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	if m.inputProj != nil {
		params = append(params, m.inputProj.Parameters()...)
	}
	params = append(params, m.queryEmbed.Parameters()...)
	params = append(params, m.transformer.Parameters()...)
	params = append(params, m.heads.Parameters()...)
	return params
}
