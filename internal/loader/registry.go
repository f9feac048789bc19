package loader

import (
	"fmt"
	"sort"

	"github.com/spot-ml/spot/internal/detection"
)

// ModelSpec describes a known model variant. The config covers the
// prediction core only; the backbone is supplied by the caller.
type ModelSpec struct {
	Name        string
	Description string
	Config      detection.Config
}

var registry = map[string]ModelSpec{
	"detr-resnet50": {
		Name:        "detr-resnet50",
		Description: "published DETR base model, COCO classes",
		Config: detection.Config{
			EmbedDim:      256,
			NumHeads:      8,
			HiddenDim:     2048,
			EncoderLayers: 6,
			DecoderLayers: 6,
			NumQueries:    100,
			NumClasses:    91,
		},
	},
	"detr-resnet101": {
		Name:        "detr-resnet101",
		Description: "published DETR with the deeper backbone; same prediction core",
		Config: detection.Config{
			EmbedDim:      256,
			NumHeads:      8,
			HiddenDim:     2048,
			EncoderLayers: 6,
			DecoderLayers: 6,
			NumQueries:    100,
			NumClasses:    91,
		},
	},
	"detr-demo": {
		Name:        "detr-demo",
		Description: "small configuration for tests and the bundled example",
		Config: detection.Config{
			EmbedDim:      64,
			NumHeads:      2,
			HiddenDim:     128,
			EncoderLayers: 1,
			DecoderLayers: 1,
			NumQueries:    10,
			NumClasses:    5,
		},
	},
}

// KnownModels returns the registered model names, sorted.
func KnownModels() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupModel returns the spec for a registered model name.
func LookupModel(name string) (ModelSpec, error) {
	spec, ok := registry[name]
	if !ok {
		return ModelSpec{}, fmt.Errorf("unknown model %q (known models: %v)", name, KnownModels())
	}
	return spec, nil
}
