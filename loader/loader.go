// Package loader provides model weight loading for the Spot ML framework.
//
// This package wraps internal loader implementations and exports a clean public API
// for loading model weights from various formats (SafeTensors, Spot checkpoints).
//
// Example usage:
//
//	import (
//	    "github.com/spot-ml/spot/loader"
//	    "github.com/spot-ml/spot/backend/cpu"
//	)
//
//	// Open model with auto-detection
//	model, err := loader.OpenModel("path/to/model.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer model.Close()
//
//	// Get model information
//	fmt.Printf("Format: %s\n", model.Format())
//	fmt.Printf("Architecture: %s\n", model.Architecture())
//
//	// Load a specific tensor
//	backend := cpu.New()
//	tensor, err := model.LoadTensor("transformer.encoder.layers.0.self_attn.wq.weight", backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
package loader

import (
	"github.com/spot-ml/spot/detection"
	"github.com/spot-ml/spot/internal/loader"
	"github.com/spot-ml/spot/tensor"
)

// ModelFormat represents the model weight format.
type ModelFormat = loader.ModelFormat

// Supported model formats.
const (
	FormatUnknown     ModelFormat = loader.FormatUnknown
	FormatSafeTensors ModelFormat = loader.FormatSafeTensors
	FormatSpot        ModelFormat = loader.FormatSpot
)

// ModelReader provides a unified interface for loading model weights.
// It abstracts away the underlying file format and provides consistent access
// to model tensors.
//
// Note: This is a type alias because the LoadTensor method signature references
// internal tensor types that cannot be abstracted without a wrapper layer.
type ModelReader = loader.ModelReader

// OpenModel opens a model file and auto-detects the format.
//
// Supported formats:
//   - .safetensors (Hugging Face standard)
//   - .spot (native checkpoint format)
//
// The parameter naming convention (published DETR or native) is detected
// from the tensor names when weights are applied to a model.
//
// Example:
//
//	model, err := loader.OpenModel("path/to/detr-resnet50.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer model.Close()
//
//	fmt.Printf("Format: %s\n", model.Format())        // "SafeTensors"
//	fmt.Printf("Architecture: %s\n", model.Architecture()) // "detr"
//
//	// List all tensors
//	for _, name := range model.TensorNames() {
//	    fmt.Println(name)
//	}
//
//	// Load specific tensor
//	backend := cpu.New()
//	weight, err := model.LoadTensor("transformer.encoder.layers.0.self_attn.wq.weight", backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
func OpenModel(path string) (ModelReader, error) {
	return loader.OpenModel(path)
}

// MappedParam is one destination for a checkpoint tensor. A fused source
// tensor maps to several destinations, each taking an equal chunk of the
// source's leading dimension.
type MappedParam = loader.MappedParam

// WeightMapper translates checkpoint parameter names to the names used by
// Spot models. Different checkpoint sources use different naming conventions.
// This interface provides a way to normalize weight names.
type WeightMapper interface {
	// MapName converts a checkpoint tensor name to its Spot destinations.
	// A nil, nil return means the tensor is recognized but has no
	// destination (backbone weights, for example).
	MapName(name string) ([]MappedParam, error)

	// Architecture returns the naming convention this mapper handles.
	Architecture() string
}

// NewNativeMapper creates a pass-through mapper for checkpoints written
// by Spot itself.
func NewNativeMapper() WeightMapper {
	return loader.NewNativeMapper()
}

// NewDETRMapper creates a weight mapper for published DETR checkpoints.
// It splits fused attention in-proj tensors into per-projection weights and
// renames norm weight/bias to gamma/beta.
func NewDETRMapper() WeightMapper {
	return loader.NewDETRMapper()
}

// DetectArchitecture attempts to detect the naming convention from weight names.
// Returns "detr" or "native".
func DetectArchitecture(names []string) string {
	return loader.DetectArchitecture(names)
}

// GetMapper returns the weight mapper for a naming convention.
func GetMapper(architecture string) WeightMapper {
	return loader.GetMapper(architecture)
}

// LoadReport accounts for every tensor touched during a load.
type LoadReport = loader.LoadReport

// LoadDETR reads a checkpoint and installs its weights into model.
//
// The container format is chosen by extension (.safetensors or .spot) and
// the parameter naming convention is detected from the tensor names, so
// both published DETR checkpoints and files written by Spot load through
// the same call.
//
// Example:
//
//	model, _ := detection.New(detection.DefaultConfig(91), nil, backend)
//	report, err := loader.LoadDETR("detr-resnet50.safetensors", model)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Summary())
func LoadDETR[B tensor.Backend](path string, model *detection.DETR[B]) (*LoadReport, error) {
	return loader.LoadDETR(path, model)
}

// ModelSpec describes a known model variant. The config covers the
// prediction core only; the backbone is supplied by the caller.
type ModelSpec = loader.ModelSpec

// KnownModels returns the registered model names, sorted.
func KnownModels() []string {
	return loader.KnownModels()
}

// LookupModel returns the spec for a registered model name.
//
// Example:
//
//	spec, err := loader.LookupModel("detr-resnet50")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model, _ := detection.New(spec.Config, backbone, backend)
func LookupModel(name string) (ModelSpec, error) {
	return loader.LookupModel(name)
}
