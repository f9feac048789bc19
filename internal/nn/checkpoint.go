package nn

import (
	"fmt"

	"github.com/spot-ml/spot/internal/serialization"
	"github.com/spot-ml/spot/internal/tensor"
)

// Checkpointable is implemented by modules whose parameters can be
// captured and restored as a flat name to tensor dictionary. Linear
// implements it directly; composite models flatten their submodule
// dictionaries under dotted prefixes the way the detection model does.
type Checkpointable interface {
	// StateDict returns the module parameters for serialization. The
	// returned tensors alias live parameter memory.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies matching entries into the module parameters.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// SaveCheckpoint writes a module's parameters to a .spot file at path.
//
// The caller controls the descriptive header fields (ModelType, Model,
// Metadata); the format version, timestamp and tensor table are filled
// in by the writer. Embedding the model configuration makes the file
// self-describing:
//
//	err := nn.SaveCheckpoint("model.spot", model, serialization.Header{
//	    ModelType: "detr",
//	    Model:     &serialization.ModelMeta{EmbedDim: 256, NumHeads: 8},
//	})
func SaveCheckpoint(path string, module Checkpointable, header serialization.Header) (err error) {
	writer, err := serialization.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := writer.WriteStateDictWithHeader(module.StateDict(), header); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	return nil
}

// LoadCheckpoint restores a module's parameters from a .spot file.
//
// The module must be pre-constructed with the same architecture the
// checkpoint was saved from; LoadStateDict rejects missing or
// mismatched entries. The returned header carries the stored model
// configuration and metadata.
func LoadCheckpoint(path string, backend tensor.Backend, module Checkpointable) (header *serialization.Header, err error) {
	reader, err := serialization.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	stateDict, err := reader.ReadStateDict(backend)
	if err != nil {
		return nil, fmt.Errorf("failed to read state dict: %w", err)
	}

	if err := module.LoadStateDict(stateDict); err != nil {
		return nil, fmt.Errorf("failed to load module state: %w", err)
	}

	h := reader.Header()
	return &h, nil
}
