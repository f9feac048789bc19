package loader

import (
	"fmt"
	"sort"

	"github.com/spot-ml/spot/internal/detection"
	"github.com/spot-ml/spot/internal/tensor"
)

// LoadReport accounts for every tensor touched during a load.
type LoadReport struct {
	Loaded   []string // model parameters that received data
	Skipped  []string // checkpoint tensors with no destination (backbone weights)
	Unmapped []string // checkpoint tensors whose destination does not exist in this model
	Missing  []string // model parameters the checkpoint did not cover
}

// Complete reports whether every model parameter received a value.
func (r *LoadReport) Complete() bool {
	return len(r.Missing) == 0
}

// Summary returns a one-line description for logs.
func (r *LoadReport) Summary() string {
	return fmt.Sprintf("loaded %d, skipped %d, unmapped %d, missing %d",
		len(r.Loaded), len(r.Skipped), len(r.Unmapped), len(r.Missing))
}

// LoadDETR reads a checkpoint and installs its weights into model. The
// container format is chosen by extension (.safetensors or .spot) and the
// parameter naming convention is detected from the tensor names, so both
// published DETR checkpoints and files written by this implementation load
// through the same call.
//
// Checkpoint tensors without a destination in the model are recorded in the
// report rather than treated as errors; published checkpoints carry backbone
// and auxiliary-head weights this model does not hold. A shape or dtype
// mismatch on a mapped tensor is an error and leaves the model partially
// written.
func LoadDETR[B tensor.Backend](path string, model *detection.DETR[B]) (*LoadReport, error) {
	reader, err := OpenModel(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	mapper := GetMapper(DetectArchitecture(reader.TensorNames()))
	return applyMapped(reader, mapper, model)
}

// applyMapped copies every mapped checkpoint tensor into the model's state
// dictionary, which aliases the live parameter memory.
func applyMapped[B tensor.Backend](reader ModelReader, mapper WeightMapper, model *detection.DETR[B]) (*LoadReport, error) {
	dict := model.StateDict()
	backend := model.Backend()

	report := &LoadReport{}
	covered := make(map[string]bool, len(dict))

	names := reader.TensorNames()
	sort.Strings(names)

	for _, name := range names {
		mapped, err := mapper.MapName(name)
		if err != nil {
			return nil, fmt.Errorf("map %s: %w", name, err)
		}
		if len(mapped) == 0 {
			report.Skipped = append(report.Skipped, name)
			continue
		}

		src, err := reader.LoadTensor(name, backend)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if src.DType() != tensor.Float32 {
			return nil, fmt.Errorf("tensor %s: dtype %v, want float32", name, src.DType())
		}
		data := src.Data()

		recorded := false
		for _, mp := range mapped {
			dst, ok := dict[mp.Name]
			if !ok {
				if !recorded {
					report.Unmapped = append(report.Unmapped, name)
					recorded = true
				}
				continue
			}

			if mp.Of == 1 && !src.Shape().Equal(dst.Shape()) {
				return nil, fmt.Errorf("tensor %s: shape %v, want %v", name, src.Shape(), dst.Shape())
			}
			if len(data)%mp.Of != 0 {
				return nil, fmt.Errorf("tensor %s: %d bytes does not split into %d chunks", name, len(data), mp.Of)
			}
			chunkSize := len(data) / mp.Of
			chunk := data[mp.Chunk*chunkSize : (mp.Chunk+1)*chunkSize]
			if len(chunk) != len(dst.Data()) {
				return nil, fmt.Errorf("tensor %s -> %s: %d bytes, want %d",
					name, mp.Name, len(chunk), len(dst.Data()))
			}

			copy(dst.Data(), chunk)
			covered[mp.Name] = true
			report.Loaded = append(report.Loaded, mp.Name)
		}
	}

	for name := range dict {
		if !covered[name] {
			report.Missing = append(report.Missing, name)
		}
	}
	sort.Strings(report.Missing)

	return report, nil
}
