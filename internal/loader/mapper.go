package loader

import (
	"fmt"
	"strings"
)

// Naming conventions found in checkpoints.
const (
	// ArchitectureDETR is the published torch naming: fused attention
	// in-proj tensors, norm weight/bias, multihead_attn for cross
	// attention.
	ArchitectureDETR = "detr"
	// ArchitectureNative is the naming produced by StateDict.
	ArchitectureNative = "native"
)

// MappedParam is one destination for a checkpoint tensor. A fused source
// tensor maps to several destinations, each taking an equal chunk of the
// source's leading dimension.
type MappedParam struct {
	Name  string // destination parameter name
	Chunk int    // chunk index within the source tensor
	Of    int    // total number of chunks; 1 means the whole tensor
}

func whole(name string) []MappedParam {
	return []MappedParam{{Name: name, Of: 1}}
}

// WeightMapper translates checkpoint parameter names to the names used by
// this implementation. A nil, nil return means the tensor is recognized but
// has no destination here (backbone weights, for example).
type WeightMapper interface {
	MapName(name string) ([]MappedParam, error)

	// Architecture returns the naming convention this mapper handles.
	Architecture() string
}

// NativeMapper passes names through untouched. It handles checkpoints
// written by this implementation.
type NativeMapper struct{}

// NewNativeMapper creates a pass-through mapper.
func NewNativeMapper() *NativeMapper {
	return &NativeMapper{}
}

// MapName returns the name unchanged.
func (m *NativeMapper) MapName(name string) ([]MappedParam, error) {
	return whole(name), nil
}

// Architecture returns "native".
func (m *NativeMapper) Architecture() string {
	return ArchitectureNative
}

// DETRMapper maps parameter names from published DETR checkpoints.
type DETRMapper struct{}

// NewDETRMapper creates a mapper for the published torch naming.
func NewDETRMapper() *DETRMapper {
	return &DETRMapper{}
}

// MapName converts published DETR names:
//   - transformer.encoder.layers.{i}.self_attn.in_proj_weight
//     -> ...self_attn.wq/.wk/.wv.weight (leading-dimension thirds)
//   - ...self_attn.out_proj.weight -> ...self_attn.wo.weight
//   - ...multihead_attn.* -> ...cross_attn.*
//   - ...linear1.weight -> ...ffn.linear1.weight
//   - ...norm1.weight / .bias -> ...norm1.gamma / .beta
//
// Backbone weights are recognized but have no destination in the
// prediction core.
func (m *DETRMapper) MapName(name string) ([]MappedParam, error) {
	if strings.HasPrefix(name, "backbone.") {
		return nil, nil
	}

	switch name {
	case "query_embed.weight",
		"input_proj.weight", "input_proj.bias",
		"class_embed.weight", "class_embed.bias":
		return whole(name), nil
	}

	if strings.HasPrefix(name, "bbox_embed.layers.") {
		return whole(name), nil
	}

	if strings.HasPrefix(name, "transformer.") {
		return m.mapTransformer(name)
	}

	return nil, fmt.Errorf("unrecognized parameter name: %s", name)
}

// mapTransformer maps names under the transformer prefix.
func (m *DETRMapper) mapTransformer(name string) ([]MappedParam, error) {
	// Final decoder norm sits outside the layer stack.
	if strings.HasPrefix(name, "transformer.decoder.norm.") {
		field := strings.TrimPrefix(name, "transformer.decoder.norm.")
		return mapNormParam("transformer.decoder.norm", field, name)
	}

	// transformer.{encoder|decoder}.layers.{i}.{module}.{field...}
	parts := strings.Split(name, ".")
	if len(parts) < 6 || parts[2] != "layers" {
		return nil, fmt.Errorf("unrecognized parameter name: %s", name)
	}
	prefix := strings.Join(parts[:4], ".")
	module := parts[4]
	field := strings.Join(parts[5:], ".")

	switch module {
	case "self_attn":
		return mapAttentionParam(prefix+".self_attn", field, name)
	case "multihead_attn":
		return mapAttentionParam(prefix+".cross_attn", field, name)
	case "linear1":
		return whole(prefix + ".ffn.linear1." + field), nil
	case "linear2":
		return whole(prefix + ".ffn.linear2." + field), nil
	case "norm1", "norm2", "norm3":
		return mapNormParam(prefix+"."+module, field, name)
	}

	return nil, fmt.Errorf("unrecognized parameter name: %s", name)
}

// mapAttentionParam maps one attention parameter. The fused in-proj tensors
// stack the query, key, and value projections along the leading dimension in
// that order.
func mapAttentionParam(prefix, field, original string) ([]MappedParam, error) {
	switch field {
	case "in_proj_weight":
		return []MappedParam{
			{Name: prefix + ".wq.weight", Chunk: 0, Of: 3},
			{Name: prefix + ".wk.weight", Chunk: 1, Of: 3},
			{Name: prefix + ".wv.weight", Chunk: 2, Of: 3},
		}, nil
	case "in_proj_bias":
		return []MappedParam{
			{Name: prefix + ".wq.bias", Chunk: 0, Of: 3},
			{Name: prefix + ".wk.bias", Chunk: 1, Of: 3},
			{Name: prefix + ".wv.bias", Chunk: 2, Of: 3},
		}, nil
	case "out_proj.weight":
		return whole(prefix + ".wo.weight"), nil
	case "out_proj.bias":
		return whole(prefix + ".wo.bias"), nil
	}
	return nil, fmt.Errorf("unrecognized attention parameter: %s", original)
}

func mapNormParam(prefix, field, original string) ([]MappedParam, error) {
	switch field {
	case "weight":
		return whole(prefix + ".gamma"), nil
	case "bias":
		return whole(prefix + ".beta"), nil
	}
	return nil, fmt.Errorf("unrecognized norm parameter: %s", original)
}

// Architecture returns "detr".
func (m *DETRMapper) Architecture() string {
	return ArchitectureDETR
}

// DetectArchitecture guesses the naming convention from tensor names.
func DetectArchitecture(names []string) string {
	for _, name := range names {
		if strings.Contains(name, "in_proj_weight") || strings.Contains(name, "out_proj.") {
			return ArchitectureDETR
		}
	}
	for _, name := range names {
		if strings.Contains(name, ".wq.") || strings.Contains(name, ".cross_attn.") ||
			strings.Contains(name, ".gamma") {
			return ArchitectureNative
		}
	}
	// Published checkpoints are the common case.
	return ArchitectureDETR
}

// GetMapper returns the weight mapper for a naming convention.
func GetMapper(architecture string) WeightMapper {
	if architecture == ArchitectureNative {
		return NewNativeMapper()
	}
	return NewDETRMapper()
}
