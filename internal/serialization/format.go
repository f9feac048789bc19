package serialization

import (
	"time"

	"github.com/spot-ml/spot/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "SPOT"
	FormatVersion   = 1
	HeaderAlignment = 64   // tensor data is aligned to 64 bytes
	FixedHeaderSize = 64   // fixed binary header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size
	ChecksumOffset  = 0x20 // checksum offset in the fixed header
)

// Data type string constants for serialization.
const (
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
	DTypeInt32   = "int32"
	DTypeInt64   = "int64"
	DTypeUint8   = "uint8"
	DTypeBool    = "bool"
)

// Flags for the .spot format.
const (
	FlagHasMetadata  uint32 = 1 << 0 // bit 0: custom metadata included
	FlagHasModelMeta uint32 = 1 << 1 // bit 1: model configuration included
)

// Header is the JSON header of a .spot file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	SpotVersion   string            `json:"spot_version"`    // version of Spot that wrote the file
	ModelType     string            `json:"model_type"`      // e.g. "detr"
	CreatedAt     time.Time         `json:"created_at"`      // when the file was written
	Tensors       []TensorMeta      `json:"tensors"`         // tensor metadata
	Metadata      map[string]string `json:"metadata"`        // custom metadata
	Model         *ModelMeta        `json:"model,omitempty"` // model configuration (optional)
}

// ModelMeta embeds the detection model configuration in a checkpoint so the
// file alone can rebuild the model it belongs to.
type ModelMeta struct {
	EmbedDim      int    `json:"embed_dim"`
	NumHeads      int    `json:"num_heads"`
	HiddenDim     int    `json:"hidden_dim"`
	EncoderLayers int    `json:"encoder_layers"`
	DecoderLayers int    `json:"decoder_layers"`
	NumQueries    int    `json:"num_queries"`
	NumClasses    int    `json:"num_classes"`
	Activation    string `json:"activation,omitempty"`
}

// TensorMeta describes one tensor in the .spot file.
type TensorMeta struct {
	Name   string `json:"name"`   // parameter name, e.g. "class_embed.weight"
	DType  string `json:"dtype"`  // data type, e.g. "float32"
	Shape  []int  `json:"shape"`  // tensor shape
	Offset int64  `json:"offset"` // offset in bytes from the start of the data section
	Size   int64  `json:"size"`   // size in bytes
}

// dtypeToString converts tensor.DataType to its serialized name.
func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Float64:
		return DTypeFloat64
	case tensor.Int32:
		return DTypeInt32
	case tensor.Int64:
		return DTypeInt64
	case tensor.Uint8:
		return DTypeUint8
	case tensor.Bool:
		return DTypeBool
	default:
		return "unknown"
	}
}

// stringToDtype converts a serialized name back to tensor.DataType.
func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeFloat64:
		return tensor.Float64, true
	case DTypeInt32:
		return tensor.Int32, true
	case DTypeInt64:
		return tensor.Int64, true
	case DTypeUint8:
		return tensor.Uint8, true
	case DTypeBool:
		return tensor.Bool, true
	default:
		return 0, false
	}
}
