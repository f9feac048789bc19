package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spot-ml/spot/internal/serialization"
	"github.com/spot-ml/spot/internal/tensor"
)

// ModelFormat represents the model weight container format.
type ModelFormat int

// Supported model formats.
const (
	FormatUnknown ModelFormat = iota
	FormatSafeTensors
	FormatSpot
)

// String returns the format name.
func (f ModelFormat) String() string {
	switch f {
	case FormatSafeTensors:
		return "SafeTensors"
	case FormatSpot:
		return "Spot"
	default:
		return "Unknown"
	}
}

// ModelReader provides a unified interface over the supported weight
// containers.
type ModelReader interface {
	// Close closes the underlying file.
	Close() error

	// Format returns the container format.
	Format() ModelFormat

	// Architecture returns the detected naming convention.
	Architecture() string

	// Metadata returns model metadata.
	Metadata() map[string]string

	// TensorNames returns all tensor names in the file.
	TensorNames() []string

	// LoadTensor loads a tensor by its name in the file.
	LoadTensor(name string, backend tensor.Backend) (*tensor.RawTensor, error)

	// ReadTensorData reads raw tensor bytes (for custom conversion).
	ReadTensorData(name string) ([]byte, error)
}

// safeTensorsModel wraps SafeTensorsReader to implement ModelReader.
type safeTensorsModel struct {
	reader       *SafeTensorsReader
	architecture string
}

func (m *safeTensorsModel) Format() ModelFormat {
	return FormatSafeTensors
}

func (m *safeTensorsModel) Architecture() string {
	return m.architecture
}

func (m *safeTensorsModel) Metadata() map[string]string {
	return m.reader.Metadata()
}

func (m *safeTensorsModel) TensorNames() []string {
	return m.reader.TensorNames()
}

func (m *safeTensorsModel) LoadTensor(name string, backend tensor.Backend) (*tensor.RawTensor, error) {
	return m.reader.LoadTensor(name, backend)
}

func (m *safeTensorsModel) ReadTensorData(name string) ([]byte, error) {
	return m.reader.ReadTensorData(name)
}

func (m *safeTensorsModel) Close() error {
	return m.reader.Close()
}

// spotModel wraps a native checkpoint reader to implement ModelReader.
// Native files always carry native parameter names.
type spotModel struct {
	reader *serialization.Reader
}

func (m *spotModel) Format() ModelFormat {
	return FormatSpot
}

func (m *spotModel) Architecture() string {
	return ArchitectureNative
}

func (m *spotModel) Metadata() map[string]string {
	return m.reader.Metadata()
}

func (m *spotModel) TensorNames() []string {
	return m.reader.TensorNames()
}

func (m *spotModel) LoadTensor(name string, backend tensor.Backend) (*tensor.RawTensor, error) {
	return m.reader.LoadTensor(name, backend)
}

func (m *spotModel) ReadTensorData(name string) ([]byte, error) {
	return m.reader.ReadTensorData(name)
}

func (m *spotModel) Close() error {
	return m.reader.Close()
}

// OpenModel opens a model file and auto-detects the format from the
// extension. Supports .safetensors and .spot files.
//
// Example:
//
//	model, err := loader.OpenModel("path/to/model.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer model.Close()
//
//	fmt.Printf("Format: %s\n", model.Format())
//	fmt.Printf("Architecture: %s\n", model.Architecture())
func OpenModel(path string) (ModelReader, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".safetensors":
		return openSafeTensors(path)
	case ".spot":
		return openSpot(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (expected .safetensors or .spot)", ext)
	}
}

func openSafeTensors(path string) (ModelReader, error) {
	reader, err := NewSafeTensorsReader(path)
	if err != nil {
		return nil, err
	}

	return &safeTensorsModel{
		reader:       reader,
		architecture: DetectArchitecture(reader.TensorNames()),
	}, nil
}

func openSpot(path string) (ModelReader, error) {
	reader, err := serialization.NewReader(path)
	if err != nil {
		return nil, err
	}
	return &spotModel{reader: reader}, nil
}
