// The loader package imports serialization, so these tests live in an
// external package to read written files back through it.
package serialization_test

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spot-ml/spot/internal/backend/cpu"
	"github.com/spot-ml/spot/internal/loader"
	"github.com/spot-ml/spot/internal/serialization"
	"github.com/spot-ml/spot/internal/tensor"
)

// TestSafeTensorsFormat parses a written file by hand: 8-byte little-endian
// header length, JSON header, then tensor data in alphabetical order.
func TestSafeTensorsFormat(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "format.safetensors")
	backend := cpu.New()

	b, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, backend.Device())
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}
	copy(b.AsFloat32(), []float32{1, 2})

	a, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, backend.Device())
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}
	a.AsFloat32()[0] = 3

	stateDict := map[string]*tensor.RawTensor{"b": b, "a": a}
	if err := serialization.WriteSafeTensors(testFile, stateDict, map[string]string{"format": "pt"}); err != nil {
		t.Fatalf("WriteSafeTensors failed: %v", err)
	}

	contents, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(contents) < 8 {
		t.Fatalf("File too short: %d bytes", len(contents))
	}

	headerLen := binary.LittleEndian.Uint64(contents[:8])
	if int(8+headerLen) > len(contents) {
		t.Fatalf("Header length %d exceeds file size %d", headerLen, len(contents))
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(contents[8:8+headerLen], &header); err != nil {
		t.Fatalf("Header is not valid JSON: %v", err)
	}

	var metadata map[string]string
	if err := json.Unmarshal(header["__metadata__"], &metadata); err != nil {
		t.Fatalf("Missing __metadata__: %v", err)
	}
	if metadata["format"] != "pt" {
		t.Errorf("Expected format=pt, got %q", metadata["format"])
	}

	// Alphabetical order: "a" occupies [0, 4), "b" occupies [4, 12).
	var entryA, entryB serialization.SafeTensorHeader
	if err := json.Unmarshal(header["a"], &entryA); err != nil {
		t.Fatalf("Missing tensor a: %v", err)
	}
	if err := json.Unmarshal(header["b"], &entryB); err != nil {
		t.Fatalf("Missing tensor b: %v", err)
	}
	if entryA.DType != "F32" || entryB.DType != "F32" {
		t.Errorf("Expected F32 dtypes, got %s and %s", entryA.DType, entryB.DType)
	}
	if entryA.DataOffsets != [2]int64{0, 4} {
		t.Errorf("Expected a at [0, 4), got %v", entryA.DataOffsets)
	}
	if entryB.DataOffsets != [2]int64{4, 12} {
		t.Errorf("Expected b at [4, 12), got %v", entryB.DataOffsets)
	}
}

// TestSafeTensorsRoundTrip writes a file and reads it back through the
// loader package.
func TestSafeTensorsRoundTrip(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "roundtrip.safetensors")
	backend := cpu.New()

	weight, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, backend.Device())
	if err != nil {
		t.Fatalf("Failed to create weight tensor: %v", err)
	}
	copy(weight.AsFloat32(), []float32{1, 2, 3, 4, 5, 6})

	bias, err := tensor.NewRaw(tensor.Shape{3}, tensor.Float32, backend.Device())
	if err != nil {
		t.Fatalf("Failed to create bias tensor: %v", err)
	}
	copy(bias.AsFloat32(), []float32{0.1, 0.2, 0.3})

	original := map[string]*tensor.RawTensor{
		"class_embed.weight": weight,
		"class_embed.bias":   bias,
	}

	if err := serialization.WriteSafeTensors(testFile, original, map[string]string{"format": "pt"}); err != nil {
		t.Fatalf("WriteSafeTensors failed: %v", err)
	}

	reader, err := loader.NewSafeTensorsReader(testFile)
	if err != nil {
		t.Fatalf("NewSafeTensorsReader failed: %v", err)
	}
	defer reader.Close()

	if reader.Metadata()["format"] != "pt" {
		t.Errorf("Expected format=pt, got %s", reader.Metadata()["format"])
	}
	if names := reader.TensorNames(); len(names) != 2 {
		t.Errorf("Expected 2 tensors, got %d", len(names))
	}

	for name, want := range original {
		loaded, err := reader.LoadTensor(name, backend)
		if err != nil {
			t.Fatalf("Failed to load %s: %v", name, err)
		}
		if !rawTensorEqual(want, loaded) {
			t.Errorf("Tensor %s mismatch after round trip", name)
		}
	}
}

func TestSafeTensorsFloat64(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "float64.safetensors")
	backend := cpu.New()

	tensor64, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float64, backend.Device())
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}
	copy(tensor64.AsFloat64(), []float64{1.1, 2.2, 3.3, 4.4})

	if err := serialization.WriteSafeTensors(testFile, map[string]*tensor.RawTensor{"tensor64": tensor64}, nil); err != nil {
		t.Fatalf("WriteSafeTensors failed: %v", err)
	}

	reader, err := loader.NewSafeTensorsReader(testFile)
	if err != nil {
		t.Fatalf("NewSafeTensorsReader failed: %v", err)
	}
	defer reader.Close()

	info, err := reader.TensorInfo("tensor64")
	if err != nil {
		t.Fatalf("TensorInfo failed: %v", err)
	}
	if info.DType != loader.SafeTensorsF64 {
		t.Errorf("Expected dtype F64, got %s", info.DType)
	}

	loaded, err := reader.LoadTensor("tensor64", backend)
	if err != nil {
		t.Fatalf("Failed to load tensor: %v", err)
	}
	if !rawTensorEqual(tensor64, loaded) {
		t.Error("Float64 tensor mismatch after round trip")
	}
}

func TestSafeTensorsShapes(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "shapes.safetensors")
	backend := cpu.New()

	scalar, _ := tensor.NewRaw(tensor.Shape{}, tensor.Float32, backend.Device())
	scalar.AsFloat32()[0] = 42.0
	vector, _ := tensor.NewRaw(tensor.Shape{5}, tensor.Float32, backend.Device())
	matrix, _ := tensor.NewRaw(tensor.Shape{3, 4}, tensor.Float32, backend.Device())
	tensor3d, _ := tensor.NewRaw(tensor.Shape{2, 3, 4}, tensor.Float32, backend.Device())

	stateDict := map[string]*tensor.RawTensor{
		"scalar":   scalar,
		"vector":   vector,
		"matrix":   matrix,
		"tensor3d": tensor3d,
	}

	if err := serialization.WriteSafeTensors(testFile, stateDict, nil); err != nil {
		t.Fatalf("WriteSafeTensors failed: %v", err)
	}

	reader, err := loader.NewSafeTensorsReader(testFile)
	if err != nil {
		t.Fatalf("NewSafeTensorsReader failed: %v", err)
	}
	defer reader.Close()

	tests := []struct {
		name          string
		expectedShape []int64
	}{
		{"scalar", []int64{}},
		{"vector", []int64{5}},
		{"matrix", []int64{3, 4}},
		{"tensor3d", []int64{2, 3, 4}},
	}

	for _, tt := range tests {
		info, err := reader.TensorInfo(tt.name)
		if err != nil {
			t.Errorf("TensorInfo(%s) failed: %v", tt.name, err)
			continue
		}
		if len(info.Shape) != len(tt.expectedShape) {
			t.Errorf("%s: expected shape length %d, got %d", tt.name, len(tt.expectedShape), len(info.Shape))
			continue
		}
		for i, dim := range tt.expectedShape {
			if info.Shape[i] != dim {
				t.Errorf("%s: shape[%d] expected %d, got %d", tt.name, i, dim, info.Shape[i])
			}
		}
	}
}

func TestSafeTensorsEmptyMetadata(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "no_metadata.safetensors")
	backend := cpu.New()

	tensor1, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, backend.Device())
	if err := serialization.WriteSafeTensors(testFile, map[string]*tensor.RawTensor{"tensor": tensor1}, nil); err != nil {
		t.Fatalf("WriteSafeTensors failed: %v", err)
	}

	reader, err := loader.NewSafeTensorsReader(testFile)
	if err != nil {
		t.Fatalf("NewSafeTensorsReader failed: %v", err)
	}
	defer reader.Close()

	if metadata := reader.Metadata(); len(metadata) > 0 {
		t.Errorf("Expected empty metadata, got %v", metadata)
	}
}

// rawTensorEqual compares shape, dtype, and raw bytes.
func rawTensorEqual(a, b *tensor.RawTensor) bool {
	if !a.Shape().Equal(b.Shape()) || a.DType() != b.DType() {
		return false
	}
	aData, bData := a.Data(), b.Data()
	if len(aData) != len(bData) {
		return false
	}
	for i := range aData {
		if aData[i] != bData[i] {
			return false
		}
	}
	return true
}
