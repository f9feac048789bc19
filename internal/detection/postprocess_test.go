package detection

import (
	"errors"
	"math"
	"testing"

	"github.com/spot-ml/spot/internal/backend/cpu"
	"github.com/spot-ml/spot/internal/tensor"
)

func mustTensor[T tensor.DType](t *testing.T, data []T, shape tensor.Shape, backend *cpu.CPUBackend) *tensor.Tensor[T, *cpu.CPUBackend] {
	t.Helper()
	tens, err := tensor.FromSlice(data, shape, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return tens
}

// TestPostProcess_ThresholdsAndScales builds a two-query prediction where
// query 0 confidently sees class 1 and query 1 sees nothing. With a 0.5
// threshold only query 0 survives, its box scaled to the image size.
func TestPostProcess_ThresholdsAndScales(t *testing.T) {
	backend := cpu.New()

	logits := mustTensor(t, []float32{
		0, 10, 0, // query 0: class 1
		0, 0, 10, // query 1: no-object
	}, tensor.Shape{1, 2, 3}, backend)
	boxes := mustTensor(t, []float32{
		0.5, 0.5, 0.2, 0.4,
		0.1, 0.1, 0.1, 0.1,
	}, tensor.Shape{1, 2, 4}, backend)
	pred := &Prediction[*cpu.CPUBackend]{Logits: logits, Boxes: boxes}

	results, err := PostProcess(pred, [][2]int{{100, 200}}, 0.5)
	if err != nil {
		t.Fatalf("PostProcess: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 image result, got %d", len(results))
	}
	dets := results[0]
	if len(dets) != 1 {
		t.Fatalf("Expected 1 detection above threshold, got %d", len(dets))
	}

	det := dets[0]
	if det.ClassID != 1 {
		t.Errorf("Expected class 1, got %d", det.ClassID)
	}
	if det.Score < 0.99 {
		t.Errorf("Expected near-certain score, got %v", det.Score)
	}

	// (cx=0.5, cy=0.5, w=0.2, h=0.4) on a 100x200 image.
	wantBox := Box{X0: 80, Y0: 30, X1: 120, Y1: 70}
	for name, got := range map[string][2]float32{
		"X0": {det.Box.X0, wantBox.X0},
		"Y0": {det.Box.Y0, wantBox.Y0},
		"X1": {det.Box.X1, wantBox.X1},
		"Y1": {det.Box.Y1, wantBox.Y1},
	} {
		if math.Abs(float64(got[0]-got[1])) > 1e-3 {
			t.Errorf("%s: got %v, want %v", name, got[0], got[1])
		}
	}
}

// TestPostProcess_ZeroThresholdKeepsAllQueries disables the threshold and
// expects every query slot to produce a detection, no-object or not.
func TestPostProcess_ZeroThresholdKeepsAllQueries(t *testing.T) {
	backend := cpu.New()

	logits := mustTensor(t, []float32{
		0, 10, 0,
		0, 0, 10,
	}, tensor.Shape{1, 2, 3}, backend)
	boxes := mustTensor(t, []float32{
		0.5, 0.5, 0.2, 0.4,
		0.3, 0.3, 0.1, 0.1,
	}, tensor.Shape{1, 2, 4}, backend)
	pred := &Prediction[*cpu.CPUBackend]{Logits: logits, Boxes: boxes}

	results, err := PostProcess(pred, [][2]int{{100, 100}}, 0)
	if err != nil {
		t.Fatalf("PostProcess: %v", err)
	}
	if len(results[0]) != 2 {
		t.Fatalf("Expected 2 detections with zero threshold, got %d", len(results[0]))
	}
}

// TestPostProcess_PerImageSizes scales the same normalized box by each
// image's own size.
func TestPostProcess_PerImageSizes(t *testing.T) {
	backend := cpu.New()

	logits := mustTensor(t, []float32{
		5, 0,
		5, 0,
	}, tensor.Shape{2, 1, 2}, backend)
	boxes := mustTensor(t, []float32{
		0.5, 0.5, 1, 1,
		0.5, 0.5, 1, 1,
	}, tensor.Shape{2, 1, 4}, backend)
	pred := &Prediction[*cpu.CPUBackend]{Logits: logits, Boxes: boxes}

	results, err := PostProcess(pred, [][2]int{{10, 20}, {100, 40}}, 0.5)
	if err != nil {
		t.Fatalf("PostProcess: %v", err)
	}

	if got := results[0][0].Box; got.X1 != 20 || got.Y1 != 10 {
		t.Errorf("Image 0: expected corner (20, 10), got (%v, %v)", got.X1, got.Y1)
	}
	if got := results[1][0].Box; got.X1 != 40 || got.Y1 != 100 {
		t.Errorf("Image 1: expected corner (40, 100), got (%v, %v)", got.X1, got.Y1)
	}
}

func TestPostProcess_Rejects(t *testing.T) {
	backend := cpu.New()

	logits := tensor.Randn[float32](tensor.Shape{2, 4, 3}, backend)
	boxes := tensor.Rand[float32](tensor.Shape{2, 4, 4}, backend)
	pred := &Prediction[*cpu.CPUBackend]{Logits: logits, Boxes: boxes}

	// Wrong number of image sizes for the batch.
	_, err := PostProcess(pred, [][2]int{{100, 100}}, 0)
	if err == nil {
		t.Fatal("Expected error for one size on a batch of two")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}

	// Non-positive image size.
	_, err = PostProcess(pred, [][2]int{{100, 100}, {0, 100}}, 0)
	if err == nil {
		t.Fatal("Expected error for zero-height image size")
	}

	// Boxes without four coordinates.
	badBoxes := tensor.Rand[float32](tensor.Shape{2, 4, 3}, backend)
	_, err = PostProcess(&Prediction[*cpu.CPUBackend]{Logits: logits, Boxes: badBoxes},
		[][2]int{{100, 100}, {100, 100}}, 0)
	if err == nil {
		t.Fatal("Expected error for malformed boxes")
	}
}

// TestPostProcessor_ReusesThreshold runs the same prediction through a
// configured processor and through the bare function and expects identical
// results.
func TestPostProcessor_ReusesThreshold(t *testing.T) {
	backend := cpu.New()

	logits := mustTensor(t, []float32{
		0, 10, 0,
		0, 0, 10,
	}, tensor.Shape{1, 2, 3}, backend)
	boxes := mustTensor(t, []float32{
		0.5, 0.5, 0.2, 0.4,
		0.3, 0.3, 0.1, 0.1,
	}, tensor.Shape{1, 2, 4}, backend)
	pred := &Prediction[*cpu.CPUBackend]{Logits: logits, Boxes: boxes}
	sizes := [][2]int{{100, 200}}

	proc := NewPostProcessor[*cpu.CPUBackend](0.5)
	got, err := proc.Process(pred, sizes)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want, err := PostProcess(pred, sizes, 0.5)
	if err != nil {
		t.Fatalf("PostProcess: %v", err)
	}

	if len(got[0]) != len(want[0]) {
		t.Fatalf("Processor kept %d detections, function kept %d", len(got[0]), len(want[0]))
	}
	for i := range got[0] {
		if got[0][i] != want[0][i] {
			t.Errorf("Detection %d: processor %+v, function %+v", i, got[0][i], want[0][i])
		}
	}
}
