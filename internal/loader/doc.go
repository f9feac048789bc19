// Package loader reads detection model weights from disk.
//
// Two container formats are supported:
//   - SafeTensors: the Hugging Face interchange format, used to import
//     published DETR checkpoints
//   - .spot: this project's native checkpoint format
//
// Published checkpoints name parameters differently from this
// implementation: attention projections are fused into a single in-proj
// tensor and layer norms use weight/bias instead of gamma/beta. A
// WeightMapper translates names and splits fused tensors into the
// per-projection parameters used here.
//
// Example:
//
//	model, err := detection.New(config, nil, backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := loader.LoadDETR("detr-resnet50.safetensors", model)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Summary())
//
// Design principles:
//   - Pure Go: no CGO dependencies
//   - Lazy loading: tensors are read on demand
//   - Explicit accounting: every checkpoint tensor ends up loaded, skipped,
//     or reported
package loader
