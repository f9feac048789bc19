// Package webgpu implements a hybrid compute backend that offloads the
// dense inner loops of transformer inference to the GPU through WebGPU
// compute shaders, while delegating everything else to the CPU backend.
//
// The split is deliberate. Matrix products, batched attention products,
// softmax rows and the element-wise math between them dominate inference
// time and map cleanly onto WGSL compute pipelines. Shape bookkeeping,
// boolean mask logic, reductions and type casts are cheap on the host and
// not worth a round trip over the bus, so those calls go straight to the
// cpu package.
//
// Construction is explicit about availability:
//
//	if !webgpu.IsAvailable() {
//	    // fall back to cpu.New()
//	}
//	be, err := webgpu.New()
//	if err != nil {
//	    ...
//	}
//	defer be.Release()
//
// New fails rather than degrading silently when no adapter can be
// acquired; callers that want a guaranteed backend should probe with
// IsAvailable first and construct a CPU backend themselves.
//
// The wgpu-native bindings (github.com/go-webgpu/webgpu) currently ship
// for windows only, so the GPU paths are compiled on that platform and
// every other platform gets a stub whose New always returns an error.
// The package API is identical everywhere.
package webgpu
