// Copyright 2025 Spot ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/spot-ml/spot/internal/backend/cpu"
	"github.com/spot-ml/spot/tensor"
)

// Backend represents the CPU backend implementation.
//
// CPU backend provides pure Go implementations of all tensor operations,
// with BLAS-backed matrix multiplication and parallel kernels for the
// heavier operations.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend with parallelism tuned to the machine.
//
// Example:
//
//	import (
//	    "github.com/spot-ml/spot/backend/cpu"
//	    "github.com/spot-ml/spot/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a CPU backend that runs every kernel on a single
// goroutine. Useful for deterministic profiling and debugging.
func NewSequential() *Backend {
	return internalcpu.NewSequential()
}
