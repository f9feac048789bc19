// Copyright 2025 Spot ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/spot-ml/spot/internal/nn"
	"github.com/spot-ml/spot/serialization"
	"github.com/spot-ml/spot/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all learned parameters
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential[*cpu.CPUBackend](
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU[*cpu.CPUBackend](),
//	    nn.NewLinear(128, 10, backend),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] = nn.Module[B]

// Checkpointable is implemented by modules whose parameters can be exported
// to and restored from a state dictionary. Linear and the detection model
// implement it; composite modules that own their parameter naming scheme
// implement it on the concrete type.
type Checkpointable = nn.Checkpointable

// SaveCheckpoint writes a module's parameters to a .spot file.
//
// The header carries the model type and optional architecture metadata; the
// writer fills in format version, library version and creation time.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(784, 10, backend)
//	err := nn.SaveCheckpoint("model.spot", model, serialization.Header{ModelType: "linear"})
func SaveCheckpoint(path string, module Checkpointable, header serialization.Header) error {
	return nn.SaveCheckpoint(path, module, header)
}

// LoadCheckpoint reads a .spot file into a module and returns the file
// header. The module must already have the matching architecture; parameter
// shapes are checked during the load.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(784, 10, backend)
//	header, err := nn.LoadCheckpoint("model.spot", backend, model)
func LoadCheckpoint(path string, backend tensor.Backend, module Checkpointable) (*serialization.Header, error) {
	return nn.LoadCheckpoint(path, backend, module)
}
