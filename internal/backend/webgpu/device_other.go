//go:build !windows

package webgpu

import (
	"errors"

	"github.com/spot-ml/spot/internal/tensor"
)

// The wgpu-native bindings only ship for windows today, so on every
// other platform the context cannot be constructed and the backend's
// dispatch layer never takes a GPU path. The stubs below exist so the
// package compiles everywhere with one API.

var errUnavailable = errors.New("webgpu: not supported on this platform")

type gpuContext struct{}

func newGPUContext() (*gpuContext, error) {
	return nil, errUnavailable
}

func gpuAvailable() bool {
	return false
}

func (c *gpuContext) release() {}

func (c *gpuContext) runBinaryOp(_, _ *tensor.RawTensor, _, _ string) (*tensor.RawTensor, error) {
	return nil, errUnavailable
}

func (c *gpuContext) runUnaryOp(_ *tensor.RawTensor, _, _ string) (*tensor.RawTensor, error) {
	return nil, errUnavailable
}

func (c *gpuContext) runMatMul(_, _ *tensor.RawTensor) (*tensor.RawTensor, error) {
	return nil, errUnavailable
}

func (c *gpuContext) runBatchMatMul(_, _ *tensor.RawTensor) (*tensor.RawTensor, error) {
	return nil, errUnavailable
}

func (c *gpuContext) runSoftmax(_ *tensor.RawTensor) (*tensor.RawTensor, error) {
	return nil, errUnavailable
}

func (c *gpuContext) runTranspose(_ *tensor.RawTensor) (*tensor.RawTensor, error) {
	return nil, errUnavailable
}
