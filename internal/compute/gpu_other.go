//go:build !windows

package compute

import "errors"

var errNoWebGPU = errors.New("webgpu: backend is only built for windows")

// gpuDevice is never opened on this platform.
type gpuDevice struct {
	name string
}

func openGPU() (*gpuDevice, error) {
	return nil, errNoWebGPU
}

func (g *gpuDevice) matmul(_, _ []float32, _, _, _ int) ([]float32, error) {
	return nil, errNoWebGPU
}
