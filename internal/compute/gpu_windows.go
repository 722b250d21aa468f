//go:build windows

package compute

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/layergraph/internal/tensor"
)

const matmulShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    M: u32,
    K: u32,
    N: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;

    if (row >= params.M || col >= params.N) {
        return;
    }

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.K; k = k + 1u) {
        sum = sum + a[row * params.K + k] * b[k * params.N + col];
    }
    result[row * params.N + col] = sum;
}
`

// gpuDevice wraps a WebGPU adapter, device and queue with a cached matmul
// pipeline.
type gpuDevice struct {
	name     string
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu       sync.Mutex
	pipeline *wgpu.ComputePipeline
}

func openGPU() (g *gpuDevice, err error) {
	// wgpu panics when the native library is missing.
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: request adapter: %w", err)
	}

	info := adapter.GetInfo()

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", err)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	name := info.Device
	if name == "" {
		name = "webgpu"
	}
	return &gpuDevice{
		name:     name,
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
	}, nil
}

func (g *gpuDevice) matmulPipeline() *wgpu.ComputePipeline {
	if g.pipeline == nil {
		shader := g.device.CreateShaderModuleWGSL(matmulShader)
		g.pipeline = g.device.CreateComputePipelineSimple(nil, shader, "main")
	}
	return g.pipeline
}

func (g *gpuDevice) upload(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice over the mapped range
	copy(unsafe.Slice((*byte)(mapped), size), data)
	buffer.Unmap()
	return buffer
}

func (g *gpuDevice) download(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := g.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	g.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(g.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("webgpu: map staging buffer: %w", err)
	}
	mapped := staging.GetMappedRange(0, size)
	out := make([]byte, size)
	//nolint:gosec // unsafe.Slice over the mapped range
	copy(out, unsafe.Slice((*byte)(mapped), size))
	staging.Unmap()
	return out, nil
}

// matmul computes a[m×k]·b[k×n] with a WGSL kernel.
func (g *gpuDevice) matmul(a, b []float32, m, k, n int) ([]float32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pipeline := g.matmulPipeline()
	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc

	bufA := g.upload(tensor.EncodeFloat32(a), storage)
	defer bufA.Release()
	bufB := g.upload(tensor.EncodeFloat32(b), storage)
	defer bufB.Release()

	//nolint:gosec // G115: dimensions are positive
	resultSize := uint64(m * n * tensor.ByteSize)
	bufC := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  resultSize,
	})
	defer bufC.Release()

	params := make([]byte, 16)
	//nolint:gosec // G115: dimensions are positive
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	//nolint:gosec // G115: dimensions are positive
	binary.LittleEndian.PutUint32(params[4:8], uint32(k))
	//nolint:gosec // G115: dimensions are positive
	binary.LittleEndian.PutUint32(params[8:12], uint32(n))
	bufParams := g.upload(params, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	defer bufParams.Release()

	//nolint:gosec // G115: sizes are positive
	bindGroup := g.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufA, 0, uint64(len(a)*tensor.ByteSize)),
		wgpu.BufferBindingEntry(1, bufB, 0, uint64(len(b)*tensor.ByteSize)),
		wgpu.BufferBindingEntry(2, bufC, 0, resultSize),
		wgpu.BufferBindingEntry(3, bufParams, 0, 16),
	})
	defer bindGroup.Release()

	encoder := g.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(uint32(math.Ceil(float64(n)/16)), uint32(math.Ceil(float64(m)/16)), 1)
	pass.End()
	g.queue.Submit(encoder.Finish(nil))

	raw, err := g.download(bufC, resultSize)
	if err != nil {
		return nil, err
	}
	return tensor.DecodeFloat32(raw)
}
