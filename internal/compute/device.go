package compute

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/klauspost/cpuid/v2"

	"github.com/born-ml/layergraph/internal/envconfig"
	"github.com/born-ml/layergraph/internal/parallel"
)

// ErrDeviceUnavailable is returned when the requested device kind cannot be
// opened on this machine.
var ErrDeviceUnavailable = errors.New("compute: device unavailable")

// DeviceKind selects a class of hardware.
type DeviceKind int

// Supported device kinds.
const (
	CPU DeviceKind = iota
	GPU
	Any // GPU when available, otherwise CPU
)

// String returns a human-readable device kind.
func (k DeviceKind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case GPU:
		return "gpu"
	case Any:
		return "any"
	default:
		return fmt.Sprintf("DeviceKind(%d)", int(k))
	}
}

// ParseDeviceKind parses "cpu", "gpu" or "any" (case-insensitive).
func ParseDeviceKind(s string) (DeviceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu":
		return CPU, nil
	case "gpu":
		return GPU, nil
	case "any", "":
		return Any, nil
	default:
		return 0, fmt.Errorf("compute: unknown device kind %q", s)
	}
}

// Device is an opened compute device.
type Device struct {
	kind     DeviceKind
	name     string
	threads  int
	features []string
	par      parallel.Config
	gpu      *gpuDevice
}

// Kind returns the concrete kind (never Any).
func (d *Device) Kind() DeviceKind {
	return d.kind
}

// Name returns the device name reported by the hardware.
func (d *Device) Name() string {
	return d.name
}

// Threads returns the number of host workers used by CPU kernels.
func (d *Device) Threads() int {
	return d.threads
}

// Features returns the hardware feature flags (CPU instruction set extensions).
func (d *Device) Features() []string {
	return d.features
}

// String returns "kind:name".
func (d *Device) String() string {
	return d.kind.String() + ":" + d.name
}

var (
	cpuOnce = sync.OnceValue(openCPU)
	gpuOnce = sync.OnceValues(openGPU)
)

func openCPU() *Device {
	threads := int(envconfig.NumThreads())
	if threads == 0 {
		threads = cpuid.CPU.LogicalCores
	}
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	name := strings.TrimSpace(cpuid.CPU.BrandName)
	if name == "" {
		name = runtime.GOARCH
	}

	d := &Device{
		kind:     CPU,
		name:     name,
		threads:  threads,
		features: cpuid.CPU.FeatureSet(),
		par:      parallel.WithWorkers(threads),
	}
	slog.Debug("compute: cpu device", "name", d.name, "threads", d.threads,
		"avx2", cpuid.CPU.Supports(cpuid.AVX2, cpuid.FMA3))
	return d
}

// SelectDevice opens a device of the given kind.
// GPU fails with ErrDeviceUnavailable when no adapter can be opened; Any
// falls back to CPU in that case.
func SelectDevice(kind DeviceKind) (*Device, error) {
	switch kind {
	case CPU:
		return cpuOnce(), nil
	case GPU:
		g, err := gpuOnce()
		if err != nil {
			return nil, fmt.Errorf("%w: gpu: %v", ErrDeviceUnavailable, err)
		}
		host := cpuOnce()
		return &Device{
			kind:    GPU,
			name:    g.name,
			threads: host.threads,
			par:     host.par,
			gpu:     g,
		}, nil
	case Any:
		d, err := SelectDevice(GPU)
		if err != nil {
			slog.Debug("compute: falling back to cpu", "error", err)
			return SelectDevice(CPU)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %v", ErrDeviceUnavailable, kind)
	}
}

// Devices lists the devices that can be opened on this machine.
func Devices() []*Device {
	devices := []*Device{cpuOnce()}
	if d, err := SelectDevice(GPU); err == nil {
		devices = append(devices, d)
	}
	return devices
}

// matmul computes a[m×k]·b[k×n] on the device.
func (d *Device) matmul(a, b []float32, m, k, n int) ([]float32, error) {
	if d.gpu != nil {
		return d.gpu.matmul(a, b, m, k, n)
	}
	c := make([]float32, m*n)
	gemm(false, false, m, n, k, a, b, 0, c)
	return c, nil
}
