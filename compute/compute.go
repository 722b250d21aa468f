// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package compute exposes the compute backend that executes layer graphs.
//
// The backend selects a device, assembles an acyclic chain of nodes from
// layer-provided descriptors, compiles it and executes it synchronously.
// Dense nodes run their matrix products on the GPU when a WebGPU adapter
// is available; all other kernels run on the host.
//
// Example:
//
//	for _, d := range compute.Devices() {
//	    fmt.Println(d.Kind(), d.Name(), d.Threads())
//	}
package compute

import (
	"github.com/born-ml/layergraph/internal/compute"
)

// DeviceKind selects a class of hardware.
type DeviceKind = compute.DeviceKind

// Device kinds.
const (
	CPU = compute.CPU
	GPU = compute.GPU
	Any = compute.Any
)

// Device is an opened compute device.
type Device = compute.Device

// ErrDeviceUnavailable is returned when a device kind cannot be opened.
var ErrDeviceUnavailable = compute.ErrDeviceUnavailable

// ParseDeviceKind parses "cpu", "gpu" or "any".
func ParseDeviceKind(s string) (DeviceKind, error) {
	return compute.ParseDeviceKind(s)
}

// SelectDevice opens a device of the given kind.
func SelectDevice(kind DeviceKind) (*Device, error) {
	return compute.SelectDevice(kind)
}

// Devices lists the devices available on this machine.
func Devices() []*Device {
	return compute.Devices()
}

// ActivationFunc names an element-wise nonlinearity.
type ActivationFunc = compute.ActivationFunc

// Nonlinearities.
const (
	ReLU        = compute.ReLU
	LeakyReLU   = compute.LeakyReLU
	ELU         = compute.ELU
	Sigmoid     = compute.Sigmoid
	Tanh        = compute.Tanh
	Linear      = compute.Linear
	SoftPlus    = compute.SoftPlus
	HardSigmoid = compute.HardSigmoid
)

// Builder assembles a backend graph for one configuration session.
type Builder = compute.Builder

// Node is one step of a backend graph.
type Node = compute.Node

// NewBuilder creates an empty backend graph.
func NewBuilder() *Builder {
	return compute.NewBuilder()
}
