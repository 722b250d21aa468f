package compute

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/layergraph/internal/envconfig"
	"github.com/born-ml/layergraph/internal/tensor"
)

// ErrBinding is returned when execution inputs do not match the compiled graph.
var ErrBinding = errors.New("compute: input binding mismatch")

// CompileOptions controls compilation.
type CompileOptions struct {
	// Debug logs the compiled node table at debug level.
	Debug bool
}

// DefaultCompileOptions enables Debug when LAYERGRAPH_DEBUG is set.
func DefaultCompileOptions() CompileOptions {
	return CompileOptions{Debug: envconfig.Debug()}
}

// ExecuteOptions controls a single execution.
type ExecuteOptions struct {
	// Synchronous blocks until the step is complete. Otherwise the step
	// runs in the background and Wait reports its result.
	Synchronous bool
}

// DefaultExecuteOptions returns synchronous execution.
func DefaultExecuteOptions() ExecuteOptions {
	return ExecuteOptions{Synchronous: true}
}

// NodeInfo describes one compiled node.
type NodeInfo struct {
	ID        int
	Name      string
	Op        string
	Input     tensor.Shape
	Output    tensor.Shape
	Variables int
}

// Executable is an inference graph compiled against a device.
type Executable struct {
	id      uuid.UUID
	dev     *Device
	nodes   []*Node
	kernels []kernel
	output  *Buffer
	pending errgroup.Group
}

// Compile builds the kernels of every node in b for dev.
func Compile(b *Builder, dev *Device, opts CompileOptions) (*Executable, error) {
	if len(b.nodes) < 2 {
		return nil, errors.New("compute: graph needs an input node and at least one op node")
	}

	e := &Executable{
		id:     uuid.New(),
		dev:    dev,
		nodes:  b.nodes,
		output: newBuffer(b.Last().output),
	}
	for _, n := range b.nodes[1:] {
		e.kernels = append(e.kernels, n.op.kernel(dev, n.input, n.output))
	}

	if opts.Debug {
		for _, info := range e.Describe() {
			slog.Debug("compute: compiled node", "executable", e.id, "device", dev,
				"id", info.ID, "name", info.Name, "op", info.Op,
				"input", info.Input, "output", info.Output, "variables", info.Variables)
		}
	}
	return e, nil
}

// ID returns the unique id assigned at compilation.
func (e *Executable) ID() uuid.UUID { return e.id }

// Device returns the device the graph was compiled for.
func (e *Executable) Device() *Device { return e.dev }

// Output returns the device memory holding the result of the last step.
func (e *Executable) Output() *Buffer { return e.output }

// InputName returns the name the input buffer must be bound to.
func (e *Executable) InputName() string { return e.nodes[0].name }

// Describe returns the compiled node table in chain order.
func (e *Executable) Describe() []NodeInfo {
	infos := make([]NodeInfo, 0, len(e.nodes))
	for _, n := range e.nodes {
		info := NodeInfo{ID: n.id, Name: n.name, Op: "input", Input: n.input, Output: n.output}
		if n.op != nil {
			info.Op = n.op.Name()
			info.Variables = len(n.op.variables())
		}
		infos = append(infos, info)
	}
	return infos
}

// Wait blocks until a pending asynchronous step finishes and returns its error.
func (e *Executable) Wait() error {
	return e.pending.Wait()
}

// Execute runs one forward pass over the named input buffer and writes the
// result to Output.
func (e *Executable) Execute(inputs map[string][]byte, batchSize int, opts ExecuteOptions) error {
	x, err := e.bind(inputs, batchSize)
	if err != nil {
		return err
	}
	return e.run(opts, func() error {
		y, err := e.forward(x)
		if err != nil {
			return err
		}
		copy(e.output.data, y)
		return nil
	})
}

func (e *Executable) run(opts ExecuteOptions, step func() error) error {
	if err := e.Wait(); err != nil {
		return err
	}
	if opts.Synchronous {
		return step()
	}
	e.pending.Go(step)
	return nil
}

// bind decodes the input buffer and checks it against the compiled input node.
func (e *Executable) bind(inputs map[string][]byte, batchSize int) ([]float32, error) {
	in := e.nodes[0]
	if want := in.output.Normalize().Batch; batchSize != want {
		return nil, fmt.Errorf("%w: batch size %d, graph compiled for %d", ErrBinding, batchSize, want)
	}
	return decodeBinding(inputs, in.name, in.output)
}

func decodeBinding(inputs map[string][]byte, name string, shape tensor.Shape) ([]float32, error) {
	raw, ok := inputs[name]
	if !ok {
		return nil, fmt.Errorf("%w: no buffer bound to %q", ErrBinding, name)
	}
	if want := shape.NumElements() * tensor.ByteSize; len(raw) != want {
		return nil, fmt.Errorf("%w: %q has %d bytes, shape %v needs %d", ErrBinding, name, len(raw), shape, want)
	}
	return tensor.DecodeFloat32(raw)
}

func (e *Executable) forward(x []float32) ([]float32, error) {
	for i, k := range e.kernels {
		y, err := k.forward(x)
		if err != nil {
			return nil, fmt.Errorf("compute: node %q: %w", e.nodes[i+1].name, err)
		}
		x = y
	}
	return x, nil
}

func (e *Executable) backward(dy []float32) {
	for i := len(e.kernels) - 1; i >= 0; i-- {
		dy = e.kernels[i].backward(dy)
	}
}

func (e *Executable) variables() []*Variable {
	seen := make(map[*Variable]bool)
	var vars []*Variable
	for _, n := range e.nodes[1:] {
		for _, v := range n.op.variables() {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}
