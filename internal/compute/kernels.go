package compute

import (
	"math"

	"github.com/born-ml/layergraph/internal/parallel"
)

// denseKernel computes y[rows×out] = x[rows×in]·W[in×out] + b.
type denseKernel struct {
	dev     *Device
	rows    int
	in, out int
	w, b    *Variable
	x       []float32
}

func (k *denseKernel) forward(x []float32) ([]float32, error) {
	k.x = x
	y, err := k.dev.matmul(x, k.w.data, k.rows, k.in, k.out)
	if err != nil {
		return nil, err
	}
	addRows(y, k.b.data)
	return y, nil
}

func (k *denseKernel) backward(dy []float32) []float32 {
	// dW += x^T·dy
	gemm(true, false, k.in, k.out, k.rows, k.x, dy, 1, k.w.grad)
	sumRows(k.b.grad, dy)

	// dx = dy·W^T
	dx := make([]float32, k.rows*k.in)
	gemm(false, true, k.rows, k.in, k.out, dy, k.w.data, 0, dx)
	return dx
}

type activationKernel struct {
	dev  *Device
	act  Activation
	x, y []float32
}

func (k *activationKernel) forward(x []float32) ([]float32, error) {
	y := make([]float32, len(x))
	parallel.ForRange(len(x), func(start, end int) {
		for i := start; i < end; i++ {
			y[i] = k.act.apply(x[i])
		}
	}, k.dev.par)
	k.x, k.y = x, y
	return y, nil
}

func (k *activationKernel) backward(dy []float32) []float32 {
	dx := make([]float32, len(dy))
	parallel.ForRange(len(dy), func(start, end int) {
		for i := start; i < end; i++ {
			dx[i] = dy[i] * k.act.derivative(k.x[i], k.y[i])
		}
	}, k.dev.par)
	return dx
}

// softmaxKernel normalizes each contiguous run of width elements.
type softmaxKernel struct {
	dev   *Device
	width int
	log   bool
	y     []float32
}

func (k *softmaxKernel) forward(x []float32) ([]float32, error) {
	y := make([]float32, len(x))
	rows := len(x) / k.width
	parallel.For(rows, func(r int) {
		row := x[r*k.width : (r+1)*k.width]
		out := y[r*k.width : (r+1)*k.width]

		maxVal := row[0]
		for _, v := range row[1:] {
			maxVal = max(maxVal, v)
		}
		var sum float64
		for j, v := range row {
			e := math.Exp(float64(v - maxVal))
			out[j] = float32(e)
			sum += e
		}
		if k.log {
			logSum := float32(math.Log(sum))
			for j, v := range row {
				out[j] = v - maxVal - logSum
			}
			return
		}
		for j := range out {
			out[j] = float32(float64(out[j]) / sum)
		}
	}, k.dev.par)
	k.y = y
	return y, nil
}

func (k *softmaxKernel) backward(dy []float32) []float32 {
	dx := make([]float32, len(dy))
	rows := len(dy) / k.width
	parallel.For(rows, func(r int) {
		lo, hi := r*k.width, (r+1)*k.width
		y, g, out := k.y[lo:hi], dy[lo:hi], dx[lo:hi]
		if k.log {
			// dx = dy - softmax * sum(dy)
			var sum float32
			for _, v := range g {
				sum += v
			}
			for j := range out {
				out[j] = g[j] - float32(math.Exp(float64(y[j])))*sum
			}
			return
		}
		// dx = y * (dy - dot(dy, y))
		var dot float32
		for j := range g {
			dot += g[j] * y[j]
		}
		for j := range out {
			out[j] = y[j] * (g[j] - dot)
		}
	}, k.dev.par)
	return dx
}

type identityKernel struct{}

func (identityKernel) forward(x []float32) ([]float32, error) { return x, nil }

func (identityKernel) backward(dy []float32) []float32 { return dy }
