package compute

// lstmStep caches one time step of one layer for backpropagation through time.
// Every slice is batch×width, row-major.
type lstmStep struct {
	x            []float32 // batch×inputs of this layer
	hPrev, cPrev []float32
	gates        [NumGates][]float32 // activated i, f, g, o
	c, tanhC, h  []float32
}

// lstmKernel runs a stacked LSTM over the secondary axis.
type lstmKernel struct {
	steps, batch   int
	inputs, hidden int
	layers         int
	returnSeq      bool
	wx, wh, bias   []*Variable

	cache [][]lstmStep // [layer][step]
}

func (k *lstmKernel) layerInputs(l int) int {
	if l == 0 {
		return k.inputs
	}
	return k.hidden
}

// sequence splits x (inputs, steps, batch) into one batch×inputs matrix per step.
func (k *lstmKernel) sequence(x []float32) [][]float32 {
	seq := make([][]float32, k.steps)
	for t := range seq {
		m := make([]float32, k.batch*k.inputs)
		for b := 0; b < k.batch; b++ {
			src := x[(b*k.steps+t)*k.inputs:]
			copy(m[b*k.inputs:(b+1)*k.inputs], src[:k.inputs])
		}
		seq[t] = m
	}
	return seq
}

func (k *lstmKernel) forward(x []float32) ([]float32, error) {
	seq := k.sequence(x)
	H, B := k.hidden, k.batch
	k.cache = make([][]lstmStep, k.layers)

	for l := 0; l < k.layers; l++ {
		in := k.layerInputs(l)
		h := make([]float32, B*H)
		c := make([]float32, B*H)
		steps := make([]lstmStep, k.steps)
		next := make([][]float32, k.steps)

		for t, xt := range seq {
			st := lstmStep{x: xt, hPrev: h, cPrev: c}
			for g := 0; g < NumGates; g++ {
				i := l*NumGates + g
				z := make([]float32, B*H)
				gemm(false, false, B, H, in, xt, k.wx[i].data, 0, z)
				gemm(false, false, B, H, H, h, k.wh[i].data, 1, z)
				addRows(z, k.bias[i].data)
				for j, v := range z {
					if g == GateCell {
						z[j] = tanh(v)
					} else {
						z[j] = sigmoid(v)
					}
				}
				st.gates[g] = z
			}

			st.c = make([]float32, B*H)
			st.tanhC = make([]float32, B*H)
			st.h = make([]float32, B*H)
			ig, fg, cg, og := st.gates[GateInput], st.gates[GateForget], st.gates[GateCell], st.gates[GateOutput]
			for j := range st.c {
				st.c[j] = fg[j]*c[j] + ig[j]*cg[j]
				st.tanhC[j] = tanh(st.c[j])
				st.h[j] = og[j] * st.tanhC[j]
			}

			h, c = st.h, st.c
			steps[t] = st
			next[t] = st.h
		}
		k.cache[l] = steps
		seq = next
	}

	return k.output(seq), nil
}

// output lays the top layer's hidden states out as (hidden, steps, batch),
// or (hidden, 1, batch) when only the final state is returned.
func (k *lstmKernel) output(top [][]float32) []float32 {
	H, B := k.hidden, k.batch
	if !k.returnSeq {
		y := make([]float32, B*H)
		copy(y, top[k.steps-1])
		return y
	}
	y := make([]float32, B*k.steps*H)
	for t, ht := range top {
		for b := 0; b < B; b++ {
			copy(y[(b*k.steps+t)*H:(b*k.steps+t+1)*H], ht[b*H:(b+1)*H])
		}
	}
	return y
}

func (k *lstmKernel) backward(dy []float32) []float32 {
	H, B := k.hidden, k.batch

	// Gradient flowing into each step's hidden output from above.
	dhSeq := make([][]float32, k.steps)
	for t := range dhSeq {
		dhSeq[t] = make([]float32, B*H)
	}
	if k.returnSeq {
		for t := range dhSeq {
			for b := 0; b < B; b++ {
				copy(dhSeq[t][b*H:(b+1)*H], dy[(b*k.steps+t)*H:])
			}
		}
	} else {
		copy(dhSeq[k.steps-1], dy)
	}

	for l := k.layers - 1; l >= 0; l-- {
		in := k.layerInputs(l)
		dxSeq := make([][]float32, k.steps)
		dhNext := make([]float32, B*H)
		dcNext := make([]float32, B*H)

		for t := k.steps - 1; t >= 0; t-- {
			st := &k.cache[l][t]
			ig, fg, cg, og := st.gates[GateInput], st.gates[GateForget], st.gates[GateCell], st.gates[GateOutput]

			var dz [NumGates][]float32
			for g := range dz {
				dz[g] = make([]float32, B*H)
			}
			dc := make([]float32, B*H)
			for j := range dc {
				dh := dhSeq[t][j] + dhNext[j]
				dz[GateOutput][j] = dh * st.tanhC[j] * og[j] * (1 - og[j])
				dc[j] = dh*og[j]*(1-st.tanhC[j]*st.tanhC[j]) + dcNext[j]
				dz[GateForget][j] = dc[j] * st.cPrev[j] * fg[j] * (1 - fg[j])
				dz[GateInput][j] = dc[j] * cg[j] * ig[j] * (1 - ig[j])
				dz[GateCell][j] = dc[j] * ig[j] * (1 - cg[j]*cg[j])
				dcNext[j] = dc[j] * fg[j]
			}

			dx := make([]float32, B*in)
			dhPrev := make([]float32, B*H)
			for g := 0; g < NumGates; g++ {
				i := l*NumGates + g
				gemm(true, false, in, H, B, st.x, dz[g], 1, k.wx[i].grad)
				gemm(true, false, H, H, B, st.hPrev, dz[g], 1, k.wh[i].grad)
				sumRows(k.bias[i].grad, dz[g])
				gemm(false, true, B, in, H, dz[g], k.wx[i].data, 1, dx)
				gemm(false, true, B, H, H, dz[g], k.wh[i].data, 1, dhPrev)
			}
			dxSeq[t] = dx
			dhNext = dhPrev
		}
		dhSeq = dxSeq
	}

	// Scatter the bottom layer's input gradient back to (inputs, steps, batch).
	dx := make([]float32, B*k.steps*k.inputs)
	for t, g := range dhSeq {
		for b := 0; b < B; b++ {
			copy(dx[(b*k.steps+t)*k.inputs:(b*k.steps+t+1)*k.inputs], g[b*k.inputs:(b+1)*k.inputs])
		}
	}
	return dx
}
