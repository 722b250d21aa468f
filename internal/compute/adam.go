package compute

import (
	"fmt"
	"math"
)

// Regularization adds a weight penalty to every gradient before the update.
type Regularization int

// Supported regularizations.
const (
	RegularizationNone Regularization = iota
	RegularizationL1
	RegularizationL2
)

// String returns the regularization name.
func (r Regularization) String() string {
	switch r {
	case RegularizationNone:
		return "none"
	case RegularizationL1:
		return "l1"
	case RegularizationL2:
		return "l2"
	default:
		return fmt.Sprintf("Regularization(%d)", int(r))
	}
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR                  float32    // Learning rate.
	Betas               [2]float32 // Decay rates of the first and second moments.
	Eps                 float32    // Term for numerical stability.
	GradientRescale     float32    // Multiplier applied to every raw gradient.
	Regularization      Regularization
	RegularizationScale float32
}

// DefaultAdamConfig returns LR 0.01, betas (0.9, 0.999), eps 1e-7, no
// gradient rescaling and no regularization.
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{
		LR:              0.01,
		Betas:           [2]float32{0.9, 0.999},
		Eps:             1e-7,
		GradientRescale: 1,
	}
}

// Adam updates variables with bias-corrected adaptive moment estimates.
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * g
//	v_t = beta2 * v_{t-1} + (1-beta2) * g²
//	w  -= lr * (m_t / (1-beta1^t)) / (sqrt(v_t / (1-beta2^t)) + eps)
type Adam struct {
	vars   []*Variable
	config AdamConfig
	t      int
	m, v   map[*Variable][]float32
}

// NewAdam creates an optimizer over vars. Zero fields of config take the
// values of DefaultAdamConfig.
func NewAdam(vars []*Variable, config AdamConfig) *Adam {
	def := DefaultAdamConfig()
	if config.LR == 0 {
		config.LR = def.LR
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = def.Betas[0]
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = def.Betas[1]
	}
	if config.Eps == 0 {
		config.Eps = def.Eps
	}
	if config.GradientRescale == 0 {
		config.GradientRescale = def.GradientRescale
	}

	a := &Adam{
		vars:   vars,
		config: config,
		m:      make(map[*Variable][]float32, len(vars)),
		v:      make(map[*Variable][]float32, len(vars)),
	}
	for _, x := range vars {
		a.m[x] = make([]float32, len(x.data))
		a.v[x] = make([]float32, len(x.data))
	}
	return a
}

// LR returns the learning rate.
func (a *Adam) LR() float32 { return a.config.LR }

// Timestep returns the number of steps taken.
func (a *Adam) Timestep() int { return a.t }

// Step applies one update using the accumulated gradients.
func (a *Adam) Step() {
	a.t++
	beta1, beta2 := a.config.Betas[0], a.config.Betas[1]
	bc1 := float32(1 - math.Pow(float64(beta1), float64(a.t)))
	bc2 := float32(1 - math.Pow(float64(beta2), float64(a.t)))

	for _, x := range a.vars {
		m, v := a.m[x], a.v[x]
		for i, w := range x.data {
			g := a.config.GradientRescale*x.grad[i] + a.penalty(w)
			m[i] = beta1*m[i] + (1-beta1)*g
			v[i] = beta2*v[i] + (1-beta2)*g*g
			mHat := m[i] / bc1
			vHat := v[i] / bc2
			x.data[i] = w - a.config.LR*mHat/(float32(math.Sqrt(float64(vHat)))+a.config.Eps)
		}
	}
}

func (a *Adam) penalty(w float32) float32 {
	switch a.config.Regularization {
	case RegularizationL1:
		switch {
		case w > 0:
			return a.config.RegularizationScale
		case w < 0:
			return -a.config.RegularizationScale
		}
		return 0
	case RegularizationL2:
		return a.config.RegularizationScale * w
	default:
		return 0
	}
}

// ZeroGrad clears the gradients of every variable.
func (a *Adam) ZeroGrad() {
	for _, x := range a.vars {
		clear(x.grad)
	}
}
