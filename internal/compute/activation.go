package compute

import (
	"fmt"
	"math"
)

// ActivationFunc names an element-wise nonlinearity.
type ActivationFunc int

// Supported nonlinearities. Alpha and Beta are interpreted per function:
//
//	LeakyReLU    x if x > 0 else Alpha*x
//	ELU          x if x > 0 else Alpha*(exp(x)-1)
//	Linear       Alpha*x + Beta
//	HardSigmoid  clamp(Alpha*x + Beta, 0, 1)
const (
	ReLU ActivationFunc = iota
	LeakyReLU
	ELU
	Sigmoid
	Tanh
	Linear
	SoftPlus
	HardSigmoid
)

// String returns the function name.
func (f ActivationFunc) String() string {
	switch f {
	case ReLU:
		return "relu"
	case LeakyReLU:
		return "leaky_relu"
	case ELU:
		return "elu"
	case Sigmoid:
		return "sigmoid"
	case Tanh:
		return "tanh"
	case Linear:
		return "linear"
	case SoftPlus:
		return "softplus"
	case HardSigmoid:
		return "hard_sigmoid"
	default:
		return fmt.Sprintf("ActivationFunc(%d)", int(f))
	}
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

func tanh(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

// apply evaluates the function at x.
func (a Activation) apply(x float32) float32 {
	switch a.Func {
	case ReLU:
		return max(x, 0)
	case LeakyReLU:
		if x > 0 {
			return x
		}
		return a.Alpha * x
	case ELU:
		if x > 0 {
			return x
		}
		return a.Alpha * float32(math.Expm1(float64(x)))
	case Sigmoid:
		return sigmoid(x)
	case Tanh:
		return tanh(x)
	case Linear:
		return a.Alpha*x + a.Beta
	case SoftPlus:
		return float32(math.Log1p(math.Exp(float64(x))))
	case HardSigmoid:
		return min(max(a.Alpha*x+a.Beta, 0), 1)
	default:
		panic(fmt.Sprintf("compute: unknown activation %v", a.Func))
	}
}

// derivative returns df/dx given input x and output y.
func (a Activation) derivative(x, y float32) float32 {
	switch a.Func {
	case ReLU:
		if x > 0 {
			return 1
		}
		return 0
	case LeakyReLU:
		if x > 0 {
			return 1
		}
		return a.Alpha
	case ELU:
		if x > 0 {
			return 1
		}
		return y + a.Alpha
	case Sigmoid:
		return y * (1 - y)
	case Tanh:
		return 1 - y*y
	case Linear:
		return a.Alpha
	case SoftPlus:
		return sigmoid(x)
	case HardSigmoid:
		if y <= 0 || y >= 1 {
			return 0
		}
		return a.Alpha
	default:
		panic(fmt.Sprintf("compute: unknown activation %v", a.Func))
	}
}
