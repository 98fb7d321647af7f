package inference

import (
	"fmt"
	"math"
)

// Activation turns one raw model output into a score.
type Activation func(float32) float32

// Sigmoid maps a logit to [0, 1].
func Sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// Identity keeps outputs that are already probabilities.
func Identity(x float32) float32 { return x }

// ActivationByName resolves "sigmoid" or "identity".
func ActivationByName(name string) (Activation, error) {
	switch name {
	case "", "sigmoid":
		return Sigmoid, nil
	case "identity", "none":
		return Identity, nil
	}
	return nil, fmt.Errorf("unknown activation %q", name)
}
