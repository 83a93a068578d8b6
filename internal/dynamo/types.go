package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Evaluator computes dydt = f(t, y). A non-nil error marks an invalid
// physical input and aborts the integration.
type Evaluator func(t float64, y, dydt []float64) error

// CheckDim fails with ErrDimensionMismatch when len(y) != dim.
func CheckDim(y State, dim int) error {
	if len(y) != dim {
		return fmt.Errorf("%w: # initial values != ODE components: %d != %d", ErrDimensionMismatch, len(y), dim)
	}
	return nil
}
