package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a physically inconsistent galaxy or subhalo
	// state (decreasing stellar mass, NaN geometry, metals above mass).
	ErrInvalidState = errors.New("dynamo: invalid state")

	// ErrNumeric indicates the integration could not be carried out.
	ErrNumeric = errors.New("dynamo: numeric error")

	// ErrDimensionMismatch indicates a state vector whose length differs
	// from the system dimension.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrConfig indicates an invalid or incomplete configuration.
	ErrConfig = errors.New("dynamo: invalid configuration")
)

// NumericError wraps a fatal integration failure with solver context.
type NumericError struct {
	Time    float64
	Target  float64
	Reason  string
	Wrapped error
}

func (e *NumericError) Error() string {
	msg := fmt.Sprintf("Error while solving ODE system (t=%g, target=%g): %s", e.Time, e.Target, e.Reason)
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

func (e *NumericError) Unwrap() []error {
	if e.Wrapped == nil {
		return []error{ErrNumeric}
	}
	return []error{ErrNumeric, e.Wrapped}
}

// Invalidf builds an ErrInvalidState error with a formatted message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
