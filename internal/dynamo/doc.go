// Package dynamo provides the numeric primitives shared by the galaxy
// evolution engine.
//
// The package defines the vocabulary used between the integrators and the
// physical models:
//
//   - [State]: flat vector of reservoir masses, metals and angular momenta
//   - [Evaluator]: right-hand side of an ODE system, dY/dt = f(t, Y)
//   - [NumericError]: fatal integration failure carrying backend diagnostics
//   - [ParallelFor]: chunked fan-out used for per-halo work
//
// # Example
//
//	eval := func(t float64, y, dydt []float64) error {
//	    dydt[0] = -y[0]
//	    return nil
//	}
//	solver := integrators.NewODESolver(dynamo.State{1}, 0, 0.1, 1e-6, eval)
//	y, err := solver.Evolve()
//
// # Thread Safety
//
// State values are plain slices and carry no synchronisation. Integrators
// built on these types are owned by exactly one evolving system.
package dynamo
