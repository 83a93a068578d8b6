package integrators

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/galevo/internal/dynamo"
)

const (
	safety       = 0.9
	minScale     = 0.2
	maxScale     = 5.0
	rejectRatio  = 1.1
	growRatio    = 0.5
	defaultSteps = 100000
)

// Option configures an ODESolver.
type Option func(*ODESolver)

// WithTableau selects the embedded Runge-Kutta pair.
func WithTableau(tb *Tableau) Option {
	return func(s *ODESolver) {
		if tb != nil {
			s.tableau = tb
		}
	}
}

// WithMaxSteps caps the number of internal steps per Evolve call.
func WithMaxSteps(n int) Option {
	return func(s *ODESolver) { s.maxSteps = n }
}

// WithMinStep sets the smallest internal step allowed before progress is
// considered stalled. Zero disables the check.
func WithMinStep(h float64) Option {
	return func(s *ODESolver) { s.minStep = h }
}

// WithAbsTolerance sets the absolute error floor. The default is zero,
// i.e. pure relative control.
func WithAbsTolerance(eps float64) Option {
	return func(s *ODESolver) { s.epsAbs = eps }
}

// WithLogger sets the logger used for soft numeric conditions.
func WithLogger(l *slog.Logger) Option {
	return func(s *ODESolver) {
		if l != nil {
			s.logger = l
		}
	}
}

// ODESolver evolves an ODE system defined by an evaluator, initial values
// y0 at t0 and a macro step delta_t. Each Evolve call advances the system to
// t0 + n*delta_t, sub-stepping adaptively to the requested precision.
//
// An ODESolver is owned by exactly one evolving system and is not safe for
// concurrent use.
type ODESolver struct {
	y       dynamo.State
	t       float64
	t0      float64
	deltaT  float64
	step    int
	eval    dynamo.Evaluator
	tableau *Tableau

	epsRel   float64
	epsAbs   float64
	h        float64
	maxSteps int
	minStep  float64

	evals  uint64
	logger *slog.Logger

	k    [][]float64
	ytmp []float64
	ynew []float64
	yerr []float64
}

func NewODESolver(y0 dynamo.State, t0, deltaT, precision float64, eval dynamo.Evaluator, opts ...Option) *ODESolver {
	s := &ODESolver{
		y:        y0.Clone(),
		t:        t0,
		t0:       t0,
		deltaT:   deltaT,
		eval:     eval,
		tableau:  CashKarp,
		epsRel:   precision,
		h:        deltaT,
		maxSteps: defaultSteps,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	n := len(y0)
	s.k = make([][]float64, s.tableau.Stages())
	for i := range s.k {
		s.k[i] = make([]float64, n)
	}
	s.ytmp = make([]float64, n)
	s.ynew = make([]float64, n)
	s.yerr = make([]float64, n)
	return s
}

// CurrentTime returns the time at which the system currently sits.
func (s *ODESolver) CurrentTime() float64 { return s.t }

// NumEvaluations returns the number of evaluator calls made so far.
func (s *ODESolver) NumEvaluations() uint64 { return s.evals }

// Reset restores the adaptive driver to its initial trial step.
func (s *ODESolver) Reset() {
	s.h = s.deltaT
}

// Evolve advances the system to t0 + (n+1)*delta_t and returns a copy of
// the new state.
//
// Step-size underflow, stalled progress and the step ceiling are soft
// conditions: they are logged and the best available state is returned
// with the clock forced to the target. An evaluator error or a non-finite
// error estimate resets the driver and is returned as a *dynamo.NumericError.
func (s *ODESolver) Evolve() (dynamo.State, error) {
	s.step++
	target := s.t0 + float64(s.step)*s.deltaT

	if err := s.apply(target); err != nil {
		return nil, err
	}
	return s.y.Clone(), nil
}

type softCondition string

const (
	condUnderflow softCondition = "step size decreases below machine precision"
	condNoProg    softCondition = "step size dropped below minimum value"
	condMaxIter   softCondition = "maximum number of steps reached"
)

func (s *ODESolver) apply(target float64) error {
	if target == s.t {
		return nil
	}

	for steps := 0; s.t < target; steps++ {
		if s.maxSteps > 0 && steps >= s.maxSteps {
			s.forceCompletion(target, condMaxIter)
			return nil
		}

		h := s.h
		final := false
		if s.t+h >= target {
			h = target - s.t
			final = true
		}

		for {
			if s.minStep > 0 && h < s.minStep && !final {
				s.forceCompletion(target, condNoProg)
				return nil
			}

			r, err := s.trial(h)
			if err != nil {
				s.Reset()
				return &dynamo.NumericError{Time: s.t, Target: target, Reason: "user function signaled an error", Wrapped: err}
			}
			if math.IsNaN(r) || math.IsInf(r, 0) {
				s.Reset()
				return &dynamo.NumericError{Time: s.t, Target: target, Reason: fmt.Sprintf("unexpected integrator error: non-finite error estimate %v", r)}
			}

			if r > rejectRatio {
				scale := math.Max(minScale, safety*math.Pow(r, -1.0/float64(s.tableau.Order)))
				h *= scale
				final = false
				if h < epsilon*math.Max(math.Abs(s.t), s.deltaT) {
					s.forceCompletion(target, condUnderflow)
					return nil
				}
				continue
			}

			copy(s.y, s.ynew)
			if final {
				s.t = target
			} else {
				s.t += h
			}

			next := h
			if r < growRatio {
				scale := safety * math.Pow(math.Max(r, 1e-30), -1.0/float64(s.tableau.Order+1))
				next = h * math.Min(maxScale, math.Max(1.0, scale))
			}
			// Keep the step learned from the interior, not the clipped final one.
			if !final || next > s.h {
				s.h = next
			}
			break
		}
	}
	return nil
}

const epsilon = 2.220446049250313e-16

// trial computes one embedded step of size h from (s.t, s.y) into s.ynew
// and returns the maximum scaled error ratio.
func (s *ODESolver) trial(h float64) (float64, error) {
	tb := s.tableau
	n := len(s.y)

	for i := 0; i < tb.Stages(); i++ {
		copy(s.ytmp, s.y)
		for j, a := range tb.Coupling[i] {
			if a == 0 {
				continue
			}
			kj := s.k[j]
			for m := 0; m < n; m++ {
				s.ytmp[m] += h * a * kj[m]
			}
		}
		s.evals++
		if err := s.eval(s.t+tb.Nodes[i]*h, s.ytmp, s.k[i]); err != nil {
			return 0, err
		}
	}

	copy(s.ynew, s.y)
	for i := range s.yerr {
		s.yerr[i] = 0
	}
	for i := 0; i < tb.Stages(); i++ {
		c, e := tb.High[i], tb.Err[i]
		ki := s.k[i]
		for m := 0; m < n; m++ {
			s.ynew[m] += h * c * ki[m]
			s.yerr[m] += h * e * ki[m]
		}
	}

	rmax := 0.0
	for m := 0; m < n; m++ {
		if s.yerr[m] == 0 {
			continue
		}
		d := s.epsAbs + s.epsRel*math.Max(math.Abs(s.y[m]), math.Abs(s.ynew[m]))
		if d == 0 {
			rmax = math.Max(rmax, 2*rejectRatio)
			continue
		}
		rmax = math.Max(rmax, math.Abs(s.yerr[m])/d)
	}
	return rmax, nil
}

func (s *ODESolver) forceCompletion(target float64, cond softCondition) {
	s.logger.Warn("ODE: "+string(cond)+". Will force integration to finish regardless of desired accuracy not reached.",
		slog.Float64("t", s.t),
		slog.Float64("target", target),
		slog.String("condition", string(cond)),
	)
	s.t = target
	s.h = s.deltaT
}
