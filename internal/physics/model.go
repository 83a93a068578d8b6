package physics

import (
	"log/slog"
	"sync/atomic"

	"github.com/san-kum/galevo/internal/constants"
	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/feedback"
	"github.com/san-kum/galevo/internal/galaxy"
	"github.com/san-kum/galevo/internal/integrators"
)

// GasCooling returns the rate at which halo gas cools onto a central galaxy.
type GasCooling interface {
	CoolingRate(s *galaxy.Subhalo, g *galaxy.Galaxy, z, deltaT float64) float64
}

// SFRInput is the state a star formation law is evaluated on.
type SFRInput struct {
	GasMass     float64
	StellarMass float64
	RGas        float64
	RStar       float64
	Zgas        float64
	Redshift    float64
	Burst       bool
	VGal        float64
	// JGas is the specific angular momentum of the cold gas.
	JGas float64
}

// StarFormation returns the star formation rate and the rate at which
// angular momentum is transferred from gas to stars.
type StarFormation interface {
	StarFormationRate(in SFRInput) (sfr, jrate float64)
}

// Feedback returns outflow loadings for a star formation rate.
type Feedback interface {
	OutflowRate(sfr, vsubh, vgal, z float64) feedback.Loading
}

// SolverParams is the immutable bundle handed to the evaluator for one
// integration. Model is the equation set doing the evaluation.
type SolverParams struct {
	Model Equations

	RGas      float64
	RStar     float64
	MCoolRate float64
	JColdHalo float64
	DeltaT    float64
	Redshift  float64
	VSubh     float64
	VGal      float64
	Burst     bool
}

// Equations is a physical model with a fixed state vector layout. The
// marshalling functions and Derive share the index semantics.
type Equations interface {
	Dim() int
	FromGalaxy(s *galaxy.Subhalo, g *galaxy.Galaxy) dynamo.State
	ToGalaxy(y dynamo.State, s *galaxy.Subhalo, g *galaxy.Galaxy, deltaT float64) error
	FromGalaxyStarburst(s *galaxy.Subhalo, g *galaxy.Galaxy) dynamo.State
	ToGalaxyStarburst(y dynamo.State, s *galaxy.Subhalo, g *galaxy.Galaxy, deltaT float64, trigger galaxy.BurstTrigger) error
	Derive(t float64, y, dydt []float64, p *SolverParams) error
}

type EngineOption func(*Engine)

// WithSolverOptions passes options to every ODESolver the engine builds.
func WithSolverOptions(opts ...integrators.Option) EngineOption {
	return func(e *Engine) { e.solverOpts = append(e.solverOpts, opts...) }
}

// WithMinStepFraction sets the minimum internal step as a fraction of the
// macro step.
func WithMinStepFraction(f float64) EngineOption {
	return func(e *Engine) { e.minStepFraction = f }
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine evolves galaxies with an installed equation set. It holds no
// per-galaxy state and is safe for concurrent use as long as the installed
// collaborators are.
type Engine struct {
	eqs       Equations
	cooling   GasCooling
	precision float64

	solverOpts      []integrators.Option
	minStepFraction float64
	logger          *slog.Logger

	galaxyEvals    atomic.Uint64
	starburstEvals atomic.Uint64
}

func NewEngine(eqs Equations, cooling GasCooling, precision float64, opts ...EngineOption) *Engine {
	e := &Engine{
		eqs:       eqs,
		cooling:   cooling,
		precision: precision,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Equations() Equations { return e.eqs }

// solve integrates y0 over one macro step. The solver lives for this call
// only.
func (e *Engine) solve(y0 dynamo.State, p *SolverParams) (dynamo.State, uint64, error) {
	if err := dynamo.CheckDim(y0, e.eqs.Dim()); err != nil {
		return nil, 0, err
	}

	opts := make([]integrators.Option, 0, len(e.solverOpts)+2)
	opts = append(opts, integrators.WithLogger(e.logger))
	opts = append(opts, e.solverOpts...)
	if e.minStepFraction > 0 {
		opts = append(opts, integrators.WithMinStep(e.minStepFraction*p.DeltaT))
	}

	eval := func(t float64, y, dydt []float64) error {
		return p.Model.Derive(t, y, dydt, p)
	}
	solver := integrators.NewODESolver(y0, 0, p.DeltaT, e.precision, eval, opts...)
	y1, err := solver.Evolve()
	return y1, solver.NumEvaluations(), err
}

// EvolveGalaxy runs the quiescent disk evolution of g over deltaT. Only
// CENTRAL galaxies receive cooling gas.
func (e *Engine) EvolveGalaxy(s *galaxy.Subhalo, g *galaxy.Galaxy, z, deltaT float64) error {
	mcool := 0.0
	if g.Type == galaxy.Central && e.cooling != nil {
		mcool = e.cooling.CoolingRate(s, g, z, deltaT)
	}

	rgas := g.DiskGas.RScale
	vgal := 0.0
	if rgas > 0 {
		vgal = g.DiskGas.SAM / rgas * constants.EAGLEJconv
	} else {
		// No gas disk yet: size it from the cooling gas.
		rgas = 0
		if g.Vmax > 0 {
			rgas = s.ColdHaloGas.SAM / g.Vmax * constants.EAGLEJconv
		}
		vgal = g.Vmax
	}

	p := &SolverParams{
		Model:     e.eqs,
		RGas:      rgas,
		RStar:     g.DiskStars.RScale,
		MCoolRate: mcool,
		JColdHalo: s.ColdHaloGas.SAM,
		DeltaT:    deltaT,
		Redshift:  z,
		VSubh:     s.Vvir,
		VGal:      vgal,
	}

	y1, evals, err := e.solve(e.eqs.FromGalaxy(s, g), p)
	e.galaxyEvals.Add(evals)
	if err != nil {
		return err
	}
	return e.eqs.ToGalaxy(y1, s, g, deltaT)
}

// EvolveGalaxyStarburst runs a burst of star formation in the bulge of g.
// Bursts receive no cooling gas; trigger selects the accounting bucket of
// the stars formed.
func (e *Engine) EvolveGalaxyStarburst(s *galaxy.Subhalo, g *galaxy.Galaxy, z, deltaT float64, trigger galaxy.BurstTrigger) error {
	vgal := 0.0
	if g.BulgeGas.RScale > 0 {
		vgal = g.BulgeGas.SAM / g.BulgeGas.RScale
	}

	p := &SolverParams{
		Model:    e.eqs,
		RGas:     g.BulgeGas.RScale,
		RStar:    g.BulgeStars.RScale,
		DeltaT:   deltaT,
		Redshift: z,
		VSubh:    s.Vvir,
		VGal:     vgal,
		Burst:    true,
	}

	y1, evals, err := e.solve(e.eqs.FromGalaxyStarburst(s, g), p)
	e.starburstEvals.Add(evals)
	if err != nil {
		return err
	}
	return e.eqs.ToGalaxyStarburst(y1, s, g, deltaT, trigger)
}

// GalaxyODEEvaluations returns the evaluator calls spent on quiescent
// evolution since the last reset.
func (e *Engine) GalaxyODEEvaluations() uint64 { return e.galaxyEvals.Load() }

// StarburstODEEvaluations returns the evaluator calls spent on bursts
// since the last reset.
func (e *Engine) StarburstODEEvaluations() uint64 { return e.starburstEvals.Load() }

type evaluationResetter interface {
	ResetEvaluations()
}

// ResetEvaluations zeroes both channel counters and any counters kept by
// the installed equations.
func (e *Engine) ResetEvaluations() {
	e.galaxyEvals.Store(0)
	e.starburstEvals.Store(0)
	if r, ok := e.eqs.(evaluationResetter); ok {
		r.ResetEvaluations()
	}
}
