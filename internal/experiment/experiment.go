package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/galevo/internal/config"
	"github.com/san-kum/galevo/internal/cosmology"
	"github.com/san-kum/galevo/internal/evolve"
	"github.com/san-kum/galevo/internal/feedback"
	"github.com/san-kum/galevo/internal/forest"
	"github.com/san-kum/galevo/internal/galaxy"
	"github.com/san-kum/galevo/internal/integrators"
	"github.com/san-kum/galevo/internal/physics"
)

// Experiment is one configured simulation over a forest.
type Experiment struct {
	cfg     *config.Config
	forest  *galaxy.Forest
	engine  *physics.Engine
	evolver *evolve.Evolver
	logger  *slog.Logger
}

// New validates cfg and wires the physical model, the integrator and the
// snapshot loop for f.
func New(cfg *config.Config, f *galaxy.Forest, logger *slog.Logger) (*Experiment, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := NewRegistry()
	params, err := feedback.NewParameters(cfg.StellarFeedback)
	if err != nil {
		return nil, err
	}
	sf, err := reg.GetStarFormation(cfg.StarFormation.Model, cfg.StarFormation.Parameters)
	if err != nil {
		return nil, err
	}
	gc, err := reg.GetCooling(cfg.GasCooling.Model, cfg.GasCooling.Parameters)
	if err != nil {
		return nil, err
	}
	stepper, err := reg.GetStepper(cfg.Integrator.Stepper)
	if err != nil {
		return nil, err
	}

	basic := physics.NewBasic(feedback.New(params), sf, cfg.Recycling,
		physics.GasCoolingParameters{PreEnrichZ: cfg.GasCooling.PreEnrichZ})
	solverOpts := []integrators.Option{integrators.WithTableau(stepper)}
	if cfg.Integrator.MaxSteps > 0 {
		solverOpts = append(solverOpts, integrators.WithMaxSteps(cfg.Integrator.MaxSteps))
	}
	if cfg.Integrator.AbsTolerance > 0 {
		solverOpts = append(solverOpts, integrators.WithAbsTolerance(cfg.Integrator.AbsTolerance))
	}
	engine := physics.NewEngine(basic, gc, cfg.Integrator.Precision,
		physics.WithSolverOptions(solverOpts...),
		physics.WithMinStepFraction(cfg.Integrator.MinStepFraction),
		physics.WithLogger(logger),
	)

	ev := evolve.New(f, engine, cosmology.New(cfg.Cosmology), sf, evolve.Options{
		Workers:         cfg.Simulation.Workers,
		SFHistories:     cfg.Simulation.OutputSFHistories,
		PreEnrichZ:      cfg.GasCooling.PreEnrichZ,
		Mergers:         cfg.Mergers,
		DiskInstability: cfg.DiskInstability,
		Logger:          logger,
	})

	return &Experiment{cfg: cfg, forest: f, engine: engine, evolver: ev, logger: logger}, nil
}

func (e *Experiment) AddObserver(o evolve.Observer) { e.evolver.AddObserver(o) }

func (e *Experiment) Run(ctx context.Context) (*evolve.Result, error) {
	sim := e.cfg.Simulation
	e.logger.Info("starting run",
		slog.Int("subhalos", e.forest.SubhaloCount()),
		slog.Int("first_snapshot", sim.FirstSnapshot),
		slog.Int("last_snapshot", sim.LastSnapshot),
		slog.String("feedback", *e.cfg.StellarFeedback.Model),
		slog.String("stepper", e.cfg.Integrator.Stepper),
	)
	return e.evolver.Run(ctx, sim.FirstSnapshot, sim.LastSnapshot)
}

// Intervals is the number of snapshots Run will evolve.
func (e *Experiment) Intervals() int {
	return e.evolver.Intervals(e.cfg.Simulation.FirstSnapshot, e.cfg.Simulation.LastSnapshot)
}

func (e *Experiment) Ledger() *galaxy.TotalBaryon { return e.evolver.Ledger() }

func (e *Experiment) Forest() *galaxy.Forest { return e.forest }

func (e *Experiment) Config() *config.Config { return e.cfg }

// LoadForest reads the configured merger tree catalogue or, without one,
// generates a synthetic forest.
func LoadForest(cfg *config.Config) (*galaxy.Forest, error) {
	var (
		cat *forest.Catalogue
		err error
	)
	if path := cfg.Simulation.Forest; path != "" {
		cat, err = forest.Load(path)
	} else {
		cat, err = forest.Generate(cfg.Synth)
	}
	if err != nil {
		return nil, fmt.Errorf("load forest: %w", err)
	}
	return forest.Assemble(cat)
}
