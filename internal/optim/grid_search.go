// Package optim calibrates model parameters by evolving the same forest
// over a grid of configurations and scoring every run.
package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/galevo/internal/config"
	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/evolve"
	"github.com/san-kum/galevo/internal/experiment"
	"github.com/san-kum/galevo/internal/galaxy"
)

var ErrNoViable = errors.New("optim: no grid point completed")

// Setter applies one swept value to a configuration.
type Setter func(cfg *config.Config, v float64)

// Setters are the parameters a grid can sweep, keyed by their
// configuration name.
var Setters = map[string]Setter{
	"beta_disk":      func(c *config.Config, v float64) { c.StellarFeedback.BetaDisk = &v },
	"v_sn":           func(c *config.Config, v float64) { c.StellarFeedback.VSN = &v },
	"beta_halo":      func(c *config.Config, v float64) { c.StellarFeedback.BetaHalo = &v },
	"eps_disk":       func(c *config.Config, v float64) { c.StellarFeedback.EpsDisk = &v },
	"eps_halo":       func(c *config.Config, v float64) { c.StellarFeedback.EpsHalo = &v },
	"redshift_power": func(c *config.Config, v float64) { c.StellarFeedback.RedshiftPower = &v },
	"epsilon_cc":     func(c *config.Config, v float64) { c.StellarFeedback.EpsilonCC = &v },

	"sf_efficiency":     func(c *config.Config, v float64) { c.StarFormation.Efficiency = v },
	"burst_timescale":   func(c *config.Config, v float64) { c.StarFormation.BurstTimescale = v },
	"cooling_timescale": func(c *config.Config, v float64) { c.GasCooling.Timescale = v },
	"recycle":           func(c *config.Config, v float64) { c.Recycling.Recycle = v },
	"yield":             func(c *config.Config, v float64) { c.Recycling.Yield = v },
	"major_ratio":       func(c *config.Config, v float64) { c.Mergers.MajorRatio = v },
	"stable":            func(c *config.Config, v float64) { c.DiskInstability.Stable = v },
}

func ListParameters() []string {
	names := make([]string, 0, len(Setters))
	for name := range Setters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Objective scores a finished run; lower is better.
type Objective func(ledger *galaxy.TotalBaryon, res *evolve.Result) float64

// TargetStellarMass scores the distance in dex between the final total
// stellar mass and target.
func TargetStellarMass(target float64) Objective {
	return func(ledger *galaxy.TotalBaryon, _ *evolve.Result) float64 {
		entries := ledger.Entries()
		if len(entries) == 0 || target <= 0 {
			return math.Inf(1)
		}
		m := entries[len(entries)-1].MStars.Mass
		if m <= 0 {
			return math.Inf(1)
		}
		return math.Abs(math.Log10(m) - math.Log10(target))
	}
}

// Point is one evaluated grid configuration. Runs that fail carry Err
// and an infinite score.
type Point struct {
	Params map[string]float64
	Score  float64
	Result *evolve.Result
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	jobs       int
	logger     *slog.Logger
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("%w: grid needs one value range per parameter", dynamo.ErrConfig)
	}
	for i, name := range params {
		if _, ok := Setters[name]; !ok {
			return nil, fmt.Errorf("%w: unknown parameter %q (available: %v)", dynamo.ErrConfig, name, ListParameters())
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("%w: no values for %s", dynamo.ErrConfig, name)
		}
	}
	return &GridSearch{
		paramNames: params,
		ranges:     ranges,
		jobs:       runtime.GOMAXPROCS(0),
		logger:     slog.Default(),
	}, nil
}

// WithJobs bounds the number of runs evaluated at once.
func (g *GridSearch) WithJobs(n int) *GridSearch {
	if n > 0 {
		g.jobs = n
	}
	return g
}

func (g *GridSearch) WithLogger(l *slog.Logger) *GridSearch {
	if l != nil {
		g.logger = l
	}
	return g
}

// Points enumerates the grid, last parameter varying fastest.
func (g *GridSearch) Points() []map[string]float64 {
	var out []map[string]float64
	g.enumerate(0, map[string]float64{}, &out)
	return out
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}
	name := g.paramNames[depth]
	for _, v := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, cv := range current {
			next[k] = cv
		}
		next[name] = v
		g.enumerate(depth+1, next, out)
	}
}

// Search evolves a fresh forest for every grid point on top of base and
// returns the best scoring point along with all of them in grid order.
// Failing points do not stop the search; cancelling ctx does.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, objective Objective) (Point, []Point, error) {
	points := g.Points()
	all := make([]Point, len(points))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.jobs)
	for i, params := range points {
		eg.Go(func() error {
			all[i] = g.evaluate(ctx, base, params, objective)
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return Point{}, all, err
	}

	best := -1
	for i, p := range all {
		if p.Err != nil || math.IsNaN(p.Score) || math.IsInf(p.Score, 1) {
			continue
		}
		if best < 0 || p.Score < all[best].Score {
			best = i
		}
	}
	if best < 0 {
		return Point{}, all, ErrNoViable
	}
	return all[best], all, nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, params map[string]float64, objective Objective) Point {
	p := Point{Params: params, Score: math.Inf(1)}
	fail := func(err error) Point {
		p.Err = err
		g.logger.Warn("grid point failed", slog.Any("params", params), slog.Any("error", err))
		return p
	}

	cfg, err := base.Clone()
	if err != nil {
		return fail(err)
	}
	for name, v := range params {
		Setters[name](cfg, v)
	}
	if err := cfg.Validate(); err != nil {
		return fail(err)
	}
	f, err := experiment.LoadForest(cfg)
	if err != nil {
		return fail(err)
	}
	exp, err := experiment.New(cfg, f, g.logger)
	if err != nil {
		return fail(err)
	}
	res, err := exp.Run(ctx)
	if err != nil {
		return fail(err)
	}

	p.Result = res
	p.Score = objective(exp.Ledger(), res)
	g.logger.Debug("grid point", slog.Any("params", params), slog.Float64("score", p.Score))
	return p
}
