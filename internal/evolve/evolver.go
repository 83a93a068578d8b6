package evolve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/galaxy"
	"github.com/san-kum/galevo/internal/physics"
)

// Cosmology is what the snapshot loop needs from the background model.
type Cosmology interface {
	AgeService
	BaryonFraction() float64
}

type Options struct {
	Workers     int
	SFHistories bool
	// PreEnrichZ is the metallicity of freshly accreted gas.
	PreEnrichZ      float64
	Mergers         MergerOptions
	DiskInstability InstabilityOptions
	Logger          *slog.Logger
}

// SnapshotReport describes one evolved snapshot interval.
type SnapshotReport struct {
	Interval       Interval
	Entry          galaxy.LedgerEntry
	Transfer       TransferStats
	Galaxies       int
	Bursts         int
	GalaxyEvals    uint64
	StarburstEvals uint64
	Elapsed        time.Duration
}

// Observer is notified after every snapshot. An error stops the run.
type Observer interface {
	OnSnapshot(r SnapshotReport) error
}

type ObserverFunc func(r SnapshotReport) error

func (f ObserverFunc) OnSnapshot(r SnapshotReport) error { return f(r) }

type Result struct {
	Snapshots      int
	Galaxies       int
	GalaxyEvals    uint64
	StarburstEvals uint64
	LostBaryons    float64
	Elapsed        time.Duration
}

// Evolver runs the snapshot loop over a forest.
type Evolver struct {
	forest    *galaxy.Forest
	engine    *physics.Engine
	cosmo     Cosmology
	gas       GasPartition
	ledger    *galaxy.TotalBaryon
	opts      Options
	logger    *slog.Logger
	observers []Observer
}

func New(f *galaxy.Forest, engine *physics.Engine, cosmo Cosmology, gas GasPartition, opts Options) *Evolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Evolver{
		forest: f,
		engine: engine,
		cosmo:  cosmo,
		gas:    gas,
		ledger: galaxy.NewTotalBaryon(),
		opts:   opts,
		logger: logger,
	}
}

func (e *Evolver) AddObserver(o Observer) { e.observers = append(e.observers, o) }

func (e *Evolver) Ledger() *galaxy.TotalBaryon { return e.ledger }

// Run evolves every snapshot interval starting in [first, last). Each
// interval ends at the next snapshot, which must carry a redshift. A
// negative last runs to the end of the forest.
// Intervals counts the snapshots Run(ctx, first, last) would evolve.
func (e *Evolver) Intervals(first, last int) int {
	n := 0
	for _, snap := range e.forest.Snapshots() {
		if snap < first || (last >= 0 && snap >= last) {
			continue
		}
		if _, ok := e.forest.Redshift(snap + 1); !ok {
			break
		}
		n++
	}
	return n
}

func (e *Evolver) Run(ctx context.Context, first, last int) (*Result, error) {
	start := time.Now()
	result := &Result{}

	for _, snap := range e.forest.Snapshots() {
		if snap < first || (last >= 0 && snap >= last) {
			continue
		}
		if _, ok := e.forest.Redshift(snap + 1); !ok {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		iv, err := e.interval(snap)
		if err != nil {
			return result, err
		}

		report, err := e.step(ctx, iv)
		if err != nil {
			return result, fmt.Errorf("snapshot %d: %w", snap, err)
		}

		result.Snapshots++
		result.Galaxies = report.Galaxies
		result.GalaxyEvals += report.GalaxyEvals
		result.StarburstEvals += report.StarburstEvals
		result.LostBaryons += report.Transfer.LostBaryons

		for _, o := range e.observers {
			if err := o.OnSnapshot(report); err != nil {
				return result, fmt.Errorf("snapshot %d observer: %w", snap, err)
			}
		}
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

func (e *Evolver) interval(snap int) (Interval, error) {
	z, ok := e.forest.Redshift(snap)
	if !ok {
		return Interval{}, fmt.Errorf("%w: no redshift for snapshot %d", dynamo.ErrConfig, snap)
	}
	zNext, ok := e.forest.Redshift(snap + 1)
	if !ok {
		return Interval{}, fmt.Errorf("%w: no redshift for snapshot %d", dynamo.ErrConfig, snap+1)
	}
	dt := e.cosmo.UniverseAge(zNext) - e.cosmo.UniverseAge(z)
	if dt <= 0 {
		return Interval{}, fmt.Errorf("%w: snapshot %d (z=%g) is not earlier than snapshot %d (z=%g)",
			dynamo.ErrConfig, snap, z, snap+1, zNext)
	}
	return Interval{Snapshot: snap, Z: z, ZNext: zNext, DeltaT: dt}, nil
}

func (e *Evolver) step(ctx context.Context, iv Interval) (SnapshotReport, error) {
	start := time.Now()
	e.engine.ResetEvaluations()
	halos := e.forest.Halos(iv.Snapshot)

	bursts := make([]int, len(halos))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(e.opts.Workers))
	for i, h := range halos {
		g.Go(func() error {
			n, err := e.evolveHalo(h, iv)
			bursts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return SnapshotReport{}, err
	}

	report := SnapshotReport{
		Interval:       iv,
		GalaxyEvals:    e.engine.GalaxyODEEvaluations(),
		StarburstEvals: e.engine.StarburstODEEvaluations(),
	}
	for _, n := range bursts {
		report.Bursts += n
	}

	report.Entry = TrackTotalBaryons(halos, iv, e.ledger, AccountingOptions{
		Gas:         e.gas,
		Ages:        e.cosmo,
		Workers:     e.opts.Workers,
		SFHistories: e.opts.SFHistories,
	})

	stats, err := TransferGalaxiesToNextSnapshot(ctx, e.forest, iv.Snapshot, e.ledger, TransferOptions{
		Workers: e.opts.Workers,
		Logger:  e.logger,
	})
	if err != nil {
		return report, err
	}
	report.Transfer = stats

	for _, h := range e.forest.Halos(iv.Snapshot + 1) {
		report.Galaxies += h.GalaxyCount()
	}
	report.Elapsed = time.Since(start)

	e.logger.Debug("snapshot evolved",
		slog.Int("snapshot", iv.Snapshot),
		slog.Float64("z", iv.Z),
		slog.Int("galaxies", report.Galaxies),
		slog.Uint64("evaluations", report.GalaxyEvals+report.StarburstEvals),
		slog.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// evolveHalo runs one snapshot interval of every galaxy in h and returns
// the number of starbursts.
func (e *Evolver) evolveHalo(h *galaxy.Halo, iv Interval) (int, error) {
	fb := e.cosmo.BaryonFraction()
	for _, s := range h.Subhalos {
		accrete(s, fb, e.opts.PreEnrichZ)
	}
	if err := mergeSubhalos(h, e.opts.Mergers); err != nil {
		return 0, err
	}

	for _, s := range h.Subhalos {
		if s.Type == galaxy.SatelliteSubhalo && s.LastSnapshotIdentified == s.Snapshot {
			continue
		}
		seedMainGalaxy(e.forest, s)
		mergeGalaxies(s, e.opts.Mergers)
	}

	bursts := 0
	for _, s := range h.Subhalos {
		for _, g := range s.Galaxies {
			if err := e.engine.EvolveGalaxy(s, g, iv.Z, iv.DeltaT); err != nil {
				return bursts, fmt.Errorf("galaxy %d in %s: %w", g.ID, s, err)
			}
			diskInstability(g, e.opts.DiskInstability)

			if g.PendingBurst == galaxy.NoBurst {
				continue
			}
			if err := e.engine.EvolveGalaxyStarburst(s, g, iv.Z, iv.DeltaT, g.PendingBurst); err != nil {
				return bursts, fmt.Errorf("starburst of galaxy %d in %s: %w", g.ID, s, err)
			}
			g.PendingBurst = galaxy.NoBurst
			bursts++
		}
	}
	return bursts, nil
}
