package evolve

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/galaxy"
)

// AdjustMainGalaxy sets the type the main galaxy of parent takes once it
// belongs to descendant. Only the main progenitor may hand its main galaxy
// over as the descendant's CENTRAL (or TYPE1 for satellite descendants);
// any other main galaxy becomes an orphan and keeps a copy of its
// subhalo's properties.
func AdjustMainGalaxy(parent, descendant *galaxy.Subhalo) {
	main := parent.MainGalaxy()
	if main == nil {
		return
	}

	descCentral := descendant.Type == galaxy.CentralSubhalo
	switch {
	case descCentral && parent.MainProgenitor:
		main.Type = galaxy.Central
	case !descCentral && parent.MainProgenitor:
		main.Type = galaxy.Type1
	default:
		main.Type = galaxy.Type2
	}

	if main.Type == galaxy.Type2 {
		main.ConcentrationType2 = parent.Concentration
		main.MsubhaloType2 = parent.Mvir
		main.LambdaType2 = parent.Lambda
	}
}

type TransferOptions struct {
	Workers int
	Logger  *slog.Logger
}

// TransferStats summarises one snapshot transfer.
type TransferStats struct {
	Transferred       int
	Skipped           int
	WithoutDescendant int
	LostBaryons       float64
}

func (s *TransferStats) merge(o TransferStats) {
	s.Transferred += o.Transferred
	s.Skipped += o.Skipped
	s.WithoutDescendant += o.WithoutDescendant
	s.LostBaryons += o.LostBaryons
}

// TransferGalaxiesToNextSnapshot hands every galaxy and halo gas reservoir
// of the subhalos at snapshot over to their descendants. Baryons of
// subhalos without descendant are recorded in ledger as lost.
func TransferGalaxiesToNextSnapshot(ctx context.Context, f *galaxy.Forest, snapshot int, ledger *galaxy.TotalBaryon, opts TransferOptions) (TransferStats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	halos := f.Halos(snapshot)

	// Descendants must be empty; every transfer appends to them.
	for _, h := range halos {
		for _, s := range h.Subhalos {
			if !s.HasDescendant() {
				continue
			}
			d := f.Descendant(s)
			if d == nil {
				return TransferStats{}, dynamo.Invalidf("descendant %d of %s is not in the forest", s.DescendantID, s)
			}
			if n := d.GalaxyCount(); n != 0 {
				return TransferStats{}, dynamo.Invalidf("descendant %s of %s already owns %d galaxies", d, s, n)
			}
		}
	}

	groups := partitionByDescendant(f, halos)
	partials := make([]TransferStats, len(groups))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(opts.Workers))
	for i, group := range groups {
		g.Go(func() error {
			for _, h := range group {
				for _, s := range h.Subhalos {
					if err := transferSubhalo(f, s, &partials[i]); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TransferStats{}, err
	}

	var stats TransferStats
	for _, p := range partials {
		stats.merge(p)
	}

	for _, h := range halos {
		for _, s := range h.Subhalos {
			if d := f.Descendant(s); d != nil {
				if err := d.CheckGalaxyComposition(); err != nil {
					return stats, err
				}
			}
		}
	}

	if stats.WithoutDescendant > 0 {
		ledger.SetLost(snapshot, stats.LostBaryons)
		logger.Warn("found subhalos without descendant while transferring galaxies",
			slog.Int("snapshot", snapshot),
			slog.Int("subhalos", stats.WithoutDescendant),
			slog.Float64("lost_baryons", stats.LostBaryons),
		)
	}
	return stats, nil
}

func transferSubhalo(f *galaxy.Forest, s *galaxy.Subhalo, stats *TransferStats) error {
	for _, g := range s.Galaxies {
		g.ResetSFR()
	}

	// Satellites in their last snapshot handed their galaxies over when
	// they merged.
	if s.Type == galaxy.SatelliteSubhalo && s.LastSnapshotIdentified == s.Snapshot {
		stats.Skipped++
		return nil
	}

	d := f.Descendant(s)
	if d == nil {
		stats.WithoutDescendant++
		stats.LostBaryons += s.TotalBaryonMass()
		return nil
	}
	if d.Snapshot != s.Snapshot+1 {
		return dynamo.Invalidf("descendant %s of %s is not in the subsequent snapshot", d, s)
	}

	if err := s.CheckGalaxyComposition(); err != nil {
		return err
	}
	AdjustMainGalaxy(s, d)
	s.TransferGalaxiesTo(d)

	d.ColdHaloGas.Add(s.ColdHaloGas)
	d.HotHaloGas.Add(s.HotHaloGas)
	d.EjectedGalaxyGas.Add(s.EjectedGalaxyGas)
	if s.MainProgenitor {
		d.CoolingTracking = s.CoolingTracking
	}
	stats.Transferred++
	return nil
}
