package evolve

import (
	"maps"
	"slices"
	"sync"

	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/galaxy"
)

// GasPartition splits cold gas into atomic and molecular hydrogen.
type GasPartition interface {
	Partition(gas float64) (hi, h2 float64)
}

// AgeService converts a redshift into the age of the universe.
type AgeService interface {
	UniverseAge(z float64) float64
}

type AccountingOptions struct {
	Gas     GasPartition
	Ages    AgeService
	Workers int
	// SFHistories appends a star formation history item to every galaxy
	// and accumulates mean stellar ages. Requires Ages.
	SFHistories bool
}

// Interval is the snapshot interval being accounted for.
type Interval struct {
	Snapshot int
	Z        float64
	ZNext    float64
	DeltaT   float64
}

// TrackTotalBaryons sums the baryons of every halo at iv.Snapshot, appends
// the entry to ledger and returns it. Halos are summed in parallel into
// per-chunk partial entries that are merged in halo order, so a ledger
// is reproducible for a given worker count.
func TrackTotalBaryons(halos []*galaxy.Halo, iv Interval, ledger *galaxy.TotalBaryon, opts AccountingOptions) galaxy.LedgerEntry {
	meanAge := 0.0
	if opts.SFHistories && opts.Ages != nil {
		meanAge = 0.5 * (opts.Ages.UniverseAge(iv.Z) + opts.Ages.UniverseAge(iv.ZNext))
	}

	var mu sync.Mutex
	parts := make(map[int]galaxy.LedgerEntry)

	dynamo.ParallelFor(len(halos), 16, opts.Workers, func(start, end int) {
		var part galaxy.LedgerEntry
		for _, h := range halos[start:end] {
			accountHalo(&part, h, iv, meanAge, opts)
		}
		mu.Lock()
		parts[start] = part
		mu.Unlock()
	})

	total := galaxy.LedgerEntry{Snapshot: iv.Snapshot}
	for _, start := range slices.Sorted(maps.Keys(parts)) {
		total.Merge(parts[start])
	}

	ledger.Append(total)
	return total
}

func accountHalo(e *galaxy.LedgerEntry, h *galaxy.Halo, iv Interval, meanAge float64, opts AccountingOptions) {
	e.MDM.Mass += h.Mvir

	for _, s := range h.Subhalos {
		e.MHotHalo.Add(s.HotHaloGas.Base())
		e.MColdHalo.Add(s.ColdHaloGas.Base())
		e.MEjectedHalo.Add(s.EjectedGalaxyGas.Base())

		for _, g := range s.Galaxies {
			e.MajorMergers += g.Interaction.MajorMergers
			e.MinorMergers += g.Interaction.MinorMergers
			e.DiskInstabilities += g.Interaction.DiskInstabilities

			if opts.SFHistories {
				formed := g.TotalSFR() * iv.DeltaT
				g.MeanStellarAge += formed * meanAge
				g.TotalStellarMassEverFormed += formed
				g.History = append(g.History, galaxy.HistoryItem{
					Snapshot:         iv.Snapshot,
					SFRDisk:          g.SFRDisk,
					SFRBulgeMergers:  g.SFRBulgeMergers,
					SFRBulgeDiskIns:  g.SFRBulgeDiskIns,
					SFRZDisk:         g.SFRZDisk,
					SFRZBulgeMergers: g.SFRZBulgeMergers,
					SFRZBulgeDiskIns: g.SFRZBulgeDiskIns,
				})
			}

			cold := g.GasMass()
			if opts.Gas != nil {
				hiDisk, h2Disk := opts.Gas.Partition(g.DiskGas.Mass)
				hiBulge, h2Bulge := opts.Gas.Partition(g.BulgeGas.Mass)
				e.MHI.Mass += hiDisk + hiBulge
				e.MH2.Mass += h2Disk + h2Bulge
			} else {
				e.MHI.Mass += cold
			}

			e.MCold.Add(g.DiskGas.Base())
			e.MCold.Add(g.BulgeGas.Base())
			e.MStars.Add(g.DiskStars.Base())
			e.MStars.Add(g.BulgeStars.Base())
			e.MStarsBurstMergers.Add(g.GalaxyMergersBurstStars)
			e.MStarsBurstDiskIns.Add(g.DiskInstabilitiesBurstStars)

			e.SFRDisk += g.SFRDisk
			e.SFRBulge += g.SFRBulgeMergers + g.SFRBulgeDiskIns

			e.MBH.Mass += g.SMBH.Mass
		}
	}
}
