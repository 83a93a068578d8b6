package evolve

import (
	"math"

	"github.com/san-kum/galevo/internal/constants"
	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/galaxy"
)

type MergerOptions struct {
	// MajorRatio is the baryon mass ratio above which a merger is major.
	MajorRatio float64 `yaml:"major_ratio"`
	// Delay is the number of snapshots an orphan survives.
	Delay int `yaml:"delay"`
}

type InstabilityOptions struct {
	// Stable is the threshold of vmax / sqrt(G M_disk / r_disk) below
	// which a disk collapses into the bulge. Zero disables the check.
	Stable float64 `yaml:"stable"`
}

// mergeSubhalos moves the galaxies and halo gas of satellites in their
// last identified snapshot into the central subhalo of h. The galaxies
// become orphans.
func mergeSubhalos(h *galaxy.Halo, opts MergerOptions) error {
	var central *galaxy.Subhalo
	for _, s := range h.Subhalos {
		if s.Type != galaxy.SatelliteSubhalo || s.LastSnapshotIdentified != s.Snapshot {
			continue
		}
		if central == nil {
			if central = h.CentralSubhalo(); central == nil {
				return dynamo.Invalidf("halo %d at snapshot %d has merging satellites but no central subhalo", h.ID, h.Snapshot)
			}
		}

		for _, g := range s.Galaxies {
			if g.Type != galaxy.Type2 {
				g.Type = galaxy.Type2
				g.ConcentrationType2 = s.Concentration
				g.MsubhaloType2 = s.Mvir
				g.LambdaType2 = s.Lambda
			}
			g.MergerTimer = opts.Delay
		}
		s.TransferGalaxiesTo(central)

		central.ColdHaloGas.Add(s.ColdHaloGas)
		central.HotHaloGas.Add(s.HotHaloGas)
		central.EjectedGalaxyGas.Add(s.EjectedGalaxyGas)
		s.ColdHaloGas.Restore()
		s.HotHaloGas.Restore()
		s.EjectedGalaxyGas.Restore()
	}
	return nil
}

// mergeGalaxies merges the orphans of s whose timer ran out into the main
// galaxy of s.
func mergeGalaxies(s *galaxy.Subhalo, opts MergerOptions) {
	main := s.MainGalaxy()
	if main == nil {
		return
	}

	kept := s.Galaxies[:0]
	for _, g := range s.Galaxies {
		if g.Type != galaxy.Type2 {
			kept = append(kept, g)
			continue
		}
		if g.MergerTimer > 0 {
			g.MergerTimer--
			kept = append(kept, g)
			continue
		}
		mergeInto(main, g, opts)
	}
	for i := len(kept); i < len(s.Galaxies); i++ {
		s.Galaxies[i] = nil
	}
	s.Galaxies = kept
}

func mergeInto(main, sat *galaxy.Galaxy, opts MergerOptions) {
	big, small := main.BaryonMass(), sat.BaryonMass()
	if small > big {
		big, small = small, big
	}
	major := big > 0 && small/big >= opts.MajorRatio

	if major {
		main.BulgeStars.Add(main.DiskStars)
		main.BulgeGas.Add(main.DiskGas)
		main.DiskStars.Restore()
		main.DiskGas.Restore()
		main.Interaction.MajorMergers++
	} else {
		main.Interaction.MinorMergers++
	}

	main.BulgeStars.Add(sat.DiskStars)
	main.BulgeStars.Add(sat.BulgeStars)
	main.BulgeGas.Add(sat.DiskGas)
	main.BulgeGas.Add(sat.BulgeGas)
	main.SMBH.Add(sat.SMBH)

	main.GalaxyMergersBurstStars.Add(sat.GalaxyMergersBurstStars)
	main.DiskInstabilitiesBurstStars.Add(sat.DiskInstabilitiesBurstStars)
	main.MeanStellarAge += sat.MeanStellarAge
	main.TotalStellarMassEverFormed += sat.TotalStellarMassEverFormed

	if main.BulgeGas.Mass > 0 {
		main.PendingBurst = galaxy.MergerBurst
	}
}

// diskInstability moves an unstable disk of g into its bulge.
func diskInstability(g *galaxy.Galaxy, opts InstabilityOptions) {
	if opts.Stable <= 0 || g.Vmax <= 0 {
		return
	}
	mdisk := g.DiskStars.Mass + g.DiskGas.Mass
	rdisk := math.Max(g.DiskStars.RScale, g.DiskGas.RScale)
	if mdisk <= 0 || rdisk <= 0 {
		return
	}

	eps := g.Vmax / math.Sqrt(constants.G*mdisk/rdisk)
	if eps >= opts.Stable {
		return
	}

	g.BulgeStars.Add(g.DiskStars)
	g.BulgeGas.Add(g.DiskGas)
	g.DiskStars.Restore()
	g.DiskGas.Restore()
	g.Interaction.DiskInstabilities++
	if g.BulgeGas.Mass > 0 && g.PendingBurst == galaxy.NoBurst {
		g.PendingBurst = galaxy.InstabilityBurst
	}
}
