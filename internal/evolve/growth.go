package evolve

import (
	"math"

	"github.com/san-kum/galevo/internal/constants"
	"github.com/san-kum/galevo/internal/galaxy"
)

// accrete adds the baryons falling in with newly accreted dark matter to
// the hot halo of s. The gas carries the specific angular momentum of a
// halo with spin s.Lambda.
func accrete(s *galaxy.Subhalo, baryonFraction, preEnrichZ float64) {
	if s.AccretedMass <= 0 || baryonFraction <= 0 {
		return
	}
	mass := s.AccretedMass * baryonFraction
	s.HotHaloGas.Add(galaxy.Baryon{
		Mass:       mass,
		MassMetals: mass * preEnrichZ,
		SAM:        haloSAM(s),
	})
}

// haloSAM is sqrt(2) lambda Vvir Rvir with Rvir = G Mvir / Vvir^2.
func haloSAM(s *galaxy.Subhalo) float64 {
	if s.Vvir <= 0 || s.Mvir <= 0 {
		return 0
	}
	rvir := constants.G * s.Mvir / (s.Vvir * s.Vvir)
	return math.Sqrt2 * s.Lambda * s.Vvir * rvir
}

func hostVelocity(s *galaxy.Subhalo) float64 {
	if s.Vcirc > 0 {
		return s.Vcirc
	}
	return s.Vvir
}

// seedMainGalaxy gives s a main galaxy when it has none and keeps the
// velocity of the main galaxy in step with the host.
func seedMainGalaxy(f *galaxy.Forest, s *galaxy.Subhalo) *galaxy.Galaxy {
	main := s.MainGalaxy()
	if main == nil {
		t := galaxy.Central
		if s.Type == galaxy.SatelliteSubhalo {
			t = galaxy.Type1
		}
		main = f.NewGalaxy(t)
		s.Galaxies = append(s.Galaxies, main)
	}
	main.Vmax = hostVelocity(s)
	return main
}
