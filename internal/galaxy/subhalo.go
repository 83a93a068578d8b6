package galaxy

import (
	"fmt"

	"github.com/san-kum/galevo/internal/dynamo"
)

type (
	SubhaloID int64
	HaloID    int64
)

// NoID marks an absent descendant or host.
const NoID = -1

type SubhaloType int

const (
	CentralSubhalo SubhaloType = iota
	SatelliteSubhalo
)

func (t SubhaloType) String() string {
	if t == CentralSubhalo {
		return "CENTRAL"
	}
	return "SATELLITE"
}

// CoolingTracking is the auxiliary cooling state carried from the main
// progenitor to its descendant.
type CoolingTracking struct {
	TCool      float64
	RCool      float64
	DeltaT     float64
	MassCooled float64
}

type Subhalo struct {
	ID       SubhaloID
	HostID   HaloID
	Snapshot int

	DescendantID     SubhaloID
	DescendantHostID HaloID

	Type                   SubhaloType
	MainProgenitor         bool
	LastSnapshotIdentified int

	Mvir          float64
	Vvir          float64
	Vcirc         float64
	Concentration float64
	Lambda        float64
	// AccretedMass is the dark matter mass newly accreted since the
	// previous snapshot.
	AccretedMass float64

	ColdHaloGas      Baryon
	HotHaloGas       Baryon
	EjectedGalaxyGas Baryon
	CoolingTracking  CoolingTracking

	Galaxies []*Galaxy
}

func (s *Subhalo) HasDescendant() bool {
	return s.DescendantID != NoID
}

func (s *Subhalo) GalaxyCount() int {
	return len(s.Galaxies)
}

func (s *Subhalo) firstOfType(t GalaxyType) *Galaxy {
	for _, g := range s.Galaxies {
		if g.Type == t {
			return g
		}
	}
	return nil
}

// CentralGalaxy returns the CENTRAL galaxy or nil.
func (s *Subhalo) CentralGalaxy() *Galaxy { return s.firstOfType(Central) }

// Type1Galaxy returns the TYPE1 galaxy or nil.
func (s *Subhalo) Type1Galaxy() *Galaxy { return s.firstOfType(Type1) }

// MainGalaxy returns the galaxy that would become the descendant's
// central: the CENTRAL of a central subhalo or the TYPE1 of a satellite.
func (s *Subhalo) MainGalaxy() *Galaxy {
	if s.Type == CentralSubhalo {
		return s.CentralGalaxy()
	}
	return s.Type1Galaxy()
}

// TransferGalaxiesTo moves ownership of every galaxy to dst.
func (s *Subhalo) TransferGalaxiesTo(dst *Subhalo) {
	dst.Galaxies = append(dst.Galaxies, s.Galaxies...)
	s.Galaxies = nil
}

// TotalBaryonMass sums the halo gas reservoirs and every galaxy's baryons.
func (s *Subhalo) TotalBaryonMass() float64 {
	total := s.ColdHaloGas.Mass + s.HotHaloGas.Mass + s.EjectedGalaxyGas.Mass
	for _, g := range s.Galaxies {
		total += g.BaryonMass()
	}
	return total
}

// CheckGalaxyComposition validates the galaxy types hosted by s: a central
// subhalo holds at most one CENTRAL and no TYPE1, a satellite holds no
// CENTRAL and at most one TYPE1.
func (s *Subhalo) CheckGalaxyComposition() error {
	var centrals, type1s int
	for _, g := range s.Galaxies {
		switch g.Type {
		case Central:
			centrals++
		case Type1:
			type1s++
		}
	}

	if s.Type == CentralSubhalo {
		if centrals > 1 || type1s > 0 {
			return s.compositionError(centrals, type1s)
		}
		return nil
	}
	if centrals > 0 || type1s > 1 {
		return s.compositionError(centrals, type1s)
	}
	return nil
}

func (s *Subhalo) compositionError(centrals, type1s int) error {
	return dynamo.Invalidf("%s subhalo %d (snapshot %d) has %d CENTRAL and %d TYPE1 galaxies",
		s.Type, s.ID, s.Snapshot, centrals, type1s)
}

func (s *Subhalo) String() string {
	return fmt.Sprintf("<subhalo %d, snapshot %d, %s>", s.ID, s.Snapshot, s.Type)
}
