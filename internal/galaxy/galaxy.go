package galaxy

import "fmt"

type GalaxyType int

const (
	Central GalaxyType = iota
	Type1
	Type2
)

func (t GalaxyType) String() string {
	switch t {
	case Central:
		return "CENTRAL"
	case Type1:
		return "TYPE1"
	case Type2:
		return "TYPE2"
	}
	return fmt.Sprintf("GalaxyType(%d)", int(t))
}

// BurstTrigger records what deposited gas in the bulge awaiting a starburst.
type BurstTrigger int

const (
	NoBurst BurstTrigger = iota
	MergerBurst
	InstabilityBurst
)

// Interaction counts the events a galaxy went through in one snapshot.
type Interaction struct {
	MajorMergers      int
	MinorMergers      int
	DiskInstabilities int
}

func (i *Interaction) Restore() {
	*i = Interaction{}
}

// HistoryItem is one snapshot of a galaxy's star formation history.
type HistoryItem struct {
	Snapshot         int
	SFRDisk          float64
	SFRBulgeMergers  float64
	SFRBulgeDiskIns  float64
	SFRZDisk         float64
	SFRZBulgeMergers float64
	SFRZBulgeDiskIns float64
}

type Galaxy struct {
	ID   int64
	Type GalaxyType

	DiskStars  Baryon
	DiskGas    Baryon
	BulgeStars Baryon
	BulgeGas   Baryon
	SMBH       Baryon

	// Vmax is the maximum circular velocity [km/s].
	Vmax float64

	// Star formation rates accumulated over the current snapshot.
	SFRDisk          float64
	SFRZDisk         float64
	SFRBulgeMergers  float64
	SFRZBulgeMergers float64
	SFRBulgeDiskIns  float64
	SFRZBulgeDiskIns float64

	GalaxyMergersBurstStars     BaryonBase
	DiskInstabilitiesBurstStars BaryonBase

	Interaction  Interaction
	PendingBurst BurstTrigger
	// MergerTimer counts the snapshots a TYPE2 galaxy survives before it
	// merges with the main galaxy of its subhalo.
	MergerTimer int

	// Host properties frozen when the galaxy becomes TYPE2.
	ConcentrationType2 float64
	MsubhaloType2      float64
	LambdaType2        float64

	MeanStellarAge             float64
	TotalStellarMassEverFormed float64
	History                    []HistoryItem
}

func (g *Galaxy) StellarMass() float64 {
	return g.DiskStars.Mass + g.BulgeStars.Mass
}

func (g *Galaxy) GasMass() float64 {
	return g.DiskGas.Mass + g.BulgeGas.Mass
}

func (g *Galaxy) BaryonMass() float64 {
	return g.StellarMass() + g.GasMass() + g.SMBH.Mass
}

// TotalSFR is the sum of the disk and burst star formation rates.
func (g *Galaxy) TotalSFR() float64 {
	return g.SFRDisk + g.SFRBulgeMergers + g.SFRBulgeDiskIns
}

// ResetSFR zeroes the per-snapshot star formation accumulators and the
// interaction counters.
func (g *Galaxy) ResetSFR() {
	g.SFRDisk = 0
	g.SFRZDisk = 0
	g.SFRBulgeMergers = 0
	g.SFRZBulgeMergers = 0
	g.SFRBulgeDiskIns = 0
	g.SFRZBulgeDiskIns = 0
	g.Interaction.Restore()
}
