package physics

import (
	"math"

	"github.com/san-kum/galevo/internal/constants"
	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/galaxy"
)

// State vector layout of the Basic model.
const (
	iStars = iota
	iColdGas
	iColdHalo
	iHotGas
	iEjected
	iStarsZ
	iColdGasZ
	iColdHaloZ
	iHotGasZ
	iEjectedZ
	iFormed
	iFormedZ
	iStarsJ
	iColdGasJ
	iColdHaloJ
	iHotGasJ
	iEjectedJ

	BasicDim
)

type RecyclingParameters struct {
	// Recycle is the fraction of newly formed stellar mass returned to the
	// gas instantaneously.
	Recycle float64 `yaml:"recycle"`
	Yield   float64 `yaml:"yield"`
}

type GasCoolingParameters struct {
	// PreEnrichZ is the metallicity floor of cold and hot gas.
	PreEnrichZ float64 `yaml:"pre_enrich_z"`
}

// Basic is the 17-component disk and bulge model.
type Basic struct {
	Feedback      Feedback
	StarFormation StarFormation
	Recycling     RecyclingParameters
	GasCooling    GasCoolingParameters
}

func NewBasic(fb Feedback, sf StarFormation, rec RecyclingParameters, gc GasCoolingParameters) *Basic {
	return &Basic{Feedback: fb, StarFormation: sf, Recycling: rec, GasCooling: gc}
}

func (b *Basic) Dim() int { return BasicDim }

func (b *Basic) Derive(_ float64, y, f []float64, p *SolverParams) error {
	zcold := b.GasCooling.PreEnrichZ
	zhot := b.GasCooling.PreEnrichZ
	jgas := 2 * p.VGal * p.RGas / constants.RDiskHalfScale

	if y[iColdGas] > 0 && y[iColdGasZ] > 0 {
		zcold = y[iColdGasZ] / y[iColdGas]
		jgas = y[iColdGasJ] / y[iColdGas]
	}
	if y[iColdHalo] > 0 && y[iColdHaloZ] > 0 {
		zhot = y[iColdHaloZ] / y[iColdHalo]
	}

	sfr, jrate := b.StarFormation.StarFormationRate(SFRInput{
		GasMass:     y[iColdGas],
		StellarMass: y[iStars],
		RGas:        p.RGas,
		RStar:       p.RStar,
		Zgas:        zcold,
		Redshift:    p.Redshift,
		Burst:       p.Burst,
		VGal:        p.VGal,
		JGas:        jgas,
	})
	if math.IsNaN(sfr) || math.IsNaN(jrate) {
		return dynamo.Invalidf("star formation rate is NaN (gas=%g, stars=%g)", y[iColdGas], y[iStars])
	}

	l := b.Feedback.OutflowRate(sfr, p.VSubh, p.VGal, p.Redshift)

	rsub := 1 - b.Recycling.Recycle
	mcool := p.MCoolRate

	f[iStars] = sfr * rsub
	f[iColdGas] = mcool - (rsub+l.Beta1)*sfr
	f[iColdHalo] = -mcool
	f[iHotGas] = (l.Beta1 - l.Beta2) * sfr
	f[iEjected] = l.Beta2 * sfr

	f[iStarsZ] = rsub * zcold * sfr
	f[iColdGasZ] = mcool*zhot + sfr*(b.Recycling.Yield-(rsub+l.Beta1)*zcold)
	f[iColdHaloZ] = -mcool * zhot
	f[iHotGasZ] = (l.Beta1 - l.Beta2) * zcold * sfr
	f[iEjectedZ] = l.Beta2 * zcold * sfr

	f[iFormed] = sfr
	f[iFormedZ] = zcold * sfr

	f[iStarsJ] = rsub * jrate
	f[iColdGasJ] = mcool*p.JColdHalo - (rsub+l.BetaJ1)*jrate
	f[iColdHaloJ] = -mcool * p.JColdHalo
	f[iHotGasJ] = (l.BetaJ1 - l.BetaJ2) * jrate
	f[iEjectedJ] = l.BetaJ2 * jrate
	return nil
}

func (b *Basic) FromGalaxy(s *galaxy.Subhalo, g *galaxy.Galaxy) dynamo.State {
	y := make(dynamo.State, BasicDim)

	y[iStars] = g.DiskStars.Mass
	y[iColdGas] = g.DiskGas.Mass
	y[iColdHalo] = s.ColdHaloGas.Mass
	y[iHotGas] = s.HotHaloGas.Mass
	y[iEjected] = s.EjectedGalaxyGas.Mass

	y[iStarsZ] = g.DiskStars.MassMetals
	y[iColdGasZ] = g.DiskGas.MassMetals
	y[iColdHaloZ] = s.ColdHaloGas.MassMetals
	y[iHotGasZ] = s.HotHaloGas.MassMetals
	y[iEjectedZ] = s.EjectedGalaxyGas.MassMetals

	y[iStarsJ] = g.DiskStars.AngularMomentum()
	y[iColdGasJ] = g.DiskGas.AngularMomentum()
	y[iColdHaloJ] = s.ColdHaloGas.AngularMomentum()
	y[iHotGasJ] = s.HotHaloGas.AngularMomentum()
	y[iEjectedJ] = s.EjectedGalaxyGas.AngularMomentum()
	return y
}

func (b *Basic) ToGalaxy(y dynamo.State, s *galaxy.Subhalo, g *galaxy.Galaxy, deltaT float64) error {
	if err := dynamo.CheckDim(y, BasicDim); err != nil {
		return err
	}
	if y[iStars] < g.DiskStars.Mass {
		return dynamo.Invalidf("galaxy %d decreased its stellar mass after disk star formation (%g -> %g)",
			g.ID, g.DiskStars.Mass, y[iStars])
	}

	g.DiskStars.Mass = y[iStars]
	g.DiskGas.Mass = y[iColdGas]
	s.ColdHaloGas.Mass = y[iColdHalo]
	s.HotHaloGas.Mass = y[iHotGas]
	s.EjectedGalaxyGas.Mass = y[iEjected]

	g.DiskStars.MassMetals = y[iStarsZ]
	g.DiskGas.MassMetals = y[iColdGasZ]
	s.ColdHaloGas.MassMetals = y[iColdHaloZ]
	s.HotHaloGas.MassMetals = y[iHotGasZ]
	s.EjectedGalaxyGas.MassMetals = y[iEjectedZ]

	g.SFRDisk += y[iFormed] / deltaT
	g.SFRZDisk += y[iFormedZ] / deltaT

	// Angular momenta are only redefined when both disk moments stay positive.
	if y[iStarsJ] > 0 && y[iColdGasJ] > 0 {
		setSAM(&g.DiskStars, y[iStarsJ])
		setSAM(&g.DiskGas, y[iColdGasJ])
		setSAM(&s.ColdHaloGas, y[iColdHaloJ])
		setSAM(&s.HotHaloGas, y[iHotGasJ])
		setSAM(&s.EjectedGalaxyGas, y[iEjectedJ])

		if g.Vmax <= 0 {
			return dynamo.Invalidf("galaxy %d has non-positive vmax %g, cannot size its disk", g.ID, g.Vmax)
		}
		g.DiskStars.RScale = g.DiskStars.SAM / g.Vmax * constants.EAGLEJconv
		g.DiskGas.RScale = g.DiskGas.SAM / g.Vmax * constants.EAGLEJconv

		if g.DiskStars.RScale <= constants.Tolerance && g.DiskStars.Mass > 0 {
			return dynamo.Invalidf("galaxy %d with extremely small size, rdisk_stars=%g", g.ID, g.DiskStars.RScale)
		}
		if math.IsNaN(g.DiskGas.SAM) || math.IsNaN(g.DiskGas.RScale) {
			return dynamo.Invalidf("galaxy %d: rgas or sAM are NaN", g.ID)
		}
	}

	return settle("disk", g.ID,
		&g.DiskStars, &g.DiskGas, &s.ColdHaloGas, &s.HotHaloGas, &s.EjectedGalaxyGas)
}

func (b *Basic) FromGalaxyStarburst(s *galaxy.Subhalo, g *galaxy.Galaxy) dynamo.State {
	y := make(dynamo.State, BasicDim)

	y[iStars] = g.BulgeStars.Mass
	y[iColdGas] = g.BulgeGas.Mass
	y[iHotGas] = s.HotHaloGas.Mass
	y[iEjected] = s.EjectedGalaxyGas.Mass

	y[iStarsZ] = g.BulgeStars.MassMetals
	y[iColdGasZ] = g.BulgeGas.MassMetals
	y[iHotGasZ] = s.HotHaloGas.MassMetals
	y[iEjectedZ] = s.EjectedGalaxyGas.MassMetals

	// Bursts receive no cooling gas and do not track angular momentum.
	return y
}

func (b *Basic) ToGalaxyStarburst(y dynamo.State, s *galaxy.Subhalo, g *galaxy.Galaxy, deltaT float64, trigger galaxy.BurstTrigger) error {
	if err := dynamo.CheckDim(y, BasicDim); err != nil {
		return err
	}
	if y[iStars] < g.BulgeStars.Mass {
		return dynamo.Invalidf("galaxy %d decreased its stellar mass after burst of star formation (%g -> %g)",
			g.ID, g.BulgeStars.Mass, y[iStars])
	}

	formed := galaxy.BaryonBase{
		Mass:       y[iStars] - g.BulgeStars.Mass,
		MassMetals: y[iStarsZ] - g.BulgeStars.MassMetals,
	}
	switch trigger {
	case galaxy.MergerBurst:
		g.GalaxyMergersBurstStars.Add(formed)
		g.SFRBulgeMergers += y[iFormed] / deltaT
		g.SFRZBulgeMergers += y[iFormedZ] / deltaT
	case galaxy.InstabilityBurst:
		g.DiskInstabilitiesBurstStars.Add(formed)
		g.SFRBulgeDiskIns += y[iFormed] / deltaT
		g.SFRZBulgeDiskIns += y[iFormedZ] / deltaT
	default:
		return dynamo.Invalidf("galaxy %d: starburst without a trigger", g.ID)
	}

	g.BulgeStars.Mass = y[iStars]
	g.BulgeGas.Mass = y[iColdGas]
	s.HotHaloGas.Mass = y[iHotGas]
	s.EjectedGalaxyGas.Mass = y[iEjected]

	g.BulgeStars.MassMetals = y[iStarsZ]
	g.BulgeGas.MassMetals = y[iColdGasZ]
	s.HotHaloGas.MassMetals = y[iHotGasZ]
	s.EjectedGalaxyGas.MassMetals = y[iEjectedZ]

	return settle("bulge", g.ID, &g.BulgeStars, &g.BulgeGas, &s.HotHaloGas, &s.EjectedGalaxyGas)
}

func setSAM(b *galaxy.Baryon, j float64) {
	if b.Mass > 0 {
		b.SAM = j / b.Mass
	}
}

// settle snaps near-zero reservoirs to the empty state and rejects
// reservoirs holding more metals than mass.
func settle(component string, id int64, reservoirs ...*galaxy.Baryon) error {
	for _, r := range reservoirs {
		if r.MassMetals < constants.Tolerance {
			r.MassMetals = 0
		}
		if r.Mass < constants.Tolerance {
			r.Restore()
		}
	}
	for _, r := range reservoirs {
		if r.MassMetals > r.Mass {
			return dynamo.Invalidf("galaxy %d %s evolution left %g metals in a reservoir of mass %g",
				id, component, r.MassMetals, r.Mass)
		}
	}
	return nil
}

// ResetEvaluations resets the counters of the star formation law, if it
// keeps any.
func (b *Basic) ResetEvaluations() {
	if r, ok := b.StarFormation.(evaluationResetter); ok {
		r.ResetEvaluations()
	}
}
