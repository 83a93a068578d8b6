// Package cooling moves hot halo gas onto the cooling reservoir.
package cooling

import (
	"fmt"
	"math"

	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/galaxy"
)

type Parameters struct {
	// Timescale is the e-folding time of the hot gas [Gyr].
	Timescale float64 `yaml:"timescale"`
	// RedshiftPower shortens the timescale as (1+z)^-RedshiftPower.
	RedshiftPower float64 `yaml:"redshift_power"`
}

func (p Parameters) Validate() error {
	if p.Timescale <= 0 {
		return fmt.Errorf("%w: gas_cooling.timescale must be positive, got %g", dynamo.ErrConfig, p.Timescale)
	}
	return nil
}

// Exponential cools a fixed fraction of the hot gas per e-folding time.
// The cooled gas keeps its metallicity and specific angular momentum.
type Exponential struct {
	params Parameters
}

func NewExponential(p Parameters) *Exponential {
	return &Exponential{params: p}
}

// CoolingRate transfers the gas that cools during deltaT from the hot halo
// into the cold halo reservoir of s and returns the mean rate.
func (c *Exponential) CoolingRate(s *galaxy.Subhalo, _ *galaxy.Galaxy, z, deltaT float64) float64 {
	hot := &s.HotHaloGas
	if hot.Mass <= 0 || deltaT <= 0 {
		return 0
	}

	tcool := c.params.Timescale * math.Pow(1+z, -c.params.RedshiftPower)
	frac := -math.Expm1(-deltaT / tcool)

	cooled := galaxy.Baryon{
		Mass:       hot.Mass * frac,
		MassMetals: hot.MassMetals * frac,
		SAM:        hot.SAM,
	}
	hot.Mass -= cooled.Mass
	hot.MassMetals -= cooled.MassMetals
	s.ColdHaloGas.Add(cooled)

	s.CoolingTracking.TCool = tcool
	s.CoolingTracking.DeltaT = deltaT
	s.CoolingTracking.MassCooled += cooled.Mass

	return cooled.Mass / deltaT
}
