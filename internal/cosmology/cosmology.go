// Package cosmology converts redshifts to cosmic times in a flat ΛCDM
// universe.
package cosmology

import (
	"fmt"
	"math"

	"github.com/san-kum/galevo/internal/constants"
	"github.com/san-kum/galevo/internal/dynamo"
)

type Parameters struct {
	OmegaM float64 `yaml:"omega_m"`
	OmegaL float64 `yaml:"omega_l"`
	OmegaB float64 `yaml:"omega_b"`
	// H is the Hubble constant in units of 100 km/s/Mpc.
	H float64 `yaml:"h"`
}

func (p Parameters) Validate() error {
	if p.OmegaM <= 0 || p.OmegaL <= 0 || p.H <= 0 {
		return fmt.Errorf("%w: cosmology requires positive omega_m, omega_l and h", dynamo.ErrConfig)
	}
	if math.Abs(p.OmegaM+p.OmegaL-1) > 1e-3 {
		return fmt.Errorf("%w: cosmology must be flat, omega_m + omega_l = %g", dynamo.ErrConfig, p.OmegaM+p.OmegaL)
	}
	if p.OmegaB < 0 || p.OmegaB > p.OmegaM {
		return fmt.Errorf("%w: cosmology.omega_b must be in [0, omega_m], got %g", dynamo.ErrConfig, p.OmegaB)
	}
	return nil
}

type Cosmology struct {
	params Parameters
	// hubble is H0 in 1/Gyr.
	hubble float64
}

func New(p Parameters) *Cosmology {
	return &Cosmology{
		params: p,
		hubble: 100 * p.H * constants.GyrToS / constants.MpcToKm,
	}
}

func (c *Cosmology) Parameters() Parameters { return c.params }

// UniverseAge returns the age of the universe at redshift z [Gyr].
func (c *Cosmology) UniverseAge(z float64) float64 {
	p := c.params
	x := math.Sqrt(p.OmegaL/p.OmegaM) * math.Pow(1+z, -1.5)
	return 2 / (3 * c.hubble * math.Sqrt(p.OmegaL)) * math.Asinh(x)
}

// LookbackTime returns the time elapsed since redshift z [Gyr].
func (c *Cosmology) LookbackTime(z float64) float64 {
	return c.UniverseAge(0) - c.UniverseAge(z)
}

// BaryonFraction is omega_b / omega_m.
func (c *Cosmology) BaryonFraction() float64 {
	return c.params.OmegaB / c.params.OmegaM
}
