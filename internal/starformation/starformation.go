// Package starformation implements the star formation law and the
// partition of cold gas into atomic and molecular hydrogen.
package starformation

import (
	"fmt"
	"sync/atomic"

	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/physics"
)

type Parameters struct {
	// Efficiency is the molecular gas consumption rate [1/Gyr].
	Efficiency float64 `yaml:"efficiency"`
	// BurstTimescale is the gas depletion time during starbursts [Gyr].
	BurstTimescale    float64 `yaml:"burst_timescale"`
	MolecularFraction float64 `yaml:"molecular_fraction"`
}

func (p Parameters) Validate() error {
	switch {
	case p.Efficiency < 0:
		return fmt.Errorf("%w: star_formation.efficiency must be non-negative, got %g", dynamo.ErrConfig, p.Efficiency)
	case p.BurstTimescale <= 0:
		return fmt.Errorf("%w: star_formation.burst_timescale must be positive, got %g", dynamo.ErrConfig, p.BurstTimescale)
	case p.MolecularFraction < 0 || p.MolecularFraction > 1:
		return fmt.Errorf("%w: star_formation.molecular_fraction must be in [0, 1], got %g", dynamo.ErrConfig, p.MolecularFraction)
	}
	return nil
}

// Molecular forms stars out of the molecular gas of the disk. Bursts
// consume all their gas on the burst timescale. Safe for concurrent use.
type Molecular struct {
	params Parameters
	evals  atomic.Uint64
}

func NewMolecular(p Parameters) *Molecular {
	return &Molecular{params: p}
}

func (m *Molecular) StarFormationRate(in physics.SFRInput) (float64, float64) {
	m.evals.Add(1)
	if in.GasMass <= 0 {
		return 0, 0
	}

	var sfr float64
	if in.Burst {
		sfr = in.GasMass / m.params.BurstTimescale
	} else {
		sfr = m.params.Efficiency * m.params.MolecularFraction * in.GasMass
	}
	// Stars form with the specific angular momentum of the gas.
	return sfr, sfr * in.JGas
}

// Partition splits cold gas into atomic and molecular hydrogen.
func (m *Molecular) Partition(gas float64) (hi, h2 float64) {
	if gas <= 0 {
		return 0, 0
	}
	h2 = m.params.MolecularFraction * gas
	return gas - h2, h2
}

// Evaluations returns the number of rate evaluations since the last reset.
func (m *Molecular) Evaluations() uint64 { return m.evals.Load() }

func (m *Molecular) ResetEvaluations() { m.evals.Store(0) }
