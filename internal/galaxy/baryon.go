package galaxy

// BaryonBase is a mass with its metal content.
type BaryonBase struct {
	Mass       float64 `json:"mass" yaml:"mass"`
	MassMetals float64 `json:"mass_metals" yaml:"mass_metals"`
}

func (b *BaryonBase) Add(o BaryonBase) {
	b.Mass += o.Mass
	b.MassMetals += o.MassMetals
}

// Baryon is a reservoir of gas or stars.
type Baryon struct {
	Mass       float64 `yaml:"mass"`
	MassMetals float64 `yaml:"mass_metals"`
	// SAM is the specific angular momentum.
	SAM    float64 `yaml:"sam"`
	RScale float64 `yaml:"rscale"`
}

// Restore resets the reservoir to the canonical empty state.
func (b *Baryon) Restore() {
	*b = Baryon{}
}

// Metallicity returns MassMetals/Mass, or 0 for an empty reservoir.
func (b Baryon) Metallicity() float64 {
	if b.Mass <= 0 {
		return 0
	}
	return b.MassMetals / b.Mass
}

// AngularMomentum returns Mass*SAM.
func (b Baryon) AngularMomentum() float64 {
	return b.Mass * b.SAM
}

// Add merges o into b. Mass, metals and angular momentum are conserved.
func (b *Baryon) Add(o Baryon) {
	mass := b.Mass + o.Mass
	if mass > 0 {
		b.SAM = (b.AngularMomentum() + o.AngularMomentum()) / mass
	}
	if o.RScale > b.RScale {
		b.RScale = o.RScale
	}
	b.Mass = mass
	b.MassMetals += o.MassMetals
}

func (b Baryon) Base() BaryonBase {
	return BaryonBase{Mass: b.Mass, MassMetals: b.MassMetals}
}
