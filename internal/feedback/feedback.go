// Package feedback computes the mass and angular momentum loading of
// outflows driven by supernovae.
package feedback

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/galevo/internal/constants"
	"github.com/san-kum/galevo/internal/dynamo"
)

type Model int

const (
	FIRE Model = iota
	GALFORM
	LGALAXIES
	LAGOS13
	LAGOS13Trunc
	GALFORMFIRE
)

var modelNames = map[Model]string{
	FIRE:         "FIRE",
	GALFORM:      "GALFORM",
	LGALAXIES:    "LGALAXIES",
	LAGOS13:      "LAGOS13",
	LAGOS13Trunc: "LAGOS13Trunc",
	GALFORMFIRE:  "GALFORMFIRE",
}

func (m Model) String() string {
	if n, ok := modelNames[m]; ok {
		return n
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel maps a configuration value onto a Model.
func ParseModel(name string) (Model, error) {
	for m, n := range modelNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: stellar_feedback.model option value invalid: %s. Supported values are FIRE, GALFORM, LGALAXIES, LAGOS13, LAGOS13Trunc and GALFORMFIRE",
		dynamo.ErrConfig, name)
}

// Options is the stellar_feedback configuration section. Nil pointers are
// options that were not given; Model, BetaDisk and VSN are required.
type Options struct {
	Model         *string  `yaml:"model,omitempty"`
	GalaxyScaling *bool    `yaml:"galaxy_scaling,omitempty"`
	BetaDisk      *float64 `yaml:"beta_disk,omitempty"`
	VSN           *float64 `yaml:"v_sn,omitempty"`
	EpsHalo       *float64 `yaml:"eps_halo,omitempty"`
	EpsDisk       *float64 `yaml:"eps_disk,omitempty"`
	RedshiftPower *float64 `yaml:"redshift_power,omitempty"`
	VkinSN        *float64 `yaml:"vkin_sn,omitempty"`
	ESN           *float64 `yaml:"e_sn,omitempty"`
	EtaCC         *float64 `yaml:"eta_cc,omitempty"`
	EpsilonCC     *float64 `yaml:"epsilon_cc,omitempty"`
	BetaHalo      *float64 `yaml:"beta_halo,omitempty"`
}

type Parameters struct {
	Model         Model
	GalaxyScaling bool

	BetaDisk      float64
	VSN           float64
	EpsHalo       float64
	EpsDisk       float64
	RedshiftPower float64

	VkinSN   float64
	BetaHalo float64
	EtaCC    float64
	// ESN is the supernova energy per unit mass in Msun (km/s)^2.
	ESN float64
}

// NewParameters validates opts and applies defaults.
func NewParameters(opts Options) (Parameters, error) {
	var missing []string
	if opts.Model == nil {
		missing = append(missing, "stellar_feedback.model")
	}
	if opts.BetaDisk == nil {
		missing = append(missing, "stellar_feedback.beta_disk")
	}
	if opts.VSN == nil {
		missing = append(missing, "stellar_feedback.v_sn")
	}
	if len(missing) > 0 {
		return Parameters{}, fmt.Errorf("%w: missing required option(s) %s", dynamo.ErrConfig, strings.Join(missing, ", "))
	}

	model, err := ParseModel(*opts.Model)
	if err != nil {
		return Parameters{}, err
	}

	p := Parameters{
		Model:    model,
		BetaDisk: *opts.BetaDisk,
		VSN:      *opts.VSN,
		EpsHalo:  1,
		EpsDisk:  1,
	}
	if opts.GalaxyScaling != nil {
		p.GalaxyScaling = *opts.GalaxyScaling
	}
	setIf(&p.EpsHalo, opts.EpsHalo)
	setIf(&p.EpsDisk, opts.EpsDisk)
	setIf(&p.RedshiftPower, opts.RedshiftPower)
	setIf(&p.VkinSN, opts.VkinSN)
	setIf(&p.EtaCC, opts.EtaCC)
	setIf(&p.BetaHalo, opts.BetaHalo)

	var epsilonCC, energy float64
	setIf(&epsilonCC, opts.EpsilonCC)
	setIf(&energy, opts.ESN)
	p.ESN = epsilonCC * energy / constants.MSolarG / (constants.KILO * constants.KILO)

	if p.VSN <= 0 {
		return Parameters{}, fmt.Errorf("%w: stellar_feedback.v_sn must be positive, got %g", dynamo.ErrConfig, p.VSN)
	}
	// beta1 > beta2 >= 0 needs a positive halo efficiency
	if p.EpsHalo <= 0 {
		return Parameters{}, fmt.Errorf("%w: stellar_feedback.eps_halo must be positive, got %g", dynamo.ErrConfig, p.EpsHalo)
	}
	if p.EpsDisk < 0 {
		return Parameters{}, fmt.Errorf("%w: stellar_feedback.eps_disk must be non-negative, got %g", dynamo.ErrConfig, p.EpsDisk)
	}
	return p, nil
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Loading holds the outflow loadings in units of the star formation rate.
// Beta1 is reheated into the hot halo, Beta2 of it escapes the halo.
// BetaJ1 and BetaJ2 are the matching angular momentum loadings.
type Loading struct {
	Beta1  float64
	Beta2  float64
	BetaJ1 float64
	BetaJ2 float64
}

// StellarFeedback is safe for concurrent use.
type StellarFeedback struct {
	params Parameters
}

func New(params Parameters) *StellarFeedback {
	return &StellarFeedback{params: params}
}

func (sf *StellarFeedback) Parameters() Parameters { return sf.params }

// OutflowRate returns the loadings for star formation rate sfr in a galaxy
// with disk velocity vgal hosted by a subhalo with velocity vsubh at
// redshift z. Whenever the result is non-zero Beta1 > Beta2 >= 0.
func (sf *StellarFeedback) OutflowRate(sfr, vsubh, vgal, z float64) Loading {
	p := sf.params

	v := vsubh
	if p.GalaxyScaling {
		v = vgal
	}

	if sfr <= 0 || v <= 0 {
		return Loading{}
	}

	vsn := 1.9 * math.Pow(v, 1.1)

	powerIndex := p.BetaDisk
	constSN := 0.0
	switch p.Model {
	case FIRE:
		if v > p.VSN {
			powerIndex = 1
		}
		constSN = math.Pow(1+z, p.RedshiftPower) * math.Pow(p.VSN/v, powerIndex)
	case LAGOS13:
		vhot := p.VSN * math.Pow(1+z, p.RedshiftPower)
		constSN = math.Pow(vhot/v, powerIndex)
	case LAGOS13Trunc:
		vhot := p.VSN * math.Pow(1+z, p.RedshiftPower)
		if v > p.VSN {
			powerIndex = 1
		}
		constSN = math.Pow(vhot/v, powerIndex)
	case GALFORM:
		constSN = math.Pow(p.VSN/v, powerIndex)
	case LGALAXIES:
		constSN = 0.5 + math.Pow(p.VSN/v, powerIndex)
	case GALFORMFIRE:
		constSN = math.Pow(1+z, p.RedshiftPower) * math.Pow(p.VSN/v, powerIndex)
	}

	b1 := p.EpsDisk * constSN
	b2 := 0.0

	epsHalo := p.EpsHalo * constSN * 0.5 * vsn * vsn
	energHalo := 0.5 * v * v

	mreheat := b1 * sfr
	mejected := epsHalo/energHalo*sfr - mreheat

	if mejected > 0 {
		b2 = mejected / sfr
		if b2 >= b1 {
			b2 = b1
			b1 += constants.EPS3
		}
	} else {
		b1 = epsHalo / energHalo
	}

	return Loading{Beta1: b1, Beta2: b2, BetaJ1: b1, BetaJ2: b2}
}
