package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/galevo/internal/cooling"
	"github.com/san-kum/galevo/internal/cosmology"
	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/evolve"
	"github.com/san-kum/galevo/internal/feedback"
	"github.com/san-kum/galevo/internal/forest"
	"github.com/san-kum/galevo/internal/integrators"
	"github.com/san-kum/galevo/internal/physics"
	"github.com/san-kum/galevo/internal/starformation"
)

const (
	DefaultStepper         = "rkck"
	DefaultPrecision       = 0.05
	DefaultMaxSteps        = 100000
	DefaultMinStepFraction = 1e-9
	DefaultCooling         = "exponential"
	DefaultStarFormation   = "molecular"
)

type Config struct {
	Simulation      SimulationConfig            `yaml:"simulation"`
	Integrator      IntegratorConfig            `yaml:"integrator"`
	StellarFeedback feedback.Options            `yaml:"stellar_feedback"`
	Recycling       physics.RecyclingParameters `yaml:"recycling"`
	GasCooling      GasCoolingConfig            `yaml:"gas_cooling"`
	StarFormation   StarFormationConfig         `yaml:"star_formation"`
	Cosmology       cosmology.Parameters        `yaml:"cosmology"`
	Mergers         evolve.MergerOptions        `yaml:"mergers"`
	DiskInstability evolve.InstabilityOptions   `yaml:"disk_instability"`
	Synth           forest.SynthOptions         `yaml:"synth"`
}

type SimulationConfig struct {
	// Forest is a merger tree catalogue. Empty means a synthetic forest
	// built from the synth section.
	Forest        string `yaml:"forest,omitempty"`
	FirstSnapshot int    `yaml:"first_snapshot"`
	// LastSnapshot is exclusive; negative runs to the end of the forest.
	LastSnapshot      int  `yaml:"last_snapshot"`
	Workers           int  `yaml:"workers"`
	OutputSFHistories bool `yaml:"output_sf_histories"`
}

type IntegratorConfig struct {
	Stepper         string  `yaml:"stepper"`
	Precision       float64 `yaml:"precision"`
	MaxSteps        int     `yaml:"max_steps"`
	MinStepFraction float64 `yaml:"min_step_fraction"`
	// AbsTolerance is added to the relative error scale of every
	// component. Zero gives pure relative control.
	AbsTolerance float64 `yaml:"abs_tolerance"`
}

type GasCoolingConfig struct {
	Model              string  `yaml:"model"`
	PreEnrichZ         float64 `yaml:"pre_enrich_z"`
	cooling.Parameters `yaml:",inline"`
}

type StarFormationConfig struct {
	Model                    string `yaml:"model"`
	starformation.Parameters `yaml:",inline"`
}

func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{LastSnapshot: -1},
		Integrator: IntegratorConfig{
			Stepper:         DefaultStepper,
			Precision:       DefaultPrecision,
			MaxSteps:        DefaultMaxSteps,
			MinStepFraction: DefaultMinStepFraction,
		},
		StellarFeedback: feedback.Options{
			Model:     ptr("LAGOS13"),
			BetaDisk:  ptr(2.0),
			VSN:       ptr(120.0),
			ESN:       ptr(1e51),
			EpsilonCC: ptr(1e-2),
		},
		Recycling: physics.RecyclingParameters{Recycle: 0.46, Yield: 0.029},
		GasCooling: GasCoolingConfig{
			Model:      DefaultCooling,
			PreEnrichZ: 1e-7,
			Parameters: cooling.Parameters{Timescale: 1, RedshiftPower: 1.5},
		},
		StarFormation: StarFormationConfig{
			Model:      DefaultStarFormation,
			Parameters: starformation.Parameters{Efficiency: 1, BurstTimescale: 1, MolecularFraction: 0.3},
		},
		Cosmology:       cosmology.Parameters{OmegaM: 0.307, OmegaL: 0.693, OmegaB: 0.0482, H: 0.6777},
		Mergers:         evolve.MergerOptions{MajorRatio: 0.3, Delay: 2},
		DiskInstability: evolve.InstabilityOptions{Stable: 0.75},
		Synth:           forest.DefaultSynthOptions(),
	}
}

// Load reads a configuration file on top of the defaults. The
// stellar_feedback section has no defaults: its required options must be
// present in the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	cfg.StellarFeedback = feedback.Options{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Clone returns a deep copy of c, including the pointer options of the
// stellar_feedback section.
func (c *Config) Clone() (*Config, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every section and reports the first invalid option.
func (c *Config) Validate() error {
	if _, err := feedback.NewParameters(c.StellarFeedback); err != nil {
		return err
	}

	checks := []error{
		c.Simulation.validate(),
		c.Integrator.validate(),
		c.validateRecycling(),
		c.GasCooling.Validate(),
		c.StarFormation.Validate(),
		c.Cosmology.Validate(),
		c.validateMergers(),
	}
	if c.Simulation.Forest == "" {
		checks = append(checks, c.Synth.Validate())
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s SimulationConfig) validate() error {
	switch {
	case s.FirstSnapshot < 0:
		return fmt.Errorf("%w: simulation.first_snapshot must be non-negative, got %d", dynamo.ErrConfig, s.FirstSnapshot)
	case s.LastSnapshot >= 0 && s.LastSnapshot <= s.FirstSnapshot:
		return fmt.Errorf("%w: simulation.last_snapshot %d is not after first_snapshot %d", dynamo.ErrConfig, s.LastSnapshot, s.FirstSnapshot)
	case s.Workers < 0:
		return fmt.Errorf("%w: simulation.workers must be non-negative, got %d", dynamo.ErrConfig, s.Workers)
	}
	return nil
}

func (i IntegratorConfig) validate() error {
	if _, ok := integrators.Tableaus[i.Stepper]; !ok {
		return fmt.Errorf("%w: unknown integrator.stepper %q", dynamo.ErrConfig, i.Stepper)
	}
	switch {
	case i.Precision <= 0:
		return fmt.Errorf("%w: integrator.precision must be positive, got %g", dynamo.ErrConfig, i.Precision)
	case i.MaxSteps < 0:
		return fmt.Errorf("%w: integrator.max_steps must be non-negative, got %d", dynamo.ErrConfig, i.MaxSteps)
	case i.MinStepFraction < 0 || i.MinStepFraction >= 1:
		return fmt.Errorf("%w: integrator.min_step_fraction must be in [0, 1), got %g", dynamo.ErrConfig, i.MinStepFraction)
	case i.AbsTolerance < 0:
		return fmt.Errorf("%w: integrator.abs_tolerance must be non-negative, got %g", dynamo.ErrConfig, i.AbsTolerance)
	}
	return nil
}

func (c *Config) validateRecycling() error {
	r := c.Recycling
	if r.Recycle < 0 || r.Recycle >= 1 {
		return fmt.Errorf("%w: recycling.recycle must be in [0, 1), got %g", dynamo.ErrConfig, r.Recycle)
	}
	if r.Yield < 0 {
		return fmt.Errorf("%w: recycling.yield must be non-negative, got %g", dynamo.ErrConfig, r.Yield)
	}
	if z := c.GasCooling.PreEnrichZ; z < 0 || z >= 1 {
		return fmt.Errorf("%w: gas_cooling.pre_enrich_z must be in [0, 1), got %g", dynamo.ErrConfig, z)
	}
	return nil
}

func (c *Config) validateMergers() error {
	if m := c.Mergers; m.MajorRatio <= 0 || m.MajorRatio > 1 || m.Delay < 0 {
		return fmt.Errorf("%w: mergers need major_ratio in (0, 1] and a non-negative delay", dynamo.ErrConfig)
	}
	if c.DiskInstability.Stable < 0 {
		return fmt.Errorf("%w: disk_instability.stable must be non-negative", dynamo.ErrConfig)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
