package config

import "sort"

// Presets tweak the default configuration.
var Presets = map[string]func(*Config){
	"default": func(*Config) {},
	"quick": func(c *Config) {
		c.Synth.Halos = 16
		c.Synth.Snapshots = 12
		c.Integrator.Precision = 0.1
	},
	"galform": func(c *Config) {
		c.StellarFeedback.Model = ptr("GALFORM")
		c.StellarFeedback.BetaDisk = ptr(3.2)
		c.StellarFeedback.VSN = ptr(380.0)
	},
	"fire": func(c *Config) {
		c.StellarFeedback.Model = ptr("FIRE")
		c.StellarFeedback.BetaDisk = ptr(3.5)
		c.StellarFeedback.VSN = ptr(50.0)
		c.StellarFeedback.RedshiftPower = ptr(1.25)
	},
	"bursty": func(c *Config) {
		c.Mergers.MajorRatio = 0.1
		c.Mergers.Delay = 0
		c.DiskInstability.Stable = 1.1
		c.Synth.MergerProbability = 0.1
	},
	"large": func(c *Config) {
		c.Synth.Halos = 1024
		c.Synth.Snapshots = 60
		c.Synth.Satellites = 4
	},
}

// GetPreset returns a fresh configuration for name, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
