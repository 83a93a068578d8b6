package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/galevo/internal/evolve"
)

// Collector exports the snapshot reports of a run as Prometheus metrics.
type Collector struct {
	evaluations       *prometheus.CounterVec
	snapshots         prometheus.Counter
	bursts            prometheus.Counter
	withoutDescendant prometheus.Counter
	lostBaryons       prometheus.Counter
	galaxies          prometheus.Gauge
	redshift          prometheus.Gauge
	mass              *prometheus.GaugeVec
	sfr               *prometheus.GaugeVec
	duration          prometheus.Histogram
}

// NewCollector registers the run metrics with reg. A nil reg uses the
// default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "galevo_ode_evaluations_total",
			Help: "Evaluator calls spent by the ODE solver",
		}, []string{"channel"}),
		snapshots: f.NewCounter(prometheus.CounterOpts{
			Name: "galevo_snapshots_total",
			Help: "Snapshot intervals evolved",
		}),
		bursts: f.NewCounter(prometheus.CounterOpts{
			Name: "galevo_starbursts_total",
			Help: "Starbursts evolved",
		}),
		withoutDescendant: f.NewCounter(prometheus.CounterOpts{
			Name: "galevo_subhalos_without_descendant_total",
			Help: "Subhalos whose baryons were lost during transfer",
		}),
		lostBaryons: f.NewCounter(prometheus.CounterOpts{
			Name: "galevo_lost_baryons_msun_total",
			Help: "Baryon mass lost with subhalos without descendant",
		}),
		galaxies: f.NewGauge(prometheus.GaugeOpts{
			Name: "galevo_galaxies",
			Help: "Galaxies alive after the last transfer",
		}),
		redshift: f.NewGauge(prometheus.GaugeOpts{
			Name: "galevo_redshift",
			Help: "Redshift at the end of the last evolved interval",
		}),
		mass: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galevo_ledger_mass_msun",
			Help: "Total baryon mass per reservoir at the last evolved snapshot",
		}, []string{"reservoir"}),
		sfr: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galevo_ledger_sfr_msun_per_gyr",
			Help: "Total star formation rate at the last evolved snapshot",
		}, []string{"component"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "galevo_snapshot_duration_seconds",
			Help:    "Wall time spent per snapshot interval",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

// OnSnapshot implements evolve.Observer.
func (c *Collector) OnSnapshot(r evolve.SnapshotReport) error {
	c.evaluations.WithLabelValues("galaxy").Add(float64(r.GalaxyEvals))
	c.evaluations.WithLabelValues("starburst").Add(float64(r.StarburstEvals))
	c.snapshots.Inc()
	c.bursts.Add(float64(r.Bursts))
	c.withoutDescendant.Add(float64(r.Transfer.WithoutDescendant))
	c.lostBaryons.Add(r.Transfer.LostBaryons)
	c.galaxies.Set(float64(r.Galaxies))
	c.redshift.Set(r.Interval.ZNext)
	c.duration.Observe(r.Elapsed.Seconds())

	e := r.Entry
	for reservoir, m := range map[string]float64{
		"stars":     e.MStars.Mass,
		"cold_gas":  e.MCold.Mass,
		"hi":        e.MHI.Mass,
		"h2":        e.MH2.Mass,
		"hot_halo":  e.MHotHalo.Mass,
		"cold_halo": e.MColdHalo.Mass,
		"ejected":   e.MEjectedHalo.Mass,
		"bh":        e.MBH.Mass,
	} {
		c.mass.WithLabelValues(reservoir).Set(m)
	}
	c.sfr.WithLabelValues("disk").Set(e.SFRDisk)
	c.sfr.WithLabelValues("bulge").Set(e.SFRBulge)
	return nil
}
