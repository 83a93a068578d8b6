package forest

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/san-kum/galevo/internal/dynamo"
)

// SynthOptions configures the synthetic merger tree generator.
type SynthOptions struct {
	Seed       uint64  `yaml:"seed"`
	Halos      int     `yaml:"halos"`
	Snapshots  int     `yaml:"snapshots"`
	ZStart     float64 `yaml:"z_start"`
	MvirMin    float64 `yaml:"mvir_min"`
	MvirMax    float64 `yaml:"mvir_max"`
	Growth     float64 `yaml:"growth"`
	Satellites int     `yaml:"satellites"`
	// MergerProbability is the chance per snapshot that a halo falls into
	// a more massive one.
	MergerProbability float64 `yaml:"merger_probability"`
}

func DefaultSynthOptions() SynthOptions {
	return SynthOptions{
		Seed:              42,
		Halos:             64,
		Snapshots:         30,
		ZStart:            6,
		MvirMin:           1e10,
		MvirMax:           1e13,
		Growth:            0.15,
		Satellites:        2,
		MergerProbability: 0.03,
	}
}

func (o SynthOptions) Validate() error {
	switch {
	case o.Halos < 1:
		return fmt.Errorf("%w: synthetic forest needs at least one halo", dynamo.ErrConfig)
	case o.Snapshots < 2:
		return fmt.Errorf("%w: synthetic forest needs at least two snapshots", dynamo.ErrConfig)
	case o.ZStart <= 0:
		return fmt.Errorf("%w: z_start must be positive", dynamo.ErrConfig)
	case o.MvirMin <= 0 || o.MvirMax < o.MvirMin:
		return fmt.Errorf("%w: invalid mass range [%g, %g]", dynamo.ErrConfig, o.MvirMin, o.MvirMax)
	case o.MergerProbability < 0 || o.MergerProbability > 1:
		return fmt.Errorf("%w: merger_probability must be in [0, 1]", dynamo.ErrConfig)
	}
	return nil
}

type satellite struct {
	prev *SubhaloRecord
	mvir float64
	life int
}

type lineage struct {
	prev    *SubhaloRecord
	mvir    float64
	lambda  float64
	sats    []*satellite
	pending []*SubhaloRecord
	alive   bool
}

type generator struct {
	opts    SynthOptions
	rng     *rand.Rand
	cat     *Catalogue
	nextSub int64
	nextHst int64
}

// Generate builds a deterministic catalogue from opts. Halos grow by
// accretion, host satellites that eventually sink into their central and
// occasionally fall into a more massive halo.
func Generate(opts SynthOptions) (*Catalogue, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	g := &generator{
		opts:    opts,
		rng:     rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		cat:     &Catalogue{Redshifts: make(map[int]float64, opts.Snapshots)},
		nextSub: 1,
		nextHst: 1,
	}

	lins := make([]*lineage, opts.Halos)
	for i := range lins {
		l := &lineage{
			mvir:   g.logUniform(opts.MvirMin, opts.MvirMax),
			lambda: 0.02 + 0.03*g.rng.Float64(),
			alive:  true,
		}
		for j := 0; j < opts.Satellites; j++ {
			l.sats = append(l.sats, g.newSatellite(l.mvir*(0.01+0.09*g.rng.Float64())))
		}
		lins[i] = l
	}

	for k := 0; k < opts.Snapshots; k++ {
		z := g.redshift(k)
		g.cat.Redshifts[k] = z

		for _, l := range lins {
			if l.alive {
				g.advance(l, k, z)
			}
		}
		if k < opts.Snapshots-1 {
			g.infall(lins)
		}
	}
	return g.cat, nil
}

func (g *generator) newSatellite(mvir float64) *satellite {
	return &satellite{mvir: mvir, life: 1 + g.rng.IntN(g.opts.Snapshots)}
}

func (g *generator) logUniform(lo, hi float64) float64 {
	return math.Exp(math.Log(lo) + g.rng.Float64()*(math.Log(hi)-math.Log(lo)))
}

// redshift spaces snapshots evenly in log(1+z), ending at z=0.
func (g *generator) redshift(k int) float64 {
	frac := float64(k) / float64(g.opts.Snapshots-1)
	return math.Pow(1+g.opts.ZStart, 1-frac) - 1
}

func (g *generator) record(host int64, snap int, typ string, mvir, z, lambda, accreted float64) *SubhaloRecord {
	vvir := 200 * math.Cbrt(mvir/1e12) * math.Sqrt(1+z)
	r := &SubhaloRecord{
		ID:            g.nextSub,
		Host:          host,
		Snapshot:      snap,
		Descendant:    -1,
		Type:          typ,
		Mvir:          mvir,
		Vvir:          vvir,
		Vcirc:         1.2 * vvir,
		Concentration: 10 * math.Pow(mvir/1e12, -0.1) / (1 + z),
		Lambda:        lambda,
		AccretedMass:  accreted,
	}
	g.nextSub++
	g.cat.Subhalos = append(g.cat.Subhalos, r)
	return r
}

// advance emits the halo of l at snapshot k.
func (g *generator) advance(l *lineage, k int, z float64) {
	host := g.nextHst
	g.nextHst++

	accreted := 0.0
	if l.prev != nil {
		accreted = l.mvir * g.opts.Growth * g.rng.Float64()
		l.mvir += accreted
	}

	central := g.record(host, k, "central", l.mvir, z, l.lambda, accreted)
	if l.prev != nil {
		l.prev.Descendant = central.ID
		l.prev.MainProgenitor = true
	}
	for _, p := range l.pending {
		p.Descendant = central.ID
	}
	l.pending = l.pending[:0]
	l.prev = central

	kept := l.sats[:0]
	for _, s := range l.sats {
		if s.prev != nil {
			s.mvir *= 0.9
		}
		rec := g.record(host, k, "satellite", s.mvir, z, l.lambda, 0)
		if s.prev != nil {
			s.prev.Descendant = rec.ID
			s.prev.MainProgenitor = true
		}
		s.prev = rec
		s.life--
		if s.life <= 0 || k == g.opts.Snapshots-1 {
			last := k
			rec.LastSnapshot = &last
			l.pending = append(l.pending, rec)
			continue
		}
		kept = append(kept, s)
	}
	l.sats = kept
}

// infall lets halos fall into more massive ones. The central of the
// victim becomes a satellite of the target at the next snapshot.
func (g *generator) infall(lins []*lineage) {
	for _, l := range lins {
		if !l.alive || g.rng.Float64() >= g.opts.MergerProbability {
			continue
		}
		var target *lineage
		for _, t := range lins {
			if t != l && t.alive && t.mvir > l.mvir && (target == nil || t.mvir < target.mvir) {
				target = t
			}
		}
		if target == nil {
			continue
		}

		target.sats = append(target.sats, &satellite{prev: l.prev, mvir: l.mvir, life: 1 + g.rng.IntN(4)})
		target.sats = append(target.sats, l.sats...)
		target.pending = append(target.pending, l.pending...)
		l.sats, l.pending = nil, nil
		l.alive = false
	}
}
