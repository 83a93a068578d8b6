package metrics

import (
	"github.com/san-kum/galevo/internal/evolve"
)

// Metric summarises a run from its snapshot reports.
type Metric interface {
	Name() string
	Observe(r evolve.SnapshotReport)
	Value() float64
	Reset()
}

// Observer feeds every snapshot report to ms.
func Observer(ms ...Metric) evolve.Observer {
	return evolve.ObserverFunc(func(r evolve.SnapshotReport) error {
		for _, m := range ms {
			m.Observe(r)
		}
		return nil
	})
}

// EvaluationCost is the mean number of evaluator calls per galaxy and
// snapshot.
type EvaluationCost struct {
	evals    uint64
	galaxies int
}

func NewEvaluationCost() *EvaluationCost { return &EvaluationCost{} }

func (e *EvaluationCost) Name() string { return "evaluation_cost" }

func (e *EvaluationCost) Observe(r evolve.SnapshotReport) {
	e.evals += r.GalaxyEvals + r.StarburstEvals
	e.galaxies += r.Galaxies
}

func (e *EvaluationCost) Value() float64 {
	if e.galaxies == 0 {
		return 0
	}
	return float64(e.evals) / float64(e.galaxies)
}

func (e *EvaluationCost) Reset() { *e = EvaluationCost{} }

// LostFraction is the baryon mass lost with subhalos without descendant
// relative to the baryons accounted for at the last snapshot.
type LostFraction struct {
	lost  float64
	total float64
}

func NewLostFraction() *LostFraction { return &LostFraction{} }

func (l *LostFraction) Name() string { return "lost_fraction" }

func (l *LostFraction) Observe(r evolve.SnapshotReport) {
	l.lost += r.Transfer.LostBaryons
	e := r.Entry
	l.total = e.MStars.Mass + e.MCold.Mass + e.MBH.Mass + e.MHotHalo.Mass + e.MColdHalo.Mass + e.MEjectedHalo.Mass
}

func (l *LostFraction) Value() float64 {
	if l.total <= 0 {
		return 0
	}
	return l.lost / l.total
}

func (l *LostFraction) Reset() { *l = LostFraction{} }

// StellarGrowth is the ratio of the total stellar mass at the last and the
// first snapshot that held stars.
type StellarGrowth struct {
	first, last float64
}

func NewStellarGrowth() *StellarGrowth { return &StellarGrowth{} }

func (s *StellarGrowth) Name() string { return "stellar_growth" }

func (s *StellarGrowth) Observe(r evolve.SnapshotReport) {
	m := r.Entry.MStars.Mass
	if s.first == 0 {
		s.first = m
	}
	s.last = m
}

func (s *StellarGrowth) Value() float64 {
	if s.first == 0 {
		return 0
	}
	return s.last / s.first
}

func (s *StellarGrowth) Reset() { *s = StellarGrowth{} }
