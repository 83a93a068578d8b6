package galaxy

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// Forest is the arena owning every halo and subhalo of a merger tree
// collection. It is populated once and then only read; galaxy ids are
// handed out atomically so workers may create galaxies concurrently.
type Forest struct {
	halos       map[int][]*Halo
	haloIndex   map[HaloID]*Halo
	subhalos    map[SubhaloID]*Subhalo
	nextGalaxy  atomic.Int64
	redshifts   map[int]float64
	snapshotIDs []int
}

func NewForest() *Forest {
	return &Forest{
		halos:     make(map[int][]*Halo),
		haloIndex: make(map[HaloID]*Halo),
		subhalos:  make(map[SubhaloID]*Subhalo),
		redshifts: make(map[int]float64),
	}
}

// AddHalo registers h and its subhalos.
func (f *Forest) AddHalo(h *Halo) error {
	if _, ok := f.haloIndex[h.ID]; ok {
		return fmt.Errorf("duplicate halo id %d", h.ID)
	}
	for _, s := range h.Subhalos {
		if _, ok := f.subhalos[s.ID]; ok {
			return fmt.Errorf("duplicate subhalo id %d", s.ID)
		}
		if s.Snapshot != h.Snapshot {
			return fmt.Errorf("subhalo %d at snapshot %d hosted by halo %d at snapshot %d", s.ID, s.Snapshot, h.ID, h.Snapshot)
		}
	}

	f.haloIndex[h.ID] = h
	for _, s := range h.Subhalos {
		f.subhalos[s.ID] = s
	}
	if _, ok := f.halos[h.Snapshot]; !ok {
		f.snapshotIDs = append(f.snapshotIDs, h.Snapshot)
		sort.Ints(f.snapshotIDs)
	}
	f.halos[h.Snapshot] = append(f.halos[h.Snapshot], h)
	return nil
}

// Halos returns the halos identified at snapshot.
func (f *Forest) Halos(snapshot int) []*Halo {
	return f.halos[snapshot]
}

func (f *Forest) Halo(id HaloID) *Halo {
	return f.haloIndex[id]
}

func (f *Forest) Subhalo(id SubhaloID) *Subhalo {
	return f.subhalos[id]
}

// Descendant resolves the descendant of s, or nil when s has none.
func (f *Forest) Descendant(s *Subhalo) *Subhalo {
	if !s.HasDescendant() {
		return nil
	}
	return f.subhalos[s.DescendantID]
}

// Snapshots returns the populated snapshots in increasing order.
func (f *Forest) Snapshots() []int {
	out := make([]int, len(f.snapshotIDs))
	copy(out, f.snapshotIDs)
	return out
}

func (f *Forest) SubhaloCount() int { return len(f.subhalos) }

// SetRedshift records the redshift of a snapshot.
func (f *Forest) SetRedshift(snapshot int, z float64) {
	f.redshifts[snapshot] = z
}

func (f *Forest) Redshift(snapshot int) (float64, bool) {
	z, ok := f.redshifts[snapshot]
	return z, ok
}

// NewGalaxy allocates a galaxy with a fresh id. The caller adds it to a
// subhalo.
func (f *Forest) NewGalaxy(t GalaxyType) *Galaxy {
	return &Galaxy{ID: f.nextGalaxy.Add(1), Type: t}
}
