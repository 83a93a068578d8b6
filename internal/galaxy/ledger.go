package galaxy

import (
	"sort"
	"sync"
)

// LedgerEntry sums baryons over the whole population at one snapshot.
type LedgerEntry struct {
	Snapshot int `json:"snapshot"`

	MStars             BaryonBase `json:"mstars"`
	MStarsBurstMergers BaryonBase `json:"mstars_burst_mergers"`
	MStarsBurstDiskIns BaryonBase `json:"mstars_burst_diskins"`
	MCold              BaryonBase `json:"mcold"`
	MHI                BaryonBase `json:"mhi"`
	MH2                BaryonBase `json:"mh2"`
	MBH                BaryonBase `json:"mbh"`
	MHotHalo           BaryonBase `json:"mhot_halo"`
	MColdHalo          BaryonBase `json:"mcold_halo"`
	MEjectedHalo       BaryonBase `json:"mejected_halo"`
	MDM                BaryonBase `json:"mdm"`

	SFRDisk  float64 `json:"sfr_disk"`
	SFRBulge float64 `json:"sfr_bulge"`

	MajorMergers      int `json:"major_mergers"`
	MinorMergers      int `json:"minor_mergers"`
	DiskInstabilities int `json:"disk_instabilities"`
}

// Merge adds the partial sums of o into e.
func (e *LedgerEntry) Merge(o LedgerEntry) {
	e.MStars.Add(o.MStars)
	e.MStarsBurstMergers.Add(o.MStarsBurstMergers)
	e.MStarsBurstDiskIns.Add(o.MStarsBurstDiskIns)
	e.MCold.Add(o.MCold)
	e.MHI.Add(o.MHI)
	e.MH2.Add(o.MH2)
	e.MBH.Add(o.MBH)
	e.MHotHalo.Add(o.MHotHalo)
	e.MColdHalo.Add(o.MColdHalo)
	e.MEjectedHalo.Add(o.MEjectedHalo)
	e.MDM.Add(o.MDM)
	e.SFRDisk += o.SFRDisk
	e.SFRBulge += o.SFRBulge
	e.MajorMergers += o.MajorMergers
	e.MinorMergers += o.MinorMergers
	e.DiskInstabilities += o.DiskInstabilities
}

// TotalBaryon is the process-wide ledger: one entry per snapshot plus the
// baryon mass lost with subhalos that have no descendant. Writers hand in
// already-reduced values; the mutex only orders the appends.
type TotalBaryon struct {
	mu      sync.Mutex
	entries []LedgerEntry
	lost    map[int]float64
}

func NewTotalBaryon() *TotalBaryon {
	return &TotalBaryon{lost: make(map[int]float64)}
}

func (tb *TotalBaryon) Append(e LedgerEntry) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.entries = append(tb.entries, e)
}

// SetLost records the baryon mass lost at snapshot.
func (tb *TotalBaryon) SetLost(snapshot int, mass float64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.lost[snapshot] = mass
}

func (tb *TotalBaryon) Lost(snapshot int) float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lost[snapshot]
}

// LostSnapshots returns the snapshots with recorded losses, sorted.
func (tb *TotalBaryon) LostSnapshots() []int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	out := make([]int, 0, len(tb.lost))
	for s := range tb.lost {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// Entries returns a copy of the ledger.
func (tb *TotalBaryon) Entries() []LedgerEntry {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	out := make([]LedgerEntry, len(tb.entries))
	copy(out, tb.entries)
	return out
}

func (tb *TotalBaryon) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.entries)
}
