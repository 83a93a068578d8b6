package forest

import (
	"fmt"
	"sort"

	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/galaxy"
)

func parseType(t string) (galaxy.SubhaloType, error) {
	switch t {
	case "central", "CENTRAL":
		return galaxy.CentralSubhalo, nil
	case "satellite", "SATELLITE":
		return galaxy.SatelliteSubhalo, nil
	}
	return 0, fmt.Errorf("%w: unknown subhalo type %q", dynamo.ErrConfig, t)
}

// Assemble validates cat and builds a forest from it.
//
// Halos are the groups of subhalos sharing a host id. Every host id must
// map to a single snapshot; halos are then ordered by snapshot and id
// explicitly rather than by any encoding of the ids. Each halo needs
// exactly one central subhalo, every descendant must exist one snapshot
// later and have at most one main progenitor.
func Assemble(cat *Catalogue) (*galaxy.Forest, error) {
	hostSnap := make(map[int64]int)
	for _, r := range cat.Subhalos {
		if snap, ok := hostSnap[r.Host]; ok && snap != r.Snapshot {
			return nil, dynamo.Invalidf("host %d spans snapshots %d and %d", r.Host, snap, r.Snapshot)
		}
		hostSnap[r.Host] = r.Snapshot
	}

	records := make(map[int64]*SubhaloRecord, len(cat.Subhalos))
	subs := make(map[int64]*galaxy.Subhalo, len(cat.Subhalos))
	for _, r := range cat.Subhalos {
		if _, dup := records[r.ID]; dup {
			return nil, dynamo.Invalidf("duplicate subhalo id %d", r.ID)
		}
		typ, err := parseType(r.Type)
		if err != nil {
			return nil, fmt.Errorf("subhalo %d: %w", r.ID, err)
		}
		records[r.ID] = r
		subs[r.ID] = &galaxy.Subhalo{
			ID:               galaxy.SubhaloID(r.ID),
			HostID:           galaxy.HaloID(r.Host),
			Snapshot:         r.Snapshot,
			DescendantID:     galaxy.NoID,
			DescendantHostID: galaxy.NoID,
			Type:             typ,
			MainProgenitor:   r.MainProgenitor,
			Mvir:             r.Mvir,
			Vvir:             r.Vvir,
			Vcirc:            r.Vcirc,
			Concentration:    r.Concentration,
			Lambda:           r.Lambda,
			AccretedMass:     r.AccretedMass,
		}
	}

	mains := make(map[int64]int64)
	for _, r := range cat.Subhalos {
		if r.Descendant < 0 {
			continue
		}
		d, ok := records[r.Descendant]
		if !ok {
			return nil, dynamo.Invalidf("subhalo %d has unknown descendant %d", r.ID, r.Descendant)
		}
		if d.Snapshot != r.Snapshot+1 {
			return nil, dynamo.Invalidf("subhalo %d at snapshot %d has descendant %d at snapshot %d",
				r.ID, r.Snapshot, d.ID, d.Snapshot)
		}
		if r.MainProgenitor {
			if other, ok := mains[d.ID]; ok {
				return nil, dynamo.Invalidf("descendant %d has two main progenitors, %d and %d", d.ID, other, r.ID)
			}
			mains[d.ID] = r.ID
		}
		s := subs[r.ID]
		s.DescendantID = galaxy.SubhaloID(d.ID)
		s.DescendantHostID = galaxy.HaloID(d.Host)
	}

	for _, r := range cat.Subhalos {
		s := subs[r.ID]
		if r.LastSnapshot != nil {
			s.LastSnapshotIdentified = *r.LastSnapshot
			continue
		}
		s.LastSnapshotIdentified = lastInChain(r, records)
	}

	halos := make(map[int64]*galaxy.Halo)
	for _, r := range cat.Subhalos {
		h, ok := halos[r.Host]
		if !ok {
			h = galaxy.NewHalo(galaxy.HaloID(r.Host), r.Snapshot)
			halos[r.Host] = h
		}
		h.AddSubhalo(subs[r.ID])
	}

	ordered := make([]*galaxy.Halo, 0, len(halos))
	for _, h := range halos {
		centrals := 0
		for _, s := range h.Subhalos {
			if s.Type == galaxy.CentralSubhalo {
				centrals++
			}
		}
		if centrals != 1 {
			return nil, dynamo.Invalidf("halo %d at snapshot %d has %d central subhalos", h.ID, h.Snapshot, centrals)
		}
		ordered = append(ordered, h)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Snapshot != ordered[j].Snapshot {
			return ordered[i].Snapshot < ordered[j].Snapshot
		}
		return ordered[i].ID < ordered[j].ID
	})

	f := galaxy.NewForest()
	for _, h := range ordered {
		if err := f.AddHalo(h); err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidState, err)
		}
	}
	for snap, z := range cat.Redshifts {
		f.SetRedshift(snap, z)
	}
	return f, nil
}

// lastInChain follows the main progenitor chain of r and returns the
// snapshot of its final member.
func lastInChain(r *SubhaloRecord, records map[int64]*SubhaloRecord) int {
	for r.MainProgenitor && r.Descendant >= 0 {
		d, ok := records[r.Descendant]
		if !ok {
			break
		}
		r = d
	}
	return r.Snapshot
}
