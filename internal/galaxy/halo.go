package galaxy

type Halo struct {
	ID       HaloID
	Snapshot int
	Mvir     float64
	Subhalos []*Subhalo
}

func NewHalo(id HaloID, snapshot int) *Halo {
	return &Halo{ID: id, Snapshot: snapshot}
}

// AddSubhalo appends s and accumulates its virial mass.
func (h *Halo) AddSubhalo(s *Subhalo) {
	h.Subhalos = append(h.Subhalos, s)
	h.Mvir += s.Mvir
}

// CentralSubhalo returns the central subhalo or nil.
func (h *Halo) CentralSubhalo() *Subhalo {
	for _, s := range h.Subhalos {
		if s.Type == CentralSubhalo {
			return s
		}
	}
	return nil
}

func (h *Halo) GalaxyCount() int {
	n := 0
	for _, s := range h.Subhalos {
		n += s.GalaxyCount()
	}
	return n
}
