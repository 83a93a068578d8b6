package evolve

import (
	"runtime"

	"github.com/san-kum/galevo/internal/galaxy"
)

// partitionByDescendant groups halos so that two groups never share a
// descendant halo. Groups keep the input order of their halos.
func partitionByDescendant(f *galaxy.Forest, halos []*galaxy.Halo) [][]*galaxy.Halo {
	parent := make([]int, len(halos))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	owner := make(map[galaxy.HaloID]int)
	for i, h := range halos {
		for _, s := range h.Subhalos {
			d := f.Descendant(s)
			if d == nil {
				continue
			}
			if j, ok := owner[d.HostID]; ok {
				if ri, rj := find(i), find(j); ri != rj {
					parent[ri] = rj
				}
				continue
			}
			owner[d.HostID] = i
		}
	}

	index := make(map[int]int)
	var groups [][]*galaxy.Halo
	for i, h := range halos {
		r := find(i)
		k, ok := index[r]
		if !ok {
			k = len(groups)
			index[r] = k
			groups = append(groups, nil)
		}
		groups[k] = append(groups[k], h)
	}
	return groups
}

func workerLimit(workers int) int {
	if workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return workers
}
