package evolve

import (
	"bytes"
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/galaxy"
)

type treeBuilder struct {
	f      *galaxy.Forest
	nextID galaxy.SubhaloID
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{f: galaxy.NewForest(), nextID: 1}
}

// halo registers a halo with the given subhalos. The first subhalo is the
// central.
func (b *treeBuilder) halo(id galaxy.HaloID, snapshot int, subs ...*galaxy.Subhalo) *galaxy.Halo {
	h := galaxy.NewHalo(id, snapshot)
	for i, s := range subs {
		s.HostID = id
		s.Snapshot = snapshot
		if i > 0 {
			s.Type = galaxy.SatelliteSubhalo
		}
		h.AddSubhalo(s)
	}
	Expect(b.f.AddHalo(h)).To(Succeed())
	return h
}

func (b *treeBuilder) subhalo() *galaxy.Subhalo {
	s := &galaxy.Subhalo{
		ID:                     b.nextID,
		DescendantID:           galaxy.NoID,
		DescendantHostID:       galaxy.NoID,
		LastSnapshotIdentified: 1 << 20,
		Mvir:                   1e11,
		Vvir:                   100,
	}
	b.nextID++
	return s
}

func link(progenitor, descendant *galaxy.Subhalo, main bool) {
	progenitor.DescendantID = descendant.ID
	progenitor.DescendantHostID = descendant.HostID
	progenitor.MainProgenitor = main
}

func withGalaxy(s *galaxy.Subhalo, t galaxy.GalaxyType, stars float64) *galaxy.Galaxy {
	g := &galaxy.Galaxy{ID: int64(s.ID)*100 + int64(len(s.Galaxies)), Type: t, Vmax: 150}
	g.DiskStars = galaxy.Baryon{Mass: stars, MassMetals: stars * 0.02}
	g.SFRDisk = 3
	g.SFRBulgeMergers = 1
	g.Interaction.MajorMergers = 1
	s.Galaxies = append(s.Galaxies, g)
	return g
}

func haloGas(s *galaxy.Subhalo) float64 {
	return s.ColdHaloGas.Mass + s.HotHaloGas.Mass + s.EjectedGalaxyGas.Mass
}

var _ = Describe("AdjustMainGalaxy", func() {
	DescribeTable("reassigns the main galaxy type",
		func(descCentral, mainProgenitor bool, want galaxy.GalaxyType) {
			parent := &galaxy.Subhalo{Type: galaxy.CentralSubhalo, MainProgenitor: mainProgenitor,
				Concentration: 8, Mvir: 3e11, Lambda: 0.04}
			g := &galaxy.Galaxy{Type: galaxy.Central}
			parent.Galaxies = []*galaxy.Galaxy{g}

			desc := &galaxy.Subhalo{Type: galaxy.SatelliteSubhalo}
			if descCentral {
				desc.Type = galaxy.CentralSubhalo
			}

			AdjustMainGalaxy(parent, desc)
			Expect(g.Type).To(Equal(want))
			if want == galaxy.Type2 {
				Expect(g.ConcentrationType2).To(Equal(8.0))
				Expect(g.MsubhaloType2).To(Equal(3e11))
				Expect(g.LambdaType2).To(Equal(0.04))
			} else {
				Expect(g.MsubhaloType2).To(BeZero())
			}
		},
		Entry("central descendant, main progenitor", true, true, galaxy.Central),
		Entry("central descendant, secondary progenitor", true, false, galaxy.Type2),
		Entry("satellite descendant, main progenitor", false, true, galaxy.Type1),
		Entry("satellite descendant, secondary progenitor", false, false, galaxy.Type2),
	)

	It("uses the TYPE1 galaxy of a satellite parent", func() {
		parent := &galaxy.Subhalo{Type: galaxy.SatelliteSubhalo, MainProgenitor: true}
		orphan := &galaxy.Galaxy{Type: galaxy.Type2}
		t1 := &galaxy.Galaxy{Type: galaxy.Type1}
		parent.Galaxies = []*galaxy.Galaxy{orphan, t1}

		AdjustMainGalaxy(parent, &galaxy.Subhalo{Type: galaxy.CentralSubhalo})
		Expect(t1.Type).To(Equal(galaxy.Central))
		Expect(orphan.Type).To(Equal(galaxy.Type2))
	})

	It("does nothing without a main galaxy", func() {
		parent := &galaxy.Subhalo{Type: galaxy.CentralSubhalo, MainProgenitor: true}
		orphan := &galaxy.Galaxy{Type: galaxy.Type2}
		parent.Galaxies = []*galaxy.Galaxy{orphan}

		AdjustMainGalaxy(parent, &galaxy.Subhalo{Type: galaxy.CentralSubhalo})
		Expect(orphan.Type).To(Equal(galaxy.Type2))
	})
})

var _ = Describe("TransferGalaxiesToNextSnapshot", func() {
	var (
		b      *treeBuilder
		ledger *galaxy.TotalBaryon
		logs   *bytes.Buffer
		opts   TransferOptions
	)

	BeforeEach(func() {
		b = newTreeBuilder()
		ledger = galaxy.NewTotalBaryon()
		logs = &bytes.Buffer{}
		opts = TransferOptions{Workers: 4, Logger: slog.New(slog.NewTextHandler(logs, nil))}
	})

	Context("two progenitors merging into one descendant", func() {
		var main, minor, desc *galaxy.Subhalo

		BeforeEach(func() {
			main, minor, desc = b.subhalo(), b.subhalo(), b.subhalo()
			main.ColdHaloGas = galaxy.Baryon{Mass: 1e9, MassMetals: 1e7, SAM: 2}
			main.HotHaloGas = galaxy.Baryon{Mass: 4e10, MassMetals: 4e8, SAM: 5}
			main.EjectedGalaxyGas = galaxy.Baryon{Mass: 2e9, MassMetals: 2e7, SAM: 4}
			main.CoolingTracking = galaxy.CoolingTracking{TCool: 1, MassCooled: 5e8}
			minor.ColdHaloGas = galaxy.Baryon{Mass: 3e8, MassMetals: 3e6, SAM: 1}
			minor.HotHaloGas = galaxy.Baryon{Mass: 6e9, MassMetals: 6e7, SAM: 3}
			minor.CoolingTracking = galaxy.CoolingTracking{TCool: 9}
			desc.HotHaloGas = galaxy.Baryon{Mass: 1e9, SAM: 5}

			withGalaxy(main, galaxy.Central, 5e10)
			withGalaxy(main, galaxy.Type2, 1e8)
			withGalaxy(minor, galaxy.Central, 2e9)

			b.halo(1, 0, main)
			b.halo(2, 0, minor)
			b.halo(3, 1, desc)
			link(main, desc, true)
			link(minor, desc, false)
		})

		It("conserves halo gas and hands every galaxy over", func() {
			before := haloGas(main) + haloGas(minor) + haloGas(desc)
			metals := main.HotHaloGas.MassMetals + minor.HotHaloGas.MassMetals + desc.HotHaloGas.MassMetals

			stats, err := TransferGalaxiesToNextSnapshot(context.Background(), b.f, 0, ledger, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Transferred).To(Equal(2))
			Expect(stats.WithoutDescendant).To(BeZero())

			Expect(haloGas(desc)).To(BeNumerically("~", before, before*1e-14))
			Expect(desc.HotHaloGas.MassMetals).To(BeNumerically("~", metals, metals*1e-14))
			Expect(desc.ColdHaloGas.Mass).To(BeNumerically("~", 1.3e9, 1))

			Expect(main.Galaxies).To(BeEmpty())
			Expect(minor.Galaxies).To(BeEmpty())
			Expect(desc.Galaxies).To(HaveLen(3))
			Expect(desc.CentralGalaxy().DiskStars.Mass).To(Equal(5e10))
			Expect(desc.CheckGalaxyComposition()).To(Succeed())

			types := map[galaxy.GalaxyType]int{}
			for _, g := range desc.Galaxies {
				types[g.Type]++
			}
			Expect(types).To(Equal(map[galaxy.GalaxyType]int{galaxy.Central: 1, galaxy.Type2: 2}))
		})

		It("carries cooling tracking only from the main progenitor", func() {
			_, err := TransferGalaxiesToNextSnapshot(context.Background(), b.f, 0, ledger, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(desc.CoolingTracking).To(Equal(galaxy.CoolingTracking{TCool: 1, MassCooled: 5e8}))
		})

		It("zeroes star formation rates and interaction counters", func() {
			_, err := TransferGalaxiesToNextSnapshot(context.Background(), b.f, 0, ledger, opts)
			Expect(err).NotTo(HaveOccurred())
			for _, g := range desc.Galaxies {
				Expect(g.TotalSFR()).To(BeZero())
				Expect(g.Interaction).To(Equal(galaxy.Interaction{}))
			}
		})

		It("refuses descendants that already own galaxies", func() {
			withGalaxy(desc, galaxy.Central, 1e9)

			_, err := TransferGalaxiesToNextSnapshot(context.Background(), b.f, 0, ledger, opts)
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
			Expect(main.Galaxies).To(HaveLen(2))
			Expect(minor.Galaxies).To(HaveLen(1))
		})
	})

	It("rejects descendants that are not in the next snapshot", func() {
		prog, desc := b.subhalo(), b.subhalo()
		withGalaxy(prog, galaxy.Central, 1e9)
		b.halo(1, 0, prog)
		b.halo(2, 2, desc)
		link(prog, desc, true)

		_, err := TransferGalaxiesToNextSnapshot(context.Background(), b.f, 0, ledger, opts)
		Expect(err).To(MatchError(dynamo.ErrInvalidState))
		Expect(err.Error()).To(ContainSubstring("subsequent snapshot"))
	})

	It("records baryons of subhalos without descendant as lost", func() {
		lonely := b.subhalo()
		lonely.HotHaloGas = galaxy.Baryon{Mass: 7e9}
		withGalaxy(lonely, galaxy.Central, 3e9)
		b.halo(1, 4, lonely)

		stats, err := TransferGalaxiesToNextSnapshot(context.Background(), b.f, 4, ledger, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.WithoutDescendant).To(Equal(1))
		Expect(ledger.Lost(4)).To(Equal(1e10))
		Expect(ledger.LostSnapshots()).To(Equal([]int{4}))
		Expect(logs.String()).To(ContainSubstring("without descendant"))
	})

	It("skips satellites in their last identified snapshot", func() {
		central, sat, desc := b.subhalo(), b.subhalo(), b.subhalo()
		sat.LastSnapshotIdentified = 0
		satGal := withGalaxy(sat, galaxy.Type1, 1e9)
		withGalaxy(central, galaxy.Central, 1e10)
		b.halo(1, 0, central, sat)
		b.halo(2, 1, desc)
		link(central, desc, true)
		link(sat, desc, false)

		stats, err := TransferGalaxiesToNextSnapshot(context.Background(), b.f, 0, ledger, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Skipped).To(Equal(1))
		Expect(sat.Galaxies).To(ConsistOf(satGal))
		Expect(satGal.TotalSFR()).To(BeZero())
		Expect(desc.Galaxies).To(HaveLen(1))
	})
})

var _ = Describe("partitionByDescendant", func() {
	It("groups halos that share a descendant halo", func() {
		b := newTreeBuilder()
		a, c, d := b.subhalo(), b.subhalo(), b.subhalo()
		x, y := b.subhalo(), b.subhalo()
		ha := b.halo(1, 0, a)
		hc := b.halo(2, 0, c)
		hd := b.halo(3, 0, d)
		b.halo(10, 1, x)
		b.halo(11, 1, y)
		link(a, x, true)
		link(c, x, false)
		link(d, y, true)

		groups := partitionByDescendant(b.f, []*galaxy.Halo{ha, hc, hd})
		Expect(groups).To(HaveLen(2))
		Expect(groups).To(ContainElement(ConsistOf(ha, hc)))
		Expect(groups).To(ContainElement(ConsistOf(hd)))
	})
})
