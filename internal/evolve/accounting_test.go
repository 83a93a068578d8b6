package evolve

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/galevo/internal/galaxy"
)

type halfSplit struct{}

func (halfSplit) Partition(gas float64) (float64, float64) { return gas / 2, gas / 2 }

type linearAge struct{}

// UniverseAge returns 10 - z Gyr.
func (linearAge) UniverseAge(z float64) float64 { return 10 - z }

var _ = Describe("TrackTotalBaryons", func() {
	const n = 50

	var halos []*galaxy.Halo

	BeforeEach(func() {
		halos = make([]*galaxy.Halo, n)
		for i := range halos {
			s := &galaxy.Subhalo{
				Type:             galaxy.CentralSubhalo,
				Mvir:             1e11,
				HotHaloGas:       galaxy.Baryon{Mass: 1e9, MassMetals: 1e7},
				ColdHaloGas:      galaxy.Baryon{Mass: 1e8},
				EjectedGalaxyGas: galaxy.Baryon{Mass: 2e8},
			}
			g := &galaxy.Galaxy{Type: galaxy.Central, SFRDisk: 2, SFRBulgeMergers: 1}
			g.DiskStars = galaxy.Baryon{Mass: 1e9, MassMetals: 2e7}
			g.BulgeStars = galaxy.Baryon{Mass: 5e8}
			g.DiskGas = galaxy.Baryon{Mass: 4e8}
			g.SMBH = galaxy.Baryon{Mass: 1e6}
			g.Interaction.MinorMergers = 1
			s.Galaxies = []*galaxy.Galaxy{g}
			h := galaxy.NewHalo(galaxy.HaloID(i), 5)
			h.AddSubhalo(s)
			halos[i] = h
		}
	})

	It("sums every reservoir across halos", func() {
		ledger := galaxy.NewTotalBaryon()
		e := TrackTotalBaryons(halos, Interval{Snapshot: 5, DeltaT: 0.5}, ledger, AccountingOptions{Gas: halfSplit{}, Workers: 4})

		Expect(ledger.Len()).To(Equal(1))
		Expect(ledger.Entries()[0]).To(Equal(e))
		Expect(e.Snapshot).To(Equal(5))

		Expect(e.MDM.Mass).To(BeNumerically("~", n*1e11, 1e3))
		Expect(e.MHotHalo.Mass).To(BeNumerically("~", n*1e9, 1))
		Expect(e.MHotHalo.MassMetals).To(BeNumerically("~", n*1e7, 1e-2))
		Expect(e.MColdHalo.Mass).To(BeNumerically("~", n*1e8, 1))
		Expect(e.MEjectedHalo.Mass).To(BeNumerically("~", n*2e8, 1))
		Expect(e.MStars.Mass).To(BeNumerically("~", n*1.5e9, 1))
		Expect(e.MStars.MassMetals).To(BeNumerically("~", n*2e7, 1e-2))
		Expect(e.MCold.Mass).To(BeNumerically("~", n*4e8, 1))
		Expect(e.MHI.Mass).To(BeNumerically("~", n*2e8, 1))
		Expect(e.MH2.Mass).To(BeNumerically("~", n*2e8, 1))
		Expect(e.MBH.Mass).To(BeNumerically("~", n*1e6, 1e-4))
		Expect(e.SFRDisk).To(BeNumerically("~", n*2.0, 1e-9))
		Expect(e.SFRBulge).To(BeNumerically("~", n*1.0, 1e-9))
		Expect(e.MinorMergers).To(Equal(n))
	})

	It("does not depend on the number of workers", func() {
		serial := TrackTotalBaryons(halos, Interval{Snapshot: 5}, galaxy.NewTotalBaryon(), AccountingOptions{Workers: 1})
		parallel := TrackTotalBaryons(halos, Interval{Snapshot: 5}, galaxy.NewTotalBaryon(), AccountingOptions{Workers: 8})
		Expect(parallel.MStars.Mass).To(BeNumerically("~", serial.MStars.Mass, serial.MStars.Mass*1e-12))
		Expect(parallel.MHI.Mass).To(BeNumerically("~", serial.MHI.Mass, serial.MHI.Mass*1e-12))
		Expect(parallel.MinorMergers).To(Equal(serial.MinorMergers))
	})

	It("is bit for bit reproducible with many workers", func() {
		for i, h := range halos {
			g := h.Subhalos[0].Galaxies[0]
			g.DiskStars.Mass = 1e9 / float64(3+i%7)
			g.DiskGas.Mass = 4e8 * (1 + 1e-7*float64(i))
		}
		first := TrackTotalBaryons(halos, Interval{Snapshot: 5}, galaxy.NewTotalBaryon(), AccountingOptions{Gas: halfSplit{}, Workers: 8})
		for range 20 {
			again := TrackTotalBaryons(halos, Interval{Snapshot: 5}, galaxy.NewTotalBaryon(), AccountingOptions{Gas: halfSplit{}, Workers: 8})
			Expect(again).To(Equal(first))
		}
	})

	It("records star formation histories when asked", func() {
		iv := Interval{Snapshot: 5, Z: 2, ZNext: 1, DeltaT: 0.5}
		TrackTotalBaryons(halos, iv, galaxy.NewTotalBaryon(), AccountingOptions{Ages: linearAge{}, SFHistories: true})

		g := halos[0].Subhalos[0].Galaxies[0]
		Expect(g.History).To(HaveLen(1))
		Expect(g.History[0]).To(Equal(galaxy.HistoryItem{Snapshot: 5, SFRDisk: 2, SFRBulgeMergers: 1}))
		Expect(g.TotalStellarMassEverFormed).To(Equal(1.5))
		Expect(g.MeanStellarAge).To(Equal(1.5 * 8.5))
	})
})
