package evolve

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/galevo/internal/constants"
	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/galaxy"
)

var _ = Describe("mergeSubhalos", func() {
	var (
		central, sat *galaxy.Subhalo
		h            *galaxy.Halo
	)

	BeforeEach(func() {
		central = &galaxy.Subhalo{ID: 1, Type: galaxy.CentralSubhalo, Snapshot: 3, LastSnapshotIdentified: 9}
		sat = &galaxy.Subhalo{ID: 2, Type: galaxy.SatelliteSubhalo, Snapshot: 3, LastSnapshotIdentified: 3,
			Concentration: 6, Mvir: 2e10, Lambda: 0.03}
		central.Galaxies = []*galaxy.Galaxy{{ID: 1, Type: galaxy.Central}}
		sat.Galaxies = []*galaxy.Galaxy{{ID: 2, Type: galaxy.Type1}, {ID: 3, Type: galaxy.Type2, MsubhaloType2: 5e9}}
		sat.HotHaloGas = galaxy.Baryon{Mass: 1e9, SAM: 1}
		sat.ColdHaloGas = galaxy.Baryon{Mass: 2e8, SAM: 1}
		h = &galaxy.Halo{ID: 1, Snapshot: 3, Subhalos: []*galaxy.Subhalo{central, sat}}
	})

	It("moves the galaxies and gas of merging satellites into the central", func() {
		Expect(mergeSubhalos(h, MergerOptions{Delay: 2})).To(Succeed())

		Expect(sat.Galaxies).To(BeEmpty())
		Expect(sat.HotHaloGas.Mass).To(BeZero())
		Expect(sat.ColdHaloGas.Mass).To(BeZero())
		Expect(central.HotHaloGas.Mass).To(Equal(1e9))
		Expect(central.ColdHaloGas.Mass).To(Equal(2e8))

		Expect(central.Galaxies).To(HaveLen(3))
		Expect(central.CheckGalaxyComposition()).To(Succeed())
		for _, g := range central.Galaxies[1:] {
			Expect(g.Type).To(Equal(galaxy.Type2))
			Expect(g.MergerTimer).To(Equal(2))
		}
		Expect(central.Galaxies[1].MsubhaloType2).To(Equal(2e10))
		Expect(central.Galaxies[2].MsubhaloType2).To(Equal(5e9))
	})

	It("leaves surviving satellites alone", func() {
		sat.LastSnapshotIdentified = 4
		Expect(mergeSubhalos(h, MergerOptions{})).To(Succeed())
		Expect(sat.Galaxies).To(HaveLen(2))
		Expect(central.Galaxies).To(HaveLen(1))
	})

	It("fails without a central subhalo", func() {
		h.Subhalos = []*galaxy.Subhalo{sat}
		Expect(mergeSubhalos(h, MergerOptions{})).To(MatchError(dynamo.ErrInvalidState))
	})
})

var _ = Describe("mergeGalaxies", func() {
	var (
		s    *galaxy.Subhalo
		main *galaxy.Galaxy
	)

	BeforeEach(func() {
		main = &galaxy.Galaxy{ID: 1, Type: galaxy.Central}
		main.DiskStars = galaxy.Baryon{Mass: 1e10, SAM: 10, RScale: 0.004}
		main.DiskGas = galaxy.Baryon{Mass: 2e9, SAM: 10, RScale: 0.006}
		s = &galaxy.Subhalo{Type: galaxy.CentralSubhalo, Galaxies: []*galaxy.Galaxy{main}}
	})

	orphan := func(stars, gas float64, timer int) *galaxy.Galaxy {
		g := &galaxy.Galaxy{ID: int64(len(s.Galaxies) + 1), Type: galaxy.Type2, MergerTimer: timer}
		g.DiskStars = galaxy.Baryon{Mass: stars, SAM: 5}
		g.DiskGas = galaxy.Baryon{Mass: gas, SAM: 5}
		s.Galaxies = append(s.Galaxies, g)
		return g
	}

	It("counts down the timer before merging", func() {
		g := orphan(1e8, 0, 1)
		mergeGalaxies(s, MergerOptions{MajorRatio: 0.3})
		Expect(s.Galaxies).To(ConsistOf(main, g))
		Expect(g.MergerTimer).To(BeZero())

		mergeGalaxies(s, MergerOptions{MajorRatio: 0.3})
		Expect(s.Galaxies).To(ConsistOf(main))
	})

	It("adds minor satellites to the bulge", func() {
		orphan(1e8, 1e7, 0)
		mergeGalaxies(s, MergerOptions{MajorRatio: 0.3})

		Expect(main.Interaction.MinorMergers).To(Equal(1))
		Expect(main.DiskStars.Mass).To(Equal(1e10))
		Expect(main.BulgeStars.Mass).To(Equal(1e8))
		Expect(main.BulgeGas.Mass).To(Equal(1e7))
		Expect(main.PendingBurst).To(Equal(galaxy.MergerBurst))
	})

	It("destroys the disk in major mergers", func() {
		orphan(5e9, 0, 0)
		before := main.BaryonMass() + 5e9
		mergeGalaxies(s, MergerOptions{MajorRatio: 0.3})

		Expect(main.Interaction.MajorMergers).To(Equal(1))
		Expect(main.DiskStars.Mass).To(BeZero())
		Expect(main.DiskGas.Mass).To(BeZero())
		Expect(main.BulgeStars.Mass).To(Equal(1.5e10))
		Expect(main.BulgeGas.Mass).To(Equal(2e9))
		Expect(main.BaryonMass()).To(BeNumerically("~", before, 1))
		Expect(main.PendingBurst).To(Equal(galaxy.MergerBurst))
	})

	It("does nothing without a main galaxy", func() {
		s.Galaxies = nil
		g := orphan(1e8, 0, 0)
		mergeGalaxies(s, MergerOptions{})
		Expect(s.Galaxies).To(ConsistOf(g))
	})
})

var _ = Describe("diskInstability", func() {
	newDisk := func(vmax float64) *galaxy.Galaxy {
		return &galaxy.Galaxy{
			Vmax:      vmax,
			DiskStars: galaxy.Baryon{Mass: 4e10, RScale: 0.003},
			DiskGas:   galaxy.Baryon{Mass: 1e9, RScale: 0.005},
		}
	}
	// sqrt(G M / r) for the disk above.
	vdisk := math.Sqrt(constants.G * 4.1e10 / 0.005)

	It("collapses unstable disks into the bulge", func() {
		g := newDisk(0.5 * vdisk)
		diskInstability(g, InstabilityOptions{Stable: 0.75})

		Expect(g.DiskStars.Mass).To(BeZero())
		Expect(g.BulgeStars.Mass).To(Equal(4e10))
		Expect(g.BulgeGas.Mass).To(Equal(1e9))
		Expect(g.Interaction.DiskInstabilities).To(Equal(1))
		Expect(g.PendingBurst).To(Equal(galaxy.InstabilityBurst))
	})

	It("keeps a pending merger burst", func() {
		g := newDisk(0.5 * vdisk)
		g.PendingBurst = galaxy.MergerBurst
		diskInstability(g, InstabilityOptions{Stable: 0.75})
		Expect(g.PendingBurst).To(Equal(galaxy.MergerBurst))
	})

	DescribeTable("leaves the disk in place",
		func(vmax, stable float64) {
			g := newDisk(vmax)
			diskInstability(g, InstabilityOptions{Stable: stable})
			Expect(g.DiskStars.Mass).To(Equal(4e10))
			Expect(g.Interaction.DiskInstabilities).To(BeZero())
		},
		Entry("stable disk", 2*vdisk, 0.75),
		Entry("check disabled", 0.1*vdisk, 0.0),
		Entry("no velocity", 0.0, 0.75),
	)
})

var _ = Describe("halo growth", func() {
	It("accretes baryons into the hot halo", func() {
		s := &galaxy.Subhalo{Mvir: 1e12, Vvir: 200, Lambda: 0.04, AccretedMass: 1e11}
		accrete(s, 0.15, 0.01)

		Expect(s.HotHaloGas.Mass).To(BeNumerically("~", 1.5e10, 1))
		Expect(s.HotHaloGas.MassMetals).To(BeNumerically("~", 1.5e8, 1e-2))
		rvir := constants.G * 1e12 / (200 * 200)
		Expect(s.HotHaloGas.SAM).To(BeNumerically("~", math.Sqrt2*0.04*200*rvir, 1e-12))
	})

	It("ignores subhalos without accretion", func() {
		s := &galaxy.Subhalo{Mvir: 1e12, Vvir: 200}
		accrete(s, 0.15, 0)
		Expect(s.HotHaloGas).To(Equal(galaxy.Baryon{}))
	})

	It("seeds the main galaxy with the host velocity", func() {
		f := galaxy.NewForest()
		cen := &galaxy.Subhalo{Type: galaxy.CentralSubhalo, Vvir: 120, Vcirc: 150}
		sat := &galaxy.Subhalo{Type: galaxy.SatelliteSubhalo, Vvir: 80}

		g := seedMainGalaxy(f, cen)
		Expect(g.Type).To(Equal(galaxy.Central))
		Expect(g.Vmax).To(Equal(150.0))
		Expect(seedMainGalaxy(f, cen)).To(BeIdenticalTo(g))
		Expect(cen.Galaxies).To(HaveLen(1))

		t1 := seedMainGalaxy(f, sat)
		Expect(t1.Type).To(Equal(galaxy.Type1))
		Expect(t1.Vmax).To(Equal(80.0))
		Expect(t1.ID).NotTo(Equal(g.ID))
	})
})
