package evolve

import (
	"context"
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/galevo/internal/cooling"
	"github.com/san-kum/galevo/internal/cosmology"
	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/feedback"
	"github.com/san-kum/galevo/internal/forest"
	"github.com/san-kum/galevo/internal/galaxy"
	"github.com/san-kum/galevo/internal/physics"
	"github.com/san-kum/galevo/internal/starformation"
)

func ptr[T any](v T) *T { return &v }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func synthForest(seed uint64) *galaxy.Forest {
	opts := forest.DefaultSynthOptions()
	opts.Seed = seed
	opts.Halos = 12
	opts.Snapshots = 10
	opts.MergerProbability = 0.1
	cat, err := forest.Generate(opts)
	Expect(err).NotTo(HaveOccurred())
	f, err := forest.Assemble(cat)
	Expect(err).NotTo(HaveOccurred())
	return f
}

func newTestEvolver(f *galaxy.Forest, workers int) *Evolver {
	params, err := feedback.NewParameters(feedback.Options{
		Model:    ptr("GALFORM"),
		BetaDisk: ptr(2.0),
		VSN:      ptr(120.0),
	})
	Expect(err).NotTo(HaveOccurred())

	sf := starformation.NewMolecular(starformation.Parameters{Efficiency: 1, BurstTimescale: 1, MolecularFraction: 0.3})
	basic := physics.NewBasic(feedback.New(params), sf,
		physics.RecyclingParameters{Recycle: 0.46, Yield: 0.029},
		physics.GasCoolingParameters{PreEnrichZ: 1e-7})
	engine := physics.NewEngine(basic, cooling.NewExponential(cooling.Parameters{Timescale: 1, RedshiftPower: 1.5}), 0.05,
		physics.WithLogger(quiet))
	cosmo := cosmology.New(cosmology.Parameters{OmegaM: 0.3, OmegaL: 0.7, OmegaB: 0.045, H: 0.7})

	return New(f, engine, cosmo, sf, Options{
		Workers:         workers,
		PreEnrichZ:      1e-7,
		Mergers:         MergerOptions{MajorRatio: 0.3, Delay: 1},
		DiskInstability: InstabilityOptions{Stable: 0.75},
		Logger:          quiet,
	})
}

var _ = Describe("Evolver", func() {
	var (
		f *galaxy.Forest
		e *Evolver
	)

	BeforeEach(func() {
		f = synthForest(7)
		e = newTestEvolver(f, 4)
	})

	It("evolves every snapshot interval of the forest", func() {
		var reports []SnapshotReport
		e.AddObserver(ObserverFunc(func(r SnapshotReport) error {
			reports = append(reports, r)
			return nil
		}))

		res, err := e.Run(context.Background(), 0, -1)
		Expect(err).NotTo(HaveOccurred())

		snaps := f.Snapshots()
		Expect(res.Snapshots).To(Equal(len(snaps) - 1))
		Expect(e.Ledger().Len()).To(Equal(res.Snapshots))
		Expect(reports).To(HaveLen(res.Snapshots))
		Expect(res.GalaxyEvals).To(BeNumerically(">", 0))

		for i, r := range reports {
			Expect(r.Interval.Snapshot).To(Equal(snaps[i]))
			Expect(r.Interval.DeltaT).To(BeNumerically(">", 0))
			Expect(r.Entry.Snapshot).To(Equal(snaps[i]))
		}

		entries := e.Ledger().Entries()
		last := entries[len(entries)-1]
		Expect(last.MStars.Mass).To(BeNumerically(">", 0))
		Expect(last.MStars.MassMetals).To(BeNumerically(">", 0))
		Expect(last.MStars.Mass).To(BeNumerically(">=", entries[0].MStars.Mass))
	})

	It("leaves every galaxy in a consistent state", func() {
		_, err := e.Run(context.Background(), 0, -1)
		Expect(err).NotTo(HaveOccurred())

		snaps := f.Snapshots()
		final := snaps[len(snaps)-1]
		galaxies := 0
		for _, h := range f.Halos(final) {
			for _, s := range h.Subhalos {
				Expect(s.CheckGalaxyComposition()).To(Succeed())
				for _, r := range []galaxy.Baryon{s.ColdHaloGas, s.HotHaloGas, s.EjectedGalaxyGas} {
					Expect(r.Mass).To(BeNumerically(">=", 0))
				}
				for _, g := range s.Galaxies {
					galaxies++
					for _, r := range []galaxy.Baryon{g.DiskStars, g.DiskGas, g.BulgeStars, g.BulgeGas} {
						Expect(r.Mass).To(BeNumerically(">=", 0))
						Expect(r.MassMetals).To(BeNumerically(">=", 0))
						Expect(r.MassMetals).To(BeNumerically("<=", r.Mass))
					}
				}
			}
		}
		Expect(galaxies).To(BeNumerically(">", 0))

		// Earlier snapshots handed all their galaxies over.
		for _, h := range f.Halos(snaps[0]) {
			for _, s := range h.Subhalos {
				if s.Type == galaxy.CentralSubhalo {
					Expect(s.Galaxies).To(BeEmpty())
				}
			}
		}
	})

	It("gives the same ledger regardless of the number of workers", func() {
		_, err := e.Run(context.Background(), 0, -1)
		Expect(err).NotTo(HaveOccurred())

		serial := newTestEvolver(synthForest(7), 1)
		_, err = serial.Run(context.Background(), 0, -1)
		Expect(err).NotTo(HaveOccurred())

		a, b := e.Ledger().Entries(), serial.Ledger().Entries()
		Expect(a).To(HaveLen(len(b)))
		for i := range a {
			Expect(a[i].MStars.Mass).To(BeNumerically("~", b[i].MStars.Mass, 1e-9*b[i].MStars.Mass+1e-6))
			Expect(a[i].MHotHalo.Mass).To(BeNumerically("~", b[i].MHotHalo.Mass, 1e-9*b[i].MHotHalo.Mass+1e-6))
			Expect(a[i].MajorMergers).To(Equal(b[i].MajorMergers))
			Expect(a[i].MinorMergers).To(Equal(b[i].MinorMergers))
		}
	})

	It("honours the snapshot range", func() {
		Expect(e.Intervals(2, 5)).To(Equal(3))
		Expect(e.Intervals(0, -1)).To(Equal(9))
		res, err := e.Run(context.Background(), 2, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Snapshots).To(Equal(3))
		Expect(e.Ledger().Entries()[0].Snapshot).To(Equal(2))
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := e.Run(ctx, 0, -1)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res.Snapshots).To(BeZero())
	})

	It("stops when an observer fails", func() {
		stop := errors.New("stop")
		e.AddObserver(ObserverFunc(func(SnapshotReport) error { return stop }))

		res, err := e.Run(context.Background(), 0, -1)
		Expect(err).To(MatchError(stop))
		Expect(res.Snapshots).To(Equal(1))
	})

	It("rejects snapshots that go back in time", func() {
		f.SetRedshift(1, 50)
		_, err := e.Run(context.Background(), 0, -1)
		Expect(err).To(MatchError(dynamo.ErrConfig))
	})
})
