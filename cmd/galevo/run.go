package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/san-kum/galevo/internal/evolve"
	"github.com/san-kum/galevo/internal/experiment"
	"github.com/san-kum/galevo/internal/forest"
	"github.com/san-kum/galevo/internal/metrics"
	"github.com/san-kum/galevo/internal/storage"
	"github.com/san-kum/galevo/internal/tui"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	var logOut io.Writer = os.Stderr
	if live {
		// the live view owns the terminal
		f, err := os.OpenFile(filepath.Join(dataDir, "galevo.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	logger, runID, err := newRunLogger(logOut)
	if err != nil {
		return err
	}

	f, err := experiment.LoadForest(cfg)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, f, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	exp.AddObserver(metrics.NewCollector(reg))
	ms := []metrics.Metric{metrics.NewEvaluationCost(), metrics.NewLostFraction(), metrics.NewStellarGrowth()}
	exp.AddObserver(metrics.Observer(ms...))

	if metricsAddr != "" {
		shutdown := serveMetrics(metricsAddr, reg, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}

	if sqlitePath != "" {
		ledger, err := storage.OpenSQLite(ctx, sqlitePath, runID)
		if err != nil {
			return err
		}
		defer func() { _ = ledger.Close() }()
		exp.AddObserver(ledger)
	}

	var res *evolve.Result
	if live {
		title := fmt.Sprintf("galevo %s", *cfg.StellarFeedback.Model)
		res, err = tui.Run(ctx, title, exp.Intervals(), func(ctx context.Context, obs evolve.Observer) (*evolve.Result, error) {
			exp.AddObserver(obs)
			return exp.Run(ctx)
		})
	} else {
		fmt.Printf("evolving %d subhalos over %d snapshots...\n", f.SubhaloCount(), exp.Intervals())
		res, err = exp.Run(ctx)
	}
	if err != nil {
		return err
	}

	values := make(map[string]float64, len(ms))
	for _, m := range ms {
		values[m.Name()] = m.Value()
	}
	if _, err := st.SaveAs(runID, cfg, res, exp.Ledger(), values); err != nil {
		return err
	}
	logger.Info("run finished",
		slog.Int("snapshots", res.Snapshots),
		slog.Int("galaxies", res.Galaxies),
		slog.Duration("elapsed", res.Elapsed),
	)

	fmt.Printf("completed in %v\n", res.Elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("snapshots: %d  galaxies: %d\n", res.Snapshots, res.Galaxies)
	fmt.Println("\nmetrics:")
	for _, m := range ms {
		fmt.Printf("  %s: %.6g\n", m.Name(), m.Value())
	}
	return nil
}

// newRunLogger tags every record, including those of the engine and the
// evolver, with a fresh run id.
func newRunLogger(w io.Writer) (*slog.Logger, string, error) {
	logger, err := newLogger(w)
	if err != nil {
		return nil, "", err
	}
	runID := uuid.NewString()
	return logger.With(slog.String("run_id", runID)), runID, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.String("addr", addr), slog.Any("error", err))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", addr))
	return srv.Shutdown
}

func writeSynthetic(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := forest.Generate(cfg.Synth)
	if err != nil {
		return err
	}
	// catch an unusable tree before writing it
	if _, err := forest.Assemble(cat); err != nil {
		return err
	}
	if err := cat.Save(outPath); err != nil {
		return err
	}
	fmt.Printf("wrote %d subhalos over %d snapshots to %s\n", len(cat.Subhalos), len(cat.Redshifts), outPath)
	return nil
}

func benchSteppers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(io.Discard)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()

	fmt.Printf("benchmarking %s feedback\n\n", *cfg.StellarFeedback.Model)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEPPER\tWORKERS\tSNAPSHOTS\tEVALS\tTIME\tEVALS/SEC\tMSTARS")

	for _, name := range reg.ListSteppers() {
		for _, n := range []int{1, 2, 4, 8} {
			c := *cfg
			c.Integrator.Stepper = name
			c.Simulation.Workers = n

			// galaxies live on the forest, so every run needs a fresh one
			f, err := experiment.LoadForest(&c)
			if err != nil {
				return err
			}
			exp, err := experiment.New(&c, f, logger)
			if err != nil {
				return err
			}
			res, err := exp.Run(cmd.Context())
			if err != nil {
				return err
			}

			mstars := 0.0
			if entries := exp.Ledger().Entries(); len(entries) > 0 {
				mstars = entries[len(entries)-1].MStars.Mass
			}
			evals := res.GalaxyEvals + res.StarburstEvals
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%v\t%.0f\t%.4e\n",
				name, n, res.Snapshots, evals, res.Elapsed.Round(time.Millisecond),
				float64(evals)/res.Elapsed.Seconds(), mstars)
		}
	}
	return w.Flush()
}
