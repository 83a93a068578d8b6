package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/galevo/internal/config"
)

var (
	dataDir  string
	logLevel string

	configFile  string
	preset      string
	forestPath  string
	stepper     string
	workers     int
	seed        uint64
	live        bool
	metricsAddr string
	sqlitePath  string

	outPath string

	plotColumns []string
	plotWidth   int
	plotHeight  int
	plotLog     bool
	plotSVG     string

	tableColumns []string

	gridParams   []string
	targetMStars float64
	jobs         int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "galevo",
		Short:         "semi-analytic galaxy evolution over merger trees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".galevo", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "evolve galaxies over a merger tree forest",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "show live progress")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	runCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "also record the ledger in this sqlite database")

	synthCmd := &cobra.Command{
		Use:   "synth",
		Short: "write a synthetic merger tree catalogue",
		Args:  cobra.NoArgs,
		RunE:  writeSynthetic,
	}
	addConfigFlags(synthCmd)
	synthCmd.Flags().StringVarP(&outPath, "out", "o", "forest.yaml", "catalogue path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "summarise a run and its baryon ledger",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().StringSliceVar(&tableColumns, "columns", nil, "ledger columns to show")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot ledger quantities over snapshots",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotColumns, "columns", []string{"mstars"}, "ledger columns to plot")
	plotCmd.Flags().IntVar(&plotWidth, "width", 60, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")
	plotCmd.Flags().BoolVar(&plotLog, "log", true, "plot log10 of the values")
	plotCmd.Flags().StringVar(&plotSVG, "svg", "", "write the plot to this svg file instead")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	ledgerCmd := &cobra.Command{
		Use:   "ledger [database] [run_id]",
		Short: "print a ledger recorded in a sqlite database",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  sqliteLedger,
	}
	ledgerCmd.Flags().StringSliceVar(&tableColumns, "columns", nil, "ledger columns to show")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark steppers and worker counts",
		Args:  cobra.NoArgs,
		RunE:  benchSteppers,
	}
	addConfigFlags(benchCmd)

	calibrateCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "grid search model parameters against a target stellar mass",
		Long: "calibrate evolves the forest once per grid point and ranks the runs by the\n" +
			"distance in dex between their final stellar mass and --target-mstars.\n\n" +
			"  galevo calibrate --preset quick --param beta_disk=1,2,4 --param v_sn=100,200",
		Args: cobra.NoArgs,
		RunE: calibrate,
	}
	addConfigFlags(calibrateCmd)
	calibrateCmd.Flags().StringArrayVar(&gridParams, "param", nil, "parameter grid as name=v1,v2,... (repeatable)")
	calibrateCmd.Flags().Float64Var(&targetMStars, "target-mstars", 1e11, "target total stellar mass (Msun)")
	calibrateCmd.Flags().IntVar(&jobs, "jobs", 0, "runs evaluated at once (0 = GOMAXPROCS)")
	_ = calibrateCmd.MarkFlagRequired("param")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
		},
	}

	rootCmd.AddCommand(runCmd, synthCmd, listCmd, showCmd, plotCmd, exportCmd, ledgerCmd, benchCmd, calibrateCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&forestPath, "forest", "", "merger tree catalogue (default synthetic)")
	cmd.Flags().StringVar(&stepper, "stepper", config.DefaultStepper, "runge-kutta tableau")
	cmd.Flags().IntVar(&workers, "workers", 0, "halo workers (0 = GOMAXPROCS)")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "synthetic forest seed")
}

// loadConfig applies, in order: defaults or preset, config file, then
// any flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("forest") {
		cfg.Simulation.Forest = forestPath
	}
	if flags.Changed("stepper") {
		cfg.Integrator.Stepper = stepper
	}
	if flags.Changed("workers") {
		cfg.Simulation.Workers = workers
	}
	if flags.Changed("seed") {
		cfg.Synth.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
