package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/galevo/internal/report"
	"github.com/san-kum/galevo/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tFEEDBACK\tSTEPPER\tFOREST\tSNAPS\tGALAXIES\tELAPSED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%.2fs\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Feedback,
			run.Stepper,
			run.Forest,
			run.Snapshots,
			run.Galaxies,
			run.Elapsed,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	ledger, err := st.LoadLedger(args[0])
	if err != nil {
		return err
	}

	fmt.Println(report.Summary(*meta))
	table, err := report.LedgerTable(ledger, tableColumns...)
	if err != nil {
		return err
	}
	fmt.Println(table)
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	ledger, err := st.LoadLedger(args[0])
	if err != nil {
		return err
	}

	if plotSVG != "" {
		// terminal cells are too coarse for svg; scale them up
		doc, err := report.SVG(ledger, report.PlotOptions{Width: plotWidth * 10, Height: plotHeight * 30, Log: plotLog}, plotColumns...)
		if err != nil {
			return err
		}
		if err := os.WriteFile(plotSVG, []byte(doc), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", plotSVG)
		return nil
	}

	graph, err := report.Plot(ledger, report.PlotOptions{Width: plotWidth, Height: plotHeight, Log: plotLog}, plotColumns...)
	if err != nil {
		return err
	}
	fmt.Printf("run %s (%s, %d snapshots)\n\n", meta.ID, meta.Feedback, meta.Snapshots)
	fmt.Println(graph)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	if err := st.ExportJSON(w, args[0]); err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(os.Stderr, "exported %s to %s\n", args[0], outPath)
	}
	return nil
}

// sqliteLedger prints the ledger of one run in a sqlite database, or the
// runs it holds when no run id is given.
func sqliteLedger(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	runID := ""
	if len(args) == 2 {
		runID = args[1]
	}

	db, err := storage.OpenSQLite(ctx, args[0], runID)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if runID == "" {
		runs, err := db.Runs(ctx)
		if err != nil {
			return err
		}
		for _, id := range runs {
			fmt.Println(id)
		}
		return nil
	}

	ledger, err := db.Entries(ctx)
	if err != nil {
		return err
	}
	table, err := report.LedgerTable(ledger, tableColumns...)
	if err != nil {
		return err
	}
	fmt.Println(table)
	return nil
}
