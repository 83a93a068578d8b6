package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/galevo/internal/optim"
)

// parseGrid reads name=v1,v2,... specs in flag order.
func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("invalid --param %q, want name=v1,v2,...", spec)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("--param %s: %w", name, err)
			}
			values = append(values, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func calibrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(gridParams)
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	g.WithJobs(jobs).WithLogger(logger)

	fmt.Printf("evaluating %d grid points against M* = %.3e Msun\n\n", len(g.Points()), targetMStars)
	best, all, err := g.Search(cmd.Context(), cfg, optim.TargetStellarMass(targetMStars))
	if err != nil {
		return err
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score < all[j].Score })
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\tSCORE (DEX)\tEVALS\tSTATUS")
	for _, p := range all {
		var row []string
		for _, name := range names {
			row = append(row, strconv.FormatFloat(p.Params[name], 'g', -1, 64))
		}
		status, evals, score := "ok", "-", "-"
		if p.Err != nil {
			status = p.Err.Error()
		} else {
			evals = strconv.FormatUint(p.Result.GalaxyEvals+p.Result.StarburstEvals, 10)
			if !math.IsInf(p.Score, 1) {
				score = fmt.Sprintf("%.4f", p.Score)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", strings.Join(row, "\t"), score, evals, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nbest:")
	for _, name := range names {
		fmt.Printf(" %s=%g", name, best.Params[name])
	}
	fmt.Printf(" (%.4f dex)\n", best.Score)
	return nil
}
