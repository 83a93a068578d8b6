// Package report renders finished runs for the terminal: a run summary,
// a ledger table and ascii plots of ledger quantities.
package report

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/galevo/internal/galaxy"
	"github.com/san-kum/galevo/internal/storage"
)

var ErrNoData = errors.New("report: no ledger data")

// Summary renders the metadata of a stored run as a labelled panel.
func Summary(meta storage.RunMetadata) string {
	var s strings.Builder
	s.WriteString(Header.Render("RUN "+meta.ID) + "\n")
	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("Started", meta.Timestamp.Format(time.RFC3339))
	row("Feedback", meta.Feedback)
	row("Stepper", meta.Stepper)
	if meta.Forest != "" {
		row("Forest", meta.Forest)
	} else {
		row("Forest", "synthetic")
	}
	row("Snapshots", strconv.Itoa(meta.Snapshots))
	row("Galaxies", strconv.Itoa(meta.Galaxies))
	row("Galaxy evals", strconv.FormatUint(meta.GalaxyEvals, 10))
	row("Starburst evals", strconv.FormatUint(meta.StarburstEvals, 10))
	row("Lost baryons", formatMass(meta.LostBaryons))
	row("Elapsed", (time.Duration(meta.Elapsed * float64(time.Second))).Round(time.Millisecond).String())

	if len(meta.Metrics) > 0 {
		s.WriteString(Separator(34) + "\n" + Title.Render("Metrics") + "\n")
		for _, name := range sortedKeys(meta.Metrics) {
			row(name, strconv.FormatFloat(meta.Metrics[name], 'g', 6, 64))
		}
	}
	return Panel.Render(strings.TrimRight(s.String(), "\n"))
}

// TableColumns are the ledger quantities shown by LedgerTable when no
// columns are requested.
var TableColumns = []string{"mstars", "mcold", "mhot_halo", "mejected_halo", "mbh", "sfr_disk", "sfr_bulge"}

// LedgerTable renders one row per snapshot. Unknown column names are an
// error.
func LedgerTable(ledger *galaxy.TotalBaryon, columns ...string) (string, error) {
	if len(columns) == 0 {
		columns = TableColumns
	}
	for _, c := range columns {
		if _, ok := storage.Value(galaxy.LedgerEntry{}, c); !ok {
			return "", fmt.Errorf("report: unknown ledger column %q", c)
		}
	}
	entries := ledger.Entries()
	if len(entries) == 0 {
		return "", ErrNoData
	}

	headers := append([]string{"snapshot"}, columns...)
	headers = append(headers, "mergers", "lost")
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{strconv.Itoa(e.Snapshot)}
		for _, c := range columns {
			v, _ := storage.Value(e, c)
			row = append(row, formatMass(v))
		}
		row = append(row,
			fmt.Sprintf("%d/%d", e.MajorMergers, e.MinorMergers),
			formatMass(ledger.Lost(e.Snapshot)),
		)
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(Subtle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return Title.Padding(0, 1)
			case col == 0:
				return MetricLabel.Width(0).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
		})
	return t.Render(), nil
}

type PlotOptions struct {
	Width  int
	Height int
	// Log plots log10 of the values; non-positive values are clamped to
	// the smallest positive value in the series.
	Log bool
}

// Series extracts one ledger quantity in snapshot order.
func Series(ledger *galaxy.TotalBaryon, column string) ([]float64, error) {
	entries := ledger.Entries()
	if len(entries) == 0 {
		return nil, ErrNoData
	}
	out := make([]float64, len(entries))
	for i, e := range entries {
		v, ok := storage.Value(e, column)
		if !ok {
			return nil, fmt.Errorf("report: unknown ledger column %q", column)
		}
		out[i] = v
	}
	return out, nil
}

// Plot draws the evolution of the named ledger columns over snapshots.
func Plot(ledger *galaxy.TotalBaryon, opts PlotOptions, columns ...string) (string, error) {
	if len(columns) == 0 {
		return "", errors.New("report: no columns to plot")
	}
	series := make([][]float64, len(columns))
	for i, c := range columns {
		s, err := Series(ledger, c)
		if err != nil {
			return "", err
		}
		if opts.Log {
			s = log10(s)
		}
		series[i] = s
	}

	caption := strings.Join(columns, ", ")
	if opts.Log {
		caption = "log10 " + caption
	}
	graphOpts := []asciigraph.Option{
		asciigraph.Height(max(opts.Height, 4)),
		asciigraph.Width(max(opts.Width, 0)),
		asciigraph.Caption(caption),
		asciigraph.Precision(2),
	}
	if len(series) == 1 {
		return asciigraph.Plot(series[0], graphOpts...), nil
	}
	colors := []asciigraph.AnsiColor{asciigraph.Green, asciigraph.Blue, asciigraph.Red, asciigraph.Yellow, asciigraph.Cyan}
	seriesColors := make([]asciigraph.AnsiColor, len(series))
	for i := range series {
		seriesColors[i] = colors[i%len(colors)]
	}
	graphOpts = append(graphOpts, asciigraph.SeriesColors(seriesColors...))
	return asciigraph.PlotMany(series, graphOpts...), nil
}

func log10(values []float64) []float64 {
	floor := math.Inf(1)
	for _, v := range values {
		if v > 0 {
			floor = min(floor, v)
		}
	}
	if math.IsInf(floor, 1) {
		floor = 1
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Log10(max(v, floor))
	}
	return out
}

func formatMass(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'e', 3, 64)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
