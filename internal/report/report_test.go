package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/galevo/internal/galaxy"
	"github.com/san-kum/galevo/internal/storage"
)

func testLedger() *galaxy.TotalBaryon {
	tb := galaxy.NewTotalBaryon()
	for snap := 0; snap < 5; snap++ {
		m := float64(snap+1) * 1e9
		tb.Append(galaxy.LedgerEntry{
			Snapshot:     snap,
			MStars:       galaxy.BaryonBase{Mass: m, MassMetals: 0.02 * m},
			MCold:        galaxy.BaryonBase{Mass: 2 * m},
			SFRDisk:      float64(snap),
			MajorMergers: snap / 2,
			MinorMergers: snap,
		})
	}
	tb.SetLost(3, 5e7)
	return tb
}

func TestSummary(t *testing.T) {
	out := Summary(storage.RunMetadata{
		ID:          "abc123",
		Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Feedback:    "lagos13",
		Stepper:     "rkck",
		Snapshots:   10,
		Galaxies:    42,
		GalaxyEvals: 1234,
		Elapsed:     1.5,
		Metrics:     map[string]float64{"lost_fraction": 0.01, "evaluation_cost": 7},
	})
	for _, want := range []string{"RUN abc123", "lagos13", "rkck", "synthetic", "42", "1234", "1.5s", "evaluation_cost", "lost_fraction"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "evaluation_cost") > strings.Index(out, "lost_fraction") {
		t.Error("metrics not sorted by name")
	}
	if !strings.Contains(out, "◆") {
		t.Error("metrics not separated from the run details")
	}
	if strings.Contains(Summary(storage.RunMetadata{ID: "bare"}), "◆") {
		t.Error("separator drawn without metrics")
	}
}

func TestLedgerTable(t *testing.T) {
	out, err := LedgerTable(testLedger(), "mstars", "sfr_disk")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"snapshot", "mstars", "sfr_disk", "mergers", "5.000e+09", "2/4", "5.000e+07"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "mcold") {
		t.Error("unrequested column rendered")
	}

	if _, err := LedgerTable(testLedger(), "bogus"); err == nil {
		t.Error("expected error for unknown column")
	}
	if _, err := LedgerTable(galaxy.NewTotalBaryon()); !errors.Is(err, ErrNoData) {
		t.Errorf("empty ledger: got %v, want ErrNoData", err)
	}
}

func TestSeries(t *testing.T) {
	s, err := Series(testLedger(), "mcold")
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != 5 || s[0] != 2e9 || s[4] != 1e10 {
		t.Errorf("unexpected series %v", s)
	}
	if _, err := Series(testLedger(), "nope"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestPlot(t *testing.T) {
	out, err := Plot(testLedger(), PlotOptions{Width: 40, Height: 6, Log: true}, "mstars")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "log10 mstars") {
		t.Errorf("missing caption:\n%s", out)
	}

	out, err = Plot(testLedger(), PlotOptions{Height: 6}, "mstars", "mcold")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "mstars, mcold") {
		t.Errorf("missing caption:\n%s", out)
	}

	if _, err := Plot(testLedger(), PlotOptions{}); err == nil {
		t.Error("expected error without columns")
	}
}

func TestLog10ClampsNonPositive(t *testing.T) {
	got := log10([]float64{0, 10, 100})
	if got[0] != 1 || got[1] != 1 || got[2] != 2 {
		t.Errorf("got %v", got)
	}
	got = log10([]float64{0, 0})
	if got[0] != 0 || got[1] != 0 {
		t.Errorf("all-zero series: got %v", got)
	}
}

func TestProgressBarBounds(t *testing.T) {
	for _, f := range []float64{-1, 0, 0.5, 1, 2} {
		bar := ProgressBar(f, 10)
		if n := strings.Count(bar, "█") + strings.Count(bar, "░"); n != 10 {
			t.Errorf("fraction %v: %d cells, want 10", f, n)
		}
	}
	if Sparkline(nil, 5) != "─────" {
		t.Error("empty sparkline should be a rule")
	}
	if Spinner(3) == Spinner(4) {
		t.Error("spinner frames should differ")
	}
}

func TestSVG(t *testing.T) {
	out, err := SVG(testLedger(), PlotOptions{Log: true}, "mstars", "mcold")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "<?xml") || !strings.HasSuffix(out, "</svg>") {
		t.Error("not a standalone svg document")
	}
	if n := strings.Count(out, "<path"); n != 2 {
		t.Errorf("expected 2 paths, got %d", n)
	}
	for _, want := range []string{`width="640"`, ">mstars<", ">mcold<", "log10 scale"} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	// five snapshots, first point at the left edge
	if !strings.Contains(out, `d="M0.0,`) || strings.Count(out, " L") != 8 {
		t.Errorf("unexpected path data:\n%s", out)
	}

	if _, err := SVG(galaxy.NewTotalBaryon(), PlotOptions{}, "mstars"); !errors.Is(err, ErrNoData) {
		t.Errorf("empty ledger: got %v", err)
	}
	if _, err := SVG(testLedger(), PlotOptions{}); err == nil {
		t.Error("expected error without columns")
	}
}
