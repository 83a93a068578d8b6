package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/san-kum/galevo/internal/config"
	"github.com/san-kum/galevo/internal/evolve"
	"github.com/san-kum/galevo/internal/galaxy"
)

func sampleLedger() *galaxy.TotalBaryon {
	ledger := galaxy.NewTotalBaryon()
	for snap := 3; snap < 6; snap++ {
		e := galaxy.LedgerEntry{Snapshot: snap}
		e.MStars = galaxy.BaryonBase{Mass: 1.234567891e9 * float64(snap), MassMetals: 2.5e7}
		e.MHotHalo.Mass = 4e10
		e.MDM.Mass = 3.3e12
		e.SFRDisk = 0.125
		e.SFRBulge = 1.0 / 3.0
		e.MajorMergers = snap
		e.DiskInstabilities = 1
		ledger.Append(e)
	}
	ledger.SetLost(5, 7.5e8)
	return ledger
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg := config.GetPreset("galform")
	res := &evolve.Result{Snapshots: 3, Galaxies: 42, GalaxyEvals: 1000, LostBaryons: 7.5e8, Elapsed: 2 * time.Second}
	ledger := sampleLedger()

	runID, err := st.Save(cfg, res, ledger, map[string]float64{"stellar_growth": 1.5})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Feedback != "GALFORM" || meta.Stepper != "rkck" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.Galaxies != 42 || meta.Elapsed != 2 || meta.Metrics["stellar_growth"] != 1.5 {
		t.Errorf("run summary not stored: %+v", meta)
	}
	if meta.Forest != "synthetic(seed=42)" {
		t.Errorf("unexpected forest %q", meta.Forest)
	}

	loaded, err := st.LoadLedger(runID)
	if err != nil {
		t.Fatalf("load ledger failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Entries(), ledger.Entries()) {
		t.Errorf("ledger mismatch:\n%+v\n%+v", loaded.Entries(), ledger.Entries())
	}
	if loaded.Lost(5) != 7.5e8 || len(loaded.LostSnapshots()) != 1 {
		t.Errorf("lost baryons not restored: %v", loaded.LostSnapshots())
	}

	saved, err := st.LoadConfig(runID)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if !reflect.DeepEqual(saved, cfg) {
		t.Error("stored configuration differs")
	}
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected no runs, got %v (%v)", runs, err)
	}

	cfg := config.DefaultConfig()
	first, err := st.Save(cfg, &evolve.Result{}, galaxy.NewTotalBaryon(), nil)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	second, err := st.Save(cfg, &evolve.Result{}, galaxy.NewTotalBaryon(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second || runs[1].ID != first {
		t.Errorf("expected newest first, got %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestLoadLedger_Malformed(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	runDir := filepath.Join(dir, "bad")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"missing column", "snapshot,mstars\n1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(filepath.Join(runDir, ledgerFile), []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := st.LoadLedger("bad"); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := st.LoadLedger("absent"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(config.DefaultConfig(), &evolve.Result{Snapshots: 3}, sampleLedger(), nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatal(err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data.Run.ID != runID || len(data.Ledger) != 3 {
		t.Errorf("unexpected export: run %s, %d entries", data.Run.ID, len(data.Ledger))
	}
	if data.Lost[5] != 7.5e8 {
		t.Errorf("expected lost baryons at snapshot 5, got %v", data.Lost)
	}
}

func TestValue(t *testing.T) {
	e := sampleLedger().Entries()[0]
	if v, ok := Value(e, "mstars"); !ok || v != e.MStars.Mass {
		t.Errorf("mstars: %g %v", v, ok)
	}
	if v, ok := Value(e, "major_mergers"); !ok || v != 3 {
		t.Errorf("major_mergers: %g %v", v, ok)
	}
	if _, ok := Value(e, "mass_of_everything"); ok {
		t.Error("expected unknown column")
	}
}

func TestStoreSaveAs(t *testing.T) {
	st := New(t.TempDir())
	id, err := st.SaveAs("fixed-id", config.DefaultConfig(), &evolve.Result{Snapshots: 2}, sampleLedger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if id != "fixed-id" {
		t.Errorf("id = %q", id)
	}
	meta, err := st.Load("fixed-id")
	if err != nil {
		t.Fatal(err)
	}
	if meta.Snapshots != 2 {
		t.Errorf("snapshots = %d, want 2", meta.Snapshots)
	}
	if _, err := st.SaveAs("", config.DefaultConfig(), &evolve.Result{}, sampleLedger(), nil); err == nil {
		t.Error("expected error for empty id")
	}
}
