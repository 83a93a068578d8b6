package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/galevo/internal/config"
	"github.com/san-kum/galevo/internal/evolve"
	"github.com/san-kum/galevo/internal/galaxy"
)

const (
	metadataFile = "metadata.json"
	configFile   = "config.yaml"
	ledgerFile   = "ledger.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID             string             `json:"id"`
	Timestamp      time.Time          `json:"timestamp"`
	Feedback       string             `json:"feedback"`
	Stepper        string             `json:"stepper"`
	Forest         string             `json:"forest"`
	Snapshots      int                `json:"snapshots"`
	Galaxies       int                `json:"galaxies"`
	GalaxyEvals    uint64             `json:"galaxy_evals"`
	StarburstEvals uint64             `json:"starburst_evals"`
	LostBaryons    float64            `json:"lost_baryons"`
	Elapsed        float64            `json:"elapsed_seconds"`
	Metrics        map[string]float64 `json:"metrics"`
}

// Save writes a finished run under a fresh id: its metadata, the
// configuration it ran with and the baryon ledger.
func (s *Store) Save(cfg *config.Config, res *evolve.Result, ledger *galaxy.TotalBaryon, metrics map[string]float64) (string, error) {
	return s.SaveAs(uuid.NewString(), cfg, res, ledger, metrics)
}

// SaveAs is Save under a caller chosen id, so the run can share its id
// with other sinks such as a SQLite ledger.
func (s *Store) SaveAs(runID string, cfg *config.Config, res *evolve.Result, ledger *galaxy.TotalBaryon, metrics map[string]float64) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("empty run id")
	}
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	forest := cfg.Simulation.Forest
	if forest == "" {
		forest = fmt.Sprintf("synthetic(seed=%d)", cfg.Synth.Seed)
	}
	meta := RunMetadata{
		ID:             runID,
		Timestamp:      time.Now().UTC(),
		Stepper:        cfg.Integrator.Stepper,
		Forest:         forest,
		Snapshots:      res.Snapshots,
		Galaxies:       res.Galaxies,
		GalaxyEvals:    res.GalaxyEvals,
		StarburstEvals: res.StarburstEvals,
		LostBaryons:    res.LostBaryons,
		Elapsed:        res.Elapsed.Seconds(),
		Metrics:        metrics,
	}
	if m := cfg.StellarFeedback.Model; m != nil {
		meta.Feedback = *m
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	if err := writeLedger(filepath.Join(runDir, ledgerFile), ledger); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeLedger(path string, ledger *galaxy.TotalBaryon) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"snapshot"}, ColumnNames()...)
	header = append(header, "lost")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, e := range ledger.Entries() {
		row := []string{strconv.Itoa(e.Snapshot)}
		for _, c := range ledgerColumns {
			row = append(row, formatFloat(c.get(&e)))
		}
		row = append(row, formatFloat(ledger.Lost(e.Snapshot)))
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, newest first. Directories without
// readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadConfig returns the configuration a run was started with.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

// LoadLedger rebuilds the baryon ledger of a run, lost baryons included.
func (s *Store) LoadLedger(runID string) (*galaxy.TotalBaryon, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, ledgerFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s ledger: %w", runID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("run %s ledger: missing header", runID)
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[name] = i
	}
	for _, name := range append([]string{"snapshot", "lost"}, ColumnNames()...) {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("run %s ledger: missing column %q", runID, name)
		}
	}

	ledger := galaxy.NewTotalBaryon()
	for line, record := range records[1:] {
		parse := func(name string) (float64, error) {
			v, err := strconv.ParseFloat(record[index[name]], 64)
			if err != nil {
				return 0, fmt.Errorf("run %s ledger line %d, column %s: %w", runID, line+2, name, err)
			}
			return v, nil
		}

		snap, err := strconv.Atoi(record[index["snapshot"]])
		if err != nil {
			return nil, fmt.Errorf("run %s ledger line %d: %w", runID, line+2, err)
		}
		e := galaxy.LedgerEntry{Snapshot: snap}
		for _, c := range ledgerColumns {
			v, err := parse(c.name)
			if err != nil {
				return nil, err
			}
			c.set(&e, v)
		}
		ledger.Append(e)

		lost, err := parse("lost")
		if err != nil {
			return nil, err
		}
		if lost > 0 {
			ledger.SetLost(snap, lost)
		}
	}
	return ledger, nil
}
