package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/galevo/internal/galaxy"
)

type ExportData struct {
	Run    RunMetadata          `json:"run"`
	Ledger []galaxy.LedgerEntry `json:"ledger"`
	Lost   map[int]float64      `json:"lost,omitempty"`
}

// ExportJSON writes a stored run and its ledger as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	ledger, err := s.LoadLedger(runID)
	if err != nil {
		return err
	}

	data := ExportData{Run: *meta, Ledger: ledger.Entries()}
	if snaps := ledger.LostSnapshots(); len(snaps) > 0 {
		data.Lost = make(map[int]float64, len(snaps))
		for _, snap := range snaps {
			data.Lost[snap] = ledger.Lost(snap)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
