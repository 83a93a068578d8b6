package storage

import "github.com/san-kum/galevo/internal/galaxy"

// column maps one ledger field onto a CSV column and a SQLite column.
type column struct {
	name string
	get  func(*galaxy.LedgerEntry) float64
	set  func(*galaxy.LedgerEntry, float64)
}

func massColumn(name string, field func(*galaxy.LedgerEntry) *galaxy.BaryonBase) []column {
	return []column{
		{
			name: name,
			get:  func(e *galaxy.LedgerEntry) float64 { return field(e).Mass },
			set:  func(e *galaxy.LedgerEntry, v float64) { field(e).Mass = v },
		},
		{
			name: name + "_z",
			get:  func(e *galaxy.LedgerEntry) float64 { return field(e).MassMetals },
			set:  func(e *galaxy.LedgerEntry, v float64) { field(e).MassMetals = v },
		},
	}
}

func countColumn(name string, field func(*galaxy.LedgerEntry) *int) column {
	return column{
		name: name,
		get:  func(e *galaxy.LedgerEntry) float64 { return float64(*field(e)) },
		set:  func(e *galaxy.LedgerEntry, v float64) { *field(e) = int(v) },
	}
}

func rateColumn(name string, field func(*galaxy.LedgerEntry) *float64) column {
	return column{
		name: name,
		get:  func(e *galaxy.LedgerEntry) float64 { return *field(e) },
		set:  func(e *galaxy.LedgerEntry, v float64) { *field(e) = v },
	}
}

var ledgerColumns = func() []column {
	var cols []column
	for _, m := range []struct {
		name  string
		field func(*galaxy.LedgerEntry) *galaxy.BaryonBase
	}{
		{"mstars", func(e *galaxy.LedgerEntry) *galaxy.BaryonBase { return &e.MStars }},
		{"mstars_burst_mergers", func(e *galaxy.LedgerEntry) *galaxy.BaryonBase { return &e.MStarsBurstMergers }},
		{"mstars_burst_diskins", func(e *galaxy.LedgerEntry) *galaxy.BaryonBase { return &e.MStarsBurstDiskIns }},
		{"mcold", func(e *galaxy.LedgerEntry) *galaxy.BaryonBase { return &e.MCold }},
		{"mhi", func(e *galaxy.LedgerEntry) *galaxy.BaryonBase { return &e.MHI }},
		{"mh2", func(e *galaxy.LedgerEntry) *galaxy.BaryonBase { return &e.MH2 }},
		{"mbh", func(e *galaxy.LedgerEntry) *galaxy.BaryonBase { return &e.MBH }},
		{"mhot_halo", func(e *galaxy.LedgerEntry) *galaxy.BaryonBase { return &e.MHotHalo }},
		{"mcold_halo", func(e *galaxy.LedgerEntry) *galaxy.BaryonBase { return &e.MColdHalo }},
		{"mejected_halo", func(e *galaxy.LedgerEntry) *galaxy.BaryonBase { return &e.MEjectedHalo }},
		{"mdm", func(e *galaxy.LedgerEntry) *galaxy.BaryonBase { return &e.MDM }},
	} {
		cols = append(cols, massColumn(m.name, m.field)...)
	}
	return append(cols,
		rateColumn("sfr_disk", func(e *galaxy.LedgerEntry) *float64 { return &e.SFRDisk }),
		rateColumn("sfr_bulge", func(e *galaxy.LedgerEntry) *float64 { return &e.SFRBulge }),
		countColumn("major_mergers", func(e *galaxy.LedgerEntry) *int { return &e.MajorMergers }),
		countColumn("minor_mergers", func(e *galaxy.LedgerEntry) *int { return &e.MinorMergers }),
		countColumn("disk_instabilities", func(e *galaxy.LedgerEntry) *int { return &e.DiskInstabilities }),
	)
}()

// ColumnNames lists the ledger quantities in file order, without the
// snapshot and lost columns.
func ColumnNames() []string {
	names := make([]string, len(ledgerColumns))
	for i, c := range ledgerColumns {
		names[i] = c.name
	}
	return names
}

// Value returns the named ledger quantity of e.
func Value(e galaxy.LedgerEntry, name string) (float64, bool) {
	for _, c := range ledgerColumns {
		if c.name == name {
			return c.get(&e), true
		}
	}
	return 0, false
}
