package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/san-kum/galevo/internal/evolve"
	"github.com/san-kum/galevo/internal/galaxy"
)

// SQLiteLedger records the ledger entry of every evolved snapshot in a
// SQLite database. Several runs can share one database; rows are keyed by
// run id and snapshot.
type SQLiteLedger struct {
	db    *sql.DB
	mu    sync.Mutex
	runID string
}

var ErrNoRun = errors.New("storage: no run selected")

// OpenSQLite opens (or creates) the database at path and registers runID.
// An empty runID opens the database for listing runs only.
func OpenSQLite(ctx context.Context, path, runID string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Writes are serialised by mu; a single connection also keeps
	// in-memory databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		created TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	cols := make([]string, len(ledgerColumns))
	for i, c := range ledgerColumns {
		cols[i] = c.name + " REAL NOT NULL"
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS ledger (
		run_id TEXT NOT NULL,
		snapshot INTEGER NOT NULL,
		z REAL NOT NULL,
		lost REAL NOT NULL,
		`+strings.Join(cols, ",\n\t\t")+`,
		PRIMARY KEY (run_id, snapshot)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger table: %w", err)
	}

	if runID == "" {
		return &SQLiteLedger{db: db}, nil
	}
	if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO runs (run_id, created) VALUES (?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}
	return &SQLiteLedger{db: db, runID: runID}, nil
}

func (l *SQLiteLedger) RunID() string { return l.runID }

// OnSnapshot implements evolve.Observer.
func (l *SQLiteLedger) OnSnapshot(r evolve.SnapshotReport) error {
	return l.Insert(context.Background(), r.Entry, r.Interval.Z, r.Transfer.LostBaryons)
}

// Insert stores one ledger entry, replacing a previous row for the same
// snapshot.
func (l *SQLiteLedger) Insert(ctx context.Context, e galaxy.LedgerEntry, z, lost float64) (retErr error) {
	if l.runID == "" {
		return ErrNoRun
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	names := []string{"run_id", "snapshot", "z", "lost"}
	args := []any{l.runID, e.Snapshot, z, lost}
	for _, c := range ledgerColumns {
		names = append(names, c.name)
		args = append(args, c.get(&e))
	}
	query := fmt.Sprintf(`INSERT OR REPLACE INTO ledger (%s) VALUES (%s)`,
		strings.Join(names, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "))

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert snapshot %d: %w", e.Snapshot, err)
	}
	return tx.Commit()
}

// Entries returns the ledger of the run in snapshot order.
func (l *SQLiteLedger) Entries(ctx context.Context) (*galaxy.TotalBaryon, error) {
	if l.runID == "" {
		return nil, ErrNoRun
	}
	names := ColumnNames()
	rows, err := l.db.QueryContext(ctx,
		`SELECT snapshot, lost, `+strings.Join(names, ", ")+` FROM ledger WHERE run_id = ? ORDER BY snapshot`, l.runID)
	if err != nil {
		return nil, fmt.Errorf("select ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ledger := galaxy.NewTotalBaryon()
	values := make([]float64, len(names))
	for rows.Next() {
		var (
			e    galaxy.LedgerEntry
			lost float64
		)
		dest := []any{&e.Snapshot, &lost}
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, c := range ledgerColumns {
			c.set(&e, values[i])
		}
		ledger.Append(e)
		if lost > 0 {
			ledger.SetLost(e.Snapshot, lost)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// Runs lists the run ids recorded in the database, oldest first.
func (l *SQLiteLedger) Runs(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY created, run_id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (l *SQLiteLedger) Close() error { return l.db.Close() }
