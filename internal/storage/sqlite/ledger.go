// Package sqlite implements the run ledger on a local SQLite file. This is
// the default backend: a single workstation generating fiches needs no
// server, just a .db file next to the output directory.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"fichegen/internal/storage"
)

// Ledger implements storage.Ledger for SQLite.
//
// SQLite has no native timestamp type; GeneratedAt is stored as text.
// The layout keeps all nine fractional digits: RecentRuns orders rows by
// comparing these strings, and trimming trailing zeros (as RFC3339Nano
// does) would make ".5Z" sort after ".52Z". Fixed width keeps lexical
// order equal to chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Ledger struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Ledger, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() { _ = l.db.Close() }

func (l *Ledger) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS fiche_runs (
	id            TEXT PRIMARY KEY,
	source_file   TEXT NOT NULL,
	output_name   TEXT NOT NULL,
	work_order    TEXT NOT NULL,
	slots_filled  INTEGER NOT NULL,
	cells_written INTEGER NOT NULL,
	generated_at  TEXT NOT NULL
)`
	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create fiche_runs: %w", err)
	}
	return nil
}

func (l *Ledger) RecordRun(ctx context.Context, run storage.Run) error {
	const q = `
INSERT INTO fiche_runs (id, source_file, output_name, work_order, slots_filled, cells_written, generated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := l.db.ExecContext(ctx, q,
		run.ID, run.SourceFile, run.OutputName, run.WorkOrder,
		run.SlotsFilled, run.CellsWritten,
		run.GeneratedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert fiche_run %s: %w", run.ID, err)
	}
	return nil
}

func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]storage.Run, error) {
	const q = `
SELECT id, source_file, output_name, work_order, slots_filled, cells_written, generated_at
FROM fiche_runs
ORDER BY generated_at DESC
LIMIT ?`
	rows, err := l.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("select fiche_runs: %w", err)
	}
	defer rows.Close()

	var out []storage.Run
	for rows.Next() {
		var r storage.Run
		var ts string
		if err := rows.Scan(&r.ID, &r.SourceFile, &r.OutputName, &r.WorkOrder, &r.SlotsFilled, &r.CellsWritten, &ts); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("bad generated_at %q for run %s: %w", ts, r.ID, err)
		}
		r.GeneratedAt = t
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ storage.Ledger = (*Ledger)(nil)
