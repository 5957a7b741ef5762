// Package mssql implements the run ledger on Microsoft SQL Server, the
// database many manufacturing ERPs already run; fiche runs land next to the
// work orders they belong to.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"fichegen/internal/storage"
)

// Ledger implements storage.Ledger for SQL Server via database/sql and the
// "sqlserver" driver.
type Ledger struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Ledger, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
	// SQL Server has no CREATE TABLE IF NOT EXISTS; guard via object_id.
	const ddl = `
IF OBJECT_ID(N'fiche_runs', N'U') IS NULL
CREATE TABLE fiche_runs (
	id            NVARCHAR(64) PRIMARY KEY,
	source_file   NVARCHAR(1024) NOT NULL,
	output_name   NVARCHAR(1024) NOT NULL,
	work_order    NVARCHAR(256) NOT NULL,
	slots_filled  INT NOT NULL,
	cells_written INT NOT NULL,
	generated_at  DATETIMEOFFSET NOT NULL
)`
	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create fiche_runs: %w", err)
	}
	return nil
}

func (l *Ledger) RecordRun(ctx context.Context, run storage.Run) error {
	const q = `
INSERT INTO fiche_runs (id, source_file, output_name, work_order, slots_filled, cells_written, generated_at)
VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7)`
	_, err := l.db.ExecContext(ctx, q,
		run.ID, run.SourceFile, run.OutputName, run.WorkOrder,
		run.SlotsFilled, run.CellsWritten, run.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fiche_run %s: %w", run.ID, err)
	}
	return nil
}

func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]storage.Run, error) {
	const q = `
SELECT TOP (@p1) id, source_file, output_name, work_order, slots_filled, cells_written, generated_at
FROM fiche_runs
ORDER BY generated_at DESC`
	rows, err := l.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("select fiche_runs: %w", err)
	}
	defer rows.Close()

	var out []storage.Run
	for rows.Next() {
		var r storage.Run
		if err := rows.Scan(&r.ID, &r.SourceFile, &r.OutputName, &r.WorkOrder, &r.SlotsFilled, &r.CellsWritten, &r.GeneratedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ storage.Ledger = (*Ledger)(nil)
