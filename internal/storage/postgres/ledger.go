// Package postgres implements the run ledger on Postgres, for sites where
// several workstations log to one central database.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"fichegen/internal/storage"
)

// Ledger implements storage.Ledger for Postgres.
type Ledger struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg storage.Config) (storage.Ledger, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	// pgxpool.New is lazy; ping so a bad DSN fails here, not mid-batch.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Ledger{pool: pool}, nil
}

func (l *Ledger) Close() { l.pool.Close() }

func (l *Ledger) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS fiche_runs (
	id            TEXT PRIMARY KEY,
	source_file   TEXT NOT NULL,
	output_name   TEXT NOT NULL,
	work_order    TEXT NOT NULL,
	slots_filled  INTEGER NOT NULL,
	cells_written INTEGER NOT NULL,
	generated_at  TIMESTAMPTZ NOT NULL
)`
	if _, err := l.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create fiche_runs: %w", err)
	}
	return nil
}

func (l *Ledger) RecordRun(ctx context.Context, run storage.Run) error {
	const q = `
INSERT INTO fiche_runs (id, source_file, output_name, work_order, slots_filled, cells_written, generated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := l.pool.Exec(ctx, q,
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
SELECT id, source_file, output_name, work_order, slots_filled, cells_written, generated_at
FROM fiche_runs
ORDER BY generated_at DESC
LIMIT $1`
	rows, err := l.pool.Query(ctx, q, limit)
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
