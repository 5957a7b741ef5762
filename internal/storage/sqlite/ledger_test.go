package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fichegen/internal/storage"
)

func openTestLedger(t *testing.T) storage.Ledger {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "ledger.db")
	l, err := New(context.Background(), storage.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(l.Close)

	if err := l.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return l
}

// TestLedger_RoundTrip inserts runs and reads them back newest first.
func TestLedger_RoundTrip(t *testing.T) {
	t.Parallel()

	l := openTestLedger(t)
	ctx := context.Background()

	base := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := storage.Run{
			ID:           id,
			SourceFile:   "in/" + id + ".xlsx",
			OutputName:   "Fiche de Contrôle - OF n° OF-" + id + ".xlsx",
			WorkOrder:    "OF-" + id,
			SlotsFilled:  i,
			CellsWritten: 10 + i,
			GeneratedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := l.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	runs, err := l.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Fatalf("order = %s,%s, want run-c,run-b", runs[0].ID, runs[1].ID)
	}
	if !runs[0].GeneratedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("timestamp round-trip lost: %v", runs[0].GeneratedAt)
	}
	if runs[0].CellsWritten != 12 || runs[0].SlotsFilled != 2 {
		t.Fatalf("counters lost: %+v", runs[0])
	}
}

// TestLedger_SameSecondOrdering inserts runs inside the same second with
// fractional parts whose trimmed renderings would mis-sort lexically
// (".5" vs ".52"); newest-first must still hold.
func TestLedger_SameSecondOrdering(t *testing.T) {
	t.Parallel()

	l := openTestLedger(t)
	ctx := context.Background()

	base := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	runs := []struct {
		id   string
		nsec time.Duration
	}{
		{"run-mid", 500 * time.Millisecond},
		{"run-new", 520 * time.Millisecond},
		{"run-old", 50 * time.Millisecond},
	}
	for _, r := range runs {
		err := l.RecordRun(ctx, storage.Run{
			ID:          r.id,
			SourceFile:  "in/" + r.id + ".xlsx",
			OutputName:  r.id + ".xlsx",
			WorkOrder:   "OF-1",
			GeneratedAt: base.Add(r.nsec),
		})
		if err != nil {
			t.Fatalf("RecordRun %s: %v", r.id, err)
		}
	}

	got, err := l.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	want := []string{"run-new", "run-mid", "run-old"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d = %s, want %s (full order: %v)", i, got[i].ID, id, got)
		}
	}
}

// TestLedger_EnsureSchemaIdempotent runs schema creation twice.
func TestLedger_EnsureSchemaIdempotent(t *testing.T) {
	t.Parallel()

	l := openTestLedger(t)
	if err := l.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}
