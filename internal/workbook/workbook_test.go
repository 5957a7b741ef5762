package workbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// writeTemplate builds a minimal fiche template on disk: the named sheet
// with one merged header band M1:R1.
func writeTemplate(t *testing.T, sheet string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheet); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	if err := f.MergeCell(sheet, "M1", "R1"); err != nil {
		t.Fatalf("merge: %v", err)
	}

	path := filepath.Join(t.TempDir(), "template.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save template: %v", err)
	}
	return path
}

func TestOpen_MissingSheet(t *testing.T) {
	t.Parallel()

	path := writeTemplate(t, "Fiche de contrôle")
	if _, err := Open(path, "Autre feuille"); err == nil {
		t.Fatal("expected error for missing sheet")
	}
}

func TestOpen_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Open(filepath.Join(t.TempDir(), "absent.xlsx"), "x"); err == nil {
		t.Fatal("expected error for missing template file")
	}
}

// TestWorkbook_MergedRegionsAndWrite round-trips a write through the merged
// band: writing at the anchor must be readable back from the file.
func TestWorkbook_MergedRegionsAndWrite(t *testing.T) {
	t.Parallel()

	const sheet = "Fiche de contrôle"
	path := writeTemplate(t, sheet)

	w, err := Open(path, sheet)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	regions, err := w.MergedRegions()
	if err != nil {
		t.Fatalf("MergedRegions: %v", err)
	}
	if len(regions) != 1 || regions[0].Anchor() != "M1" {
		t.Fatalf("regions = %+v, want single M1:R1", regions)
	}

	if err := w.SetCell("M1", "ACME"); err != nil {
		t.Fatalf("SetCell: %v", err)
	}

	b, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	out := filepath.Join(t.TempDir(), "out.xlsx")
	if err := os.WriteFile(out, b, 0o600); err != nil {
		t.Fatalf("write out: %v", err)
	}

	check, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer check.Close()
	got, err := check.GetCellValue(sheet, "M1")
	if err != nil || got != "ACME" {
		t.Fatalf("M1 = (%q, %v), want ACME", got, err)
	}
}
