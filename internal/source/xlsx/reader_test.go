package xlsx

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// writeSource builds an OCR-style source workbook in a temp dir.
func writeSource(t *testing.T, general, lines [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	put := func(sheet string, rows [][]any) {
		if rows == nil {
			return
		}
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("new sheet %s: %v", sheet, err)
		}
		for r, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	put(GeneralSheet, general)
	put(LinesSheet, lines)

	path := filepath.Join(t.TempDir(), "source.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save source: %v", err)
	}
	return path
}

func TestReadRecordSet(t *testing.T) {
	t.Parallel()

	path := writeSource(t,
		[][]any{
			{"Numéro d' OF", "Nom du client", "Matière"},
			{"OF-2417", "ACME SARL", "AU4G"},
			{"OF-9999", "ignored second row", "X"},
		},
		[][]any{
			{"Côtes PLAN", "Outil de mesure"},
			{"12.5", "Pied à coulisse"},
			{"8.2", ""},
		},
	)

	set, err := ReadRecordSet(path)
	if err != nil {
		t.Fatalf("ReadRecordSet: %v", err)
	}

	if v, _ := set.General.Get("Numéro d' OF"); v != "OF-2417" {
		t.Fatalf("general OF = %v, want first row only", v)
	}
	if len(set.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(set.Lines))
	}
	if v, _ := set.Lines[0].Get("Côtes PLAN"); v != 12.5 {
		t.Fatalf("line 0 cote = %v (%T), want 12.5", v, v)
	}
	if _, ok := set.Lines[1].Get("Outil de mesure"); ok {
		t.Fatal("empty tool cell should be absent")
	}
}

// TestReadRecordSet_EmptyGeneral keeps General nil so the mapper can raise
// its fatal missing-data condition.
func TestReadRecordSet_EmptyGeneral(t *testing.T) {
	t.Parallel()

	path := writeSource(t,
		[][]any{{"Numéro d' OF", "Nom du client"}},
		[][]any{{"Côtes PLAN"}, {"1.0"}},
	)

	set, err := ReadRecordSet(path)
	if err != nil {
		t.Fatalf("ReadRecordSet: %v", err)
	}
	if set.General != nil {
		t.Fatalf("General = %v, want nil", set.General)
	}
}

// TestReadRecordSet_MissingLinesSheet tolerates exports without a lines
// sheet: zero line records, no error.
func TestReadRecordSet_MissingLinesSheet(t *testing.T) {
	t.Parallel()

	path := writeSource(t,
		[][]any{{"Numéro d' OF"}, {"OF-1"}},
		nil,
	)

	set, err := ReadRecordSet(path)
	if err != nil {
		t.Fatalf("ReadRecordSet: %v", err)
	}
	if len(set.Lines) != 0 {
		t.Fatalf("lines = %d, want 0", len(set.Lines))
	}
}

// TestReadRecordSet_MissingGeneralSheet rejects workbooks that are not OCR
// exports at all.
func TestReadRecordSet_MissingGeneralSheet(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	defer f.Close()
	path := filepath.Join(t.TempDir(), "other.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := ReadRecordSet(path); err == nil {
		t.Fatal("expected error for missing general sheet")
	}
}
