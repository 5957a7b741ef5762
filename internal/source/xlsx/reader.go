// Package xlsx reads an OCR-exported workbook into the record model the
// fiche mapper consumes.
package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"fichegen/internal/record"
)

// Sheet names of the OCR export ("Dossier Technique" structure).
const (
	GeneralSheet = "Dossier Technique_general"
	LinesSheet   = "Dossier Technique_lines"
)

// ReadRecordSet opens the OCR workbook at path and extracts one record set.
//
// Semantics:
//   - The general sheet must exist; a source file without it is not an OCR
//     export and is rejected.
//   - Only the first data row of the general sheet is consumed. Multi-row
//     general sheets are a single-record contract: one invocation, one
//     record. When the sheet has headers but no data rows, Set.General is
//     nil and the mapper surfaces the fatal missing-data condition.
//   - The lines sheet is optional; a missing or empty one yields zero line
//     records (the slot bank stays blank, which is valid output).
func ReadRecordSet(path string) (*record.Set, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open source workbook %s: %w", path, err)
	}
	defer f.Close()

	set := &record.Set{}

	gen, err := f.GetRows(GeneralSheet)
	if err != nil {
		return nil, fmt.Errorf("source %s: sheet %q: %w", path, GeneralSheet, err)
	}
	if recs := sheetRecords(gen, 1); len(recs) > 0 {
		set.General = recs[0]
	}

	lines, err := f.GetRows(LinesSheet)
	if err == nil {
		set.Lines = sheetRecords(lines, -1)
	}

	return set, nil
}

// sheetRecords turns raw sheet rows (header row first) into records,
// keeping at most limit data rows; limit < 0 means all.
func sheetRecords(rows [][]string, limit int) []record.Record {
	if len(rows) < 2 {
		return nil
	}

	headers := rows[0]
	var recs []record.Record
	for _, row := range rows[1:] {
		if limit >= 0 && len(recs) >= limit {
			break
		}
		values := make([]any, len(row))
		for i, c := range row {
			values[i] = c
		}
		rec := record.New(headers, values)
		if len(rec) == 0 {
			// Fully blank rows are common at the tail of OCR exports.
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}
