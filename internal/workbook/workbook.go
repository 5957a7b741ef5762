// Package workbook adapts an xlsx template to the fiche.Document interface.
//
// Each Open call loads its own in-memory copy of the template file, so
// concurrent generation runs never share a mutable workbook; the template on
// disk is treated as immutable.
package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"fichegen/internal/fiche"
)

// Workbook is one mutable copy of the fiche template, bound to a single
// destination sheet.
type Workbook struct {
	f     *excelize.File
	sheet string
}

// Open loads the template at path and binds the named sheet. The sheet must
// exist; a template with a renamed or missing sheet is a configuration
// error, not something to degrade around.
func Open(path, sheet string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open template %s: %w", path, err)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		_ = f.Close()
		return nil, fmt.Errorf("template %s has no sheet %q", path, sheet)
	}
	return &Workbook{f: f, sheet: sheet}, nil
}

// MergedRegions returns the sheet's merged-range table as fiche regions.
func (w *Workbook) MergedRegions() ([]fiche.Region, error) {
	merges, err := w.f.GetMergeCells(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("merge cells of %q: %w", w.sheet, err)
	}

	regions := make([]fiche.Region, 0, len(merges))
	for _, mc := range merges {
		rg, err := fiche.ParseRegion(mc.GetStartAxis() + ":" + mc.GetEndAxis())
		if err != nil {
			// A malformed range in a template is not recoverable.
			return nil, err
		}
		regions = append(regions, rg)
	}
	return regions, nil
}

// SetCell writes value at ref on the bound sheet, overwriting any existing
// value.
func (w *Workbook) SetCell(ref string, value any) error {
	return w.f.SetCellValue(w.sheet, ref, value)
}

// Bytes serializes the workbook to an xlsx byte buffer for the caller to
// persist or stream.
func (w *Workbook) Bytes() ([]byte, error) {
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases the underlying file resources.
func (w *Workbook) Close() error {
	return w.f.Close()
}

var _ fiche.Document = (*Workbook)(nil)
