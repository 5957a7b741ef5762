package fiche

import (
	"errors"
	"fmt"

	"fichegen/internal/record"
)

// ErrMissingGeneral is returned when the source general sheet has no data
// row. It is the only failure Populate can report; every other anomaly is
// absorbed by the skip policy.
var ErrMissingGeneral = errors.New("general record sheet is empty")

// Document is the destination grid mutated by Populate. Implementations
// hand out the grid's merged-region table and accept cell writes.
//
// A Document must be a fresh, privately owned copy of the template: Populate
// assumes exclusive ownership for its whole run, and sharing one Document
// across concurrent Populate calls is undefined behavior.
type Document interface {
	MergedRegions() ([]Region, error)
	SetCell(ref string, value any) error
}

// Report summarizes one Populate run for the caller: the output file name
// plus the counters the runner feeds into metrics and the ledger.
type Report struct {
	// FileName is the display name for the output artifact, built from the
	// identifier fallback chain and the placement's name pattern.
	FileName string
	// Identifier is the resolved display identifier; empty when the whole
	// fallback chain came up absent.
	Identifier string

	CellsWritten int
	SlotsFilled  int
	// SkippedFields lists scalar columns that produced no write, in
	// placement order. Informational only.
	SkippedFields []string
}

// Populate copies one source record set into doc according to p.
//
// Semantics:
//   - Fails with ErrMissingGeneral before any write when set has no general
//     record; doc is untouched in that case.
//   - Scalar fields: value looked up by exact column name; absent values are
//     skipped, date fields are converted to day precision (unparsable dates
//     skipped too), and the destination cell is routed through ResolveAnchor
//     because header cells may sit in merged regions.
//   - Group fields: min(capacity, len(lines)) slots are filled from the
//     front of set.Lines. Each cell is written only when the line record has
//     that column present; partial rows are normal. No anchor resolution:
//     the slot bank is unmerged by template contract.
//
// Populate mutates doc in place and returns the Report the caller needs to
// name and persist the artifact.
func Populate(set *record.Set, p *Placement, doc Document) (Report, error) {
	var rep Report

	if set == nil || set.General == nil {
		return rep, ErrMissingGeneral
	}

	rep.Identifier = identifier(set.General, p.IdentifierColumns)
	rep.FileName = fmt.Sprintf(p.NamePattern, rep.Identifier)

	regions, err := doc.MergedRegions()
	if err != nil {
		return rep, fmt.Errorf("merged regions: %w", err)
	}

	for _, f := range p.Scalars {
		v, ok := set.General.Get(f.Column)
		if ok && f.Date {
			v, ok = toDate(v)
		}
		if !ok {
			rep.SkippedFields = append(rep.SkippedFields, f.Column)
			continue
		}
		if err := doc.SetCell(ResolveAnchor(f.Cell, regions), v); err != nil {
			return rep, fmt.Errorf("write %s (%s): %w", f.Cell, f.Column, err)
		}
		rep.CellsWritten++
	}

	n := len(set.Lines)
	if n > p.Capacity {
		n = p.Capacity
	}
	for i := 0; i < n; i++ {
		filled := false
		for _, g := range p.Groups {
			v, ok := set.Lines[i].Get(g.Column)
			if !ok {
				continue
			}
			if err := doc.SetCell(g.Cells[i], v); err != nil {
				return rep, fmt.Errorf("write %s (%s slot %d): %w", g.Cells[i], g.Column, i, err)
			}
			rep.CellsWritten++
			filled = true
		}
		if filled {
			rep.SlotsFilled++
		}
	}

	return rep, nil
}

// identifier walks the fallback chain and returns the first present value,
// rendered as display text; empty string when the chain is exhausted.
func identifier(gen record.Record, columns []string) string {
	for _, c := range columns {
		if v, ok := gen.Get(c); ok {
			return displayString(v)
		}
	}
	return ""
}

// displayString renders a field value for use inside a file name. Floats
// that are whole numbers drop the trailing ".0" an OCR numeric coercion
// would otherwise leak into the name.
func displayString(v any) string {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}
