// Package fiche is the field-mapping core: it places values from one OCR
// record set into fixed positions of a Fiche de Contrôle sheet, resolving
// merged-region anchors for the header fields and filling the fixed slot
// bank for measurement lines.
//
// The package is pure with respect to I/O: it writes through the Document
// interface and never touches files or workbooks itself.
package fiche

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Region is one rectangular merged range of the destination grid, in 1-based
// column/row coordinates, both bounds inclusive.
type Region struct {
	MinCol, MinRow int
	MaxCol, MaxRow int
}

// ParseRegion builds a Region from a range reference like "K2:S2".
func ParseRegion(ref string) (Region, error) {
	start, end, ok := strings.Cut(ref, ":")
	if !ok || start == "" || end == "" {
		return Region{}, fmt.Errorf("parse region %q: missing ':'", ref)
	}
	sc, sr, err := excelize.CellNameToCoordinates(start)
	if err != nil {
		return Region{}, fmt.Errorf("parse region %q: %w", ref, err)
	}
	ec, er, err := excelize.CellNameToCoordinates(end)
	if err != nil {
		return Region{}, fmt.Errorf("parse region %q: %w", ref, err)
	}
	return Region{MinCol: sc, MinRow: sr, MaxCol: ec, MaxRow: er}, nil
}

// Contains reports whether the cell at (col, row) lies inside the region.
func (rg Region) Contains(col, row int) bool {
	return col >= rg.MinCol && col <= rg.MaxCol && row >= rg.MinRow && row <= rg.MaxRow
}

// Anchor returns the region's top-left cell reference. In a merged range only
// this cell is stored and rendered, so it is the one writable coordinate that
// makes a value visible across the whole region.
func (rg Region) Anchor() string {
	ref, _ := excelize.CoordinatesToCellName(rg.MinCol, rg.MinRow)
	return ref
}

// ResolveAnchor maps a destination cell reference to the coordinate that is
// actually writable there.
//
// Semantics:
//   - If ref lies inside one of regions, the containing region's anchor is
//     returned.
//   - Otherwise ref is returned unchanged; an unmerged cell is its own
//     writable coordinate. Absence of a containing region is a normal case,
//     not a failure.
//
// The grid-document contract promises regions do not overlap. If a ref does
// belong to more than one region the first match in table order wins; that
// precedence is deliberately undefined rather than guarded.
//
// An unparsable ref is returned unchanged and left for the write itself to
// reject.
func ResolveAnchor(ref string, regions []Region) string {
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return ref
	}
	for _, rg := range regions {
		if rg.Contains(col, row) {
			return rg.Anchor()
		}
	}
	return ref
}
