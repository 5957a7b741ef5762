package fiche

import (
	"encoding/json"
	"fmt"
	"os"
)

// ScalarField maps one work-order-level source column to one header cell of
// the fiche. Scalar writes are routed through ResolveAnchor because several
// header cells live inside merged regions of the template.
type ScalarField struct {
	// Column is the exact source column name in the general sheet.
	Column string `json:"column"`
	// Cell is the destination reference as laid out in the template.
	Cell string `json:"cell"`
	// Date marks fields converted to a day-precision date before writing.
	Date bool `json:"date,omitempty"`
}

// GroupField maps one measurement-line source column to a bank of slot cells,
// one per slot index. The cell lists of all groups are parallel arrays:
// index i across every group belongs to the i-th line record.
//
// The slot bank region of the template is plain unmerged cells, so group
// writes go direct, without anchor resolution.
type GroupField struct {
	Column string   `json:"column"`
	Cells  []string `json:"cells"`
}

// Placement is the full layout contract of the fiche template: which source
// field lands in which cell, how many measurement slots exist, and how the
// output file is named.
type Placement struct {
	// Sheet is the destination sheet name inside the template workbook.
	Sheet string `json:"sheet"`

	Scalars []ScalarField `json:"scalars"`
	Groups  []GroupField  `json:"groups"`

	// Capacity is the slot count of the measurement bank. Line records
	// beyond it are ignored.
	Capacity int `json:"capacity"`

	// IdentifierColumns is the fallback chain for the display identifier
	// used in the output file name, tried in order; if none yields a value
	// the identifier segment is empty. This chain affects naming only, not
	// sheet content.
	IdentifierColumns []string `json:"identifier_columns"`

	// NamePattern is the output file name with a %s verb for the identifier.
	NamePattern string `json:"name_pattern"`
}

// DefaultPlacement returns the layout of the standard "Fiche de contrôle"
// template: header block on rows 1-2, the green material block in column X,
// and the six-slot measurement bank on rows 9-12 with tool cells on row 14.
func DefaultPlacement() *Placement {
	return &Placement{
		Sheet: "Fiche de contrôle",
		Scalars: []ScalarField{
			{Column: "Nom du client", Cell: "M1"},
			{Column: "Numéro d' OF", Cell: "T1"},
			{Column: "Nom du plan", Cell: "K2"},
			{Column: "Indice plan", Cell: "T2"},
			{Column: "Date de création", Cell: "X2", Date: true},
			{Column: "Matière", Cell: "X4"},
			{Column: "Couleur", Cell: "X5"},
			{Column: "Tolérance Générale", Cell: "X6"},
			{Column: "RA mini", Cell: "X7"},
			{Column: "Cassage Angles Vifs", Cell: "X8"},
		},
		Groups: []GroupField{
			{Column: "Côtes PLAN", Cells: []string{"G9", "I9", "K9", "M9", "O9", "Q9"}},
			{Column: "Tolérance supérieure", Cells: []string{"G10", "I10", "K10", "M10", "O10", "Q10"}},
			{Column: "Tolérance inférieure", Cells: []string{"G11", "I11", "K11", "M11", "O11", "Q11"}},
			{Column: "Côtes MOYENNES", Cells: []string{"G12", "I12", "K12", "M12", "O12", "Q12"}},
			{Column: "Outil de mesure", Cells: []string{"F14", "H14", "J14", "L14", "N14", "P14"}},
		},
		Capacity:          6,
		IdentifierColumns: []string{"Numéro d' OF", "Koncile ID"},
		NamePattern:       "Fiche de Contrôle - OF n° %s.xlsx",
	}
}

// LoadPlacement loads and validates a JSON placement override. Fields left
// zero fall back to the defaults, so an override file only needs to state
// what differs from the standard template.
func LoadPlacement(path string) (*Placement, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read placement file: %w", err)
	}

	p := DefaultPlacement()
	if err := json.Unmarshal(b, p); err != nil {
		return nil, fmt.Errorf("parse placement json: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("placement %s: %w", path, err)
	}
	return p, nil
}

// Validate enforces the structural invariants the mapper depends on.
func (p *Placement) Validate() error {
	if p.Sheet == "" {
		return fmt.Errorf("sheet must be set")
	}
	if p.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	if len(p.Scalars) == 0 && len(p.Groups) == 0 {
		return fmt.Errorf("placement has no fields")
	}
	for _, s := range p.Scalars {
		if s.Column == "" || s.Cell == "" {
			return fmt.Errorf("scalar field needs column and cell, got %+v", s)
		}
	}
	for _, g := range p.Groups {
		if g.Column == "" {
			return fmt.Errorf("group field needs a column")
		}
		// Parallel-array invariant: every group covers every slot.
		if len(g.Cells) != p.Capacity {
			return fmt.Errorf("group %q has %d cells, capacity is %d", g.Column, len(g.Cells), p.Capacity)
		}
	}
	if p.NamePattern == "" {
		return fmt.Errorf("name_pattern must be set")
	}
	return nil
}
