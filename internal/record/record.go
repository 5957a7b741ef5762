// Package record models the OCR-extracted source data consumed by the fiche
// mapper: one "general" work-order record plus an ordered list of measurement
// "line" records.
//
// The central contract is present-vs-absent: a field is either present with a
// usable value, or it is absent. OCR exports are full of sentinel strings
// ("#N/A", "NaN", empty cells); New filters them out at construction time so
// downstream code never has to re-check runtime-specific null markers.
package record

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Record is one row of named fields. A missing key and a nil value both mean
// "absent"; construct records with New to keep that invariant.
type Record map[string]any

// Set is the full source record set for one work order.
//
// General is nil when the source general sheet had no data rows; that is the
// only fatal condition in the whole pipeline (fiche.Populate rejects it).
// Lines preserves source order; the mapper consumes them from the front.
type Set struct {
	General Record
	Lines   []Record
}

// Get returns the value for name and whether it is present.
// A nil Record reports everything as absent.
func (r Record) Get(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// sentinels are string values the OCR runtime emits for "no value".
// Matched case-insensitively after trimming.
var sentinels = map[string]struct{}{
	"":      {},
	"#n/a":  {},
	"n/a":   {},
	"na":    {},
	"nan":   {},
	"null":  {},
	"none":  {},
	"#ref!": {},
}

// New builds a Record from parallel header/value slices, dropping absent
// values so the Record satisfies the present-vs-absent contract.
//
// Semantics:
//   - Headers are normalized with NormalizeHeader before use.
//   - String values are trimmed; sentinel strings are dropped entirely.
//   - Clean numeric strings are coerced to float64 so tolerance and
//     dimension cells land in the output as numbers, not text.
//   - Extra values beyond the header count are ignored; short rows are fine.
func New(headers []string, values []any) Record {
	rec := make(Record, len(headers))
	for i, h := range headers {
		if i >= len(values) {
			break
		}
		h = NormalizeHeader(h)
		if h == "" {
			continue
		}
		v := Coerce(values[i])
		if v == nil {
			continue
		}
		rec[h] = v
	}
	return rec
}

// Coerce maps a raw cell value onto the contract: nil for absent, float64 for
// clean numeric strings, trimmed string otherwise. Non-string values pass
// through unchanged.
func Coerce(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if _, bad := sentinels[strings.ToLower(s)]; bad {
		return nil
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		return f
	}
	return s
}

// NormalizeHeader canonicalizes a source column header.
//
// OCR exports of the same document arrive with headers in NFC or NFD
// depending on the exporting system, and the first header often carries a
// UTF-8 BOM. Field names are matched exactly after this normalization, so
// "Matière" always finds its column whichever encoding form the export used.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	h = norm.NFC.String(h)
	return strings.TrimSpace(h)
}
