package record

import "testing"

// TestNew_DropsSentinels verifies OCR null markers never become present
// fields; the mapper's skip logic relies on this.
func TestNew_DropsSentinels(t *testing.T) {
	t.Parallel()

	rec := New(
		[]string{"Matière", "Couleur", "RA mini", "Cassage Angles Vifs"},
		[]any{"#N/A", "", "NaN", "0,2 mm"},
	)

	for _, name := range []string{"Matière", "Couleur", "RA mini"} {
		if _, ok := rec.Get(name); ok {
			t.Fatalf("%s: expected absent, got present", name)
		}
	}
	if v, ok := rec.Get("Cassage Angles Vifs"); !ok || v != "0,2 mm" {
		t.Fatalf("Cassage Angles Vifs: got (%v, %v)", v, ok)
	}
}

// TestNew_NumericCoercion verifies clean numeric strings become float64,
// including comma decimal separators common in French exports.
func TestNew_NumericCoercion(t *testing.T) {
	t.Parallel()

	rec := New(
		[]string{"Côtes PLAN", "Tolérance supérieure", "Outil de mesure"},
		[]any{"12.5", "0,05", "Pied à coulisse"},
	)

	if v, _ := rec.Get("Côtes PLAN"); v != 12.5 {
		t.Fatalf("Côtes PLAN: got %v (%T), want 12.5", v, v)
	}
	if v, _ := rec.Get("Tolérance supérieure"); v != 0.05 {
		t.Fatalf("Tolérance supérieure: got %v (%T), want 0.05", v, v)
	}
	if v, _ := rec.Get("Outil de mesure"); v != "Pied à coulisse" {
		t.Fatalf("Outil de mesure: got %v", v)
	}
}

// TestNormalizeHeader_NFDAndBOM verifies a decomposed accented header with a
// BOM matches the composed spelling used by the placement layout.
func TestNormalizeHeader_NFDAndBOM(t *testing.T) {
	t.Parallel()

	// "Matière" with U+0065 U+0300 (e + combining grave) and a leading BOM.
	nfd := "\uFEFFMatière "
	if got := NormalizeHeader(nfd); got != "Matière" {
		t.Fatalf("got %q, want %q", got, "Matière")
	}
}

// TestRecord_ShortRow verifies rows shorter than the header set simply leave
// the trailing fields absent.
func TestRecord_ShortRow(t *testing.T) {
	t.Parallel()

	rec := New([]string{"A", "B", "C"}, []any{"x"})
	if v, ok := rec.Get("A"); !ok || v != "x" {
		t.Fatalf("A: got (%v, %v)", v, ok)
	}
	if _, ok := rec.Get("C"); ok {
		t.Fatal("C: expected absent")
	}
}

// TestRecord_NilSafe confirms lookups on a nil Record report absence rather
// than panicking; Set.General is nil for empty general sheets.
func TestRecord_NilSafe(t *testing.T) {
	t.Parallel()

	var rec Record
	if _, ok := rec.Get("anything"); ok {
		t.Fatal("nil record reported a present field")
	}
}
