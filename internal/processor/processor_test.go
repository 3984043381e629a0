package processor

import (
	"testing"

	"phonetic-name-match/internal/models"
)

func texts(units []models.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Text
	}
	return out
}

func eqStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSegmentMergesAdjacentInitials(t *testing.T) {
	p := NewDefault()

	units := p.Segment("J K Smith")
	if !eqStrings(texts(units), []string{"jk", "smith"}) {
		t.Fatalf("unexpected units: %+v", units)
	}
	if units[0].Kind != models.KindInitialBlock || units[1].Kind != models.KindSegment {
		t.Fatalf("unexpected kinds: %+v", units)
	}
}

func TestSegmentDoesNotMergeAcrossSegment(t *testing.T) {
	p := NewDefault()

	units := p.Segment("J Smith K")
	if !eqStrings(texts(units), []string{"j", "smith", "k"}) {
		t.Fatalf("unexpected units: %+v", units)
	}
	if units[0].Kind != models.KindInitialBlock || units[2].Kind != models.KindInitialBlock {
		t.Fatalf("lone initials must still be blocks: %+v", units)
	}
}

func TestSegmentPeriodBoundaries(t *testing.T) {
	p := NewDefault()

	units := p.Segment("J.K. Rowling")
	if !eqStrings(texts(units), []string{"jk", "rowling"}) {
		t.Fatalf("unexpected units: %+v", units)
	}

	// Spans index the processed layout "j k rowling".
	flat := Flatten(units)
	if flat != "j k rowling" {
		t.Fatalf("unexpected processed form: %q", flat)
	}
	for _, u := range units {
		if u.Span.Offset < 0 || u.Span.Offset+u.Span.Length > len(flat) {
			t.Fatalf("span out of range: %+v", u)
		}
	}
	if flat[units[0].Span.Offset:units[0].Span.Offset+units[0].Span.Length] != "j k" {
		t.Fatalf("unexpected block span: %+v", units[0])
	}
	if flat[units[1].Span.Offset:units[1].Span.Offset+units[1].Span.Length] != "rowling" {
		t.Fatalf("unexpected segment span: %+v", units[1])
	}
}

func TestSegmentCanonicalizesVariants(t *testing.T) {
	p := NewDefault()

	tcs := []struct {
		in   string
		want []string
	}{
		{"Md Ali", []string{"muhammad", "ali"}},
		{"MOHD aly", []string{"muhammad", "aly"}},
		{"Mohammed", []string{"muhammad"}},
		// Exact token match only, never substring.
		{"mdx ali", []string{"mdx", "ali"}},
		{"ahmad", []string{"ahmad"}},
	}
	for _, tc := range tcs {
		units := p.Segment(tc.in)
		if !eqStrings(texts(units), tc.want) {
			t.Fatalf("%q: unexpected units %+v, want %v", tc.in, units, tc.want)
		}
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	p := NewDefault()

	for _, in := range []string{"", "   ", "\t\n", "...", "123 !?"} {
		if units := p.Segment(in); len(units) != 0 {
			t.Fatalf("%q: expected no units, got %+v", in, units)
		}
	}
}

func TestSegmentNormalization(t *testing.T) {
	p := NewDefault()

	units := p.Segment("  O'Brien-Smith   JR. ")
	// Apostrophe and hyphen are stripped, not treated as boundaries.
	if !eqStrings(texts(units), []string{"obriensmith", "jr"}) {
		t.Fatalf("unexpected units: %+v", units)
	}
}

func TestSegmentOrdinalsAndSpans(t *testing.T) {
	p := NewDefault()

	units := p.Segment("Joanne Kathleen Rowling")
	if len(units) != 3 {
		t.Fatalf("unexpected units: %+v", units)
	}
	flat := Flatten(units)
	for i, u := range units {
		if u.Ordinal != i {
			t.Fatalf("unexpected ordinal at %d: %+v", i, u)
		}
		got := flat[u.Span.Offset : u.Span.Offset+u.Span.Length]
		if got != u.Text {
			t.Fatalf("span mismatch for %+v: %q", u, got)
		}
	}
}

func TestCustomVariants(t *testing.T) {
	p := New([]string{"bob"})

	units := p.Segment("Bob Marley")
	if !eqStrings(texts(units), []string{"muhammad", "marley"}) {
		t.Fatalf("unexpected units: %+v", units)
	}
}
