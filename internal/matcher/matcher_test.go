package matcher

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/antzucaro/matchr"

	"phonetic-name-match/internal/decision"
	"phonetic-name-match/internal/models"
	"phonetic-name-match/internal/processor"
	errs "phonetic-name-match/pkg/errors"
)

func mustMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := NewDefault()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func TestSelfMatchIsSameName(t *testing.T) {
	m := mustMatcher(t)
	for _, name := range []string{"John Doe Smith", "Muhammad Ali", "J.K. Rowling", "x"} {
		res, err := m.Match(name, name)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", name, err)
		}
		if res.Percentage != 100 {
			t.Fatalf("self match %q = %d, want 100", name, res.Percentage)
		}
		if res.Label != "Same Name" {
			t.Fatalf("self match %q label = %q, want %q", name, res.Label, "Same Name")
		}
	}
}

func TestDirectionality(t *testing.T) {
	m := mustMatcher(t)

	res, err := m.Match("john doe smith", "john doe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Percentage != 67 {
		t.Fatalf("forward match = %d, want 67", res.Percentage)
	}
	if len(res.Assignment.Pairs) != 2 {
		t.Fatalf("expected 2 accepted pairs, got %d", len(res.Assignment.Pairs))
	}

	rev, err := m.Match("john doe", "john doe smith")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rev.Percentage != 100 {
		t.Fatalf("reverse match = %d, want 100", rev.Percentage)
	}
	if rev.Label != "Same Name" {
		t.Fatalf("reverse label = %q, want %q", rev.Label, "Same Name")
	}
}

func TestCanonicalVariantScoresAsSameName(t *testing.T) {
	m := mustMatcher(t)
	res, err := m.Match("Muhammad Ali", "Md Ali")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Percentage != 100 {
		t.Fatalf("percentage = %d, want 100", res.Percentage)
	}
	if res.ProcessedTarget != "muhammad ali" || res.ProcessedRef != "muhammad ali" {
		t.Fatalf("processed names = %q / %q, want canonical forms", res.ProcessedTarget, res.ProcessedRef)
	}
}

func TestTransliteratedVariant(t *testing.T) {
	m := mustMatcher(t)
	res, err := m.Match("Muhammad Ali", "Mohd Aly")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// muhammad pairs perfectly; ali/aly agree phonetically so the literal
	// channel blends in at 15%.
	aliAly := matchr.JaroWinkler("ali", "aly", false)
	raw := (1.0 + 0.85 + 0.15*aliAly) / 2
	want := int(math.Round(raw * 100))

	if res.Percentage != want {
		t.Fatalf("percentage = %d, want %d", res.Percentage, want)
	}
	if res.Percentage < 89 {
		t.Fatalf("percentage = %d, want at least 89", res.Percentage)
	}
	if res.Label != "Likely Same Name" {
		t.Fatalf("label = %q, want %q", res.Label, "Likely Same Name")
	}

	if len(res.Assignment.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(res.Assignment.Pairs))
	}
	first := res.Assignment.Pairs[0]
	if first.Target.Unit.Text != "muhammad" || first.Reference.Unit.Text != "muhammad" {
		t.Fatalf("highest scoring pair should lock first, got %q/%q",
			first.Target.Unit.Text, first.Reference.Unit.Text)
	}
	second := res.Assignment.Pairs[1]
	if !second.Blended {
		t.Fatalf("ali/aly pair should be blended, got %+v", second)
	}
}

func TestInitialsAgainstFusedForm(t *testing.T) {
	m := mustMatcher(t)
	res, err := m.Match("J.K. Rowling", "JK Rowling")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Percentage != 100 {
		t.Fatalf("percentage = %d, want 100", res.Percentage)
	}
	if res.ProcessedTarget != "j k rowling" {
		t.Fatalf("processed target = %q, want %q", res.ProcessedTarget, "j k rowling")
	}
	if got := res.TargetUnits[0].Unit.Text; got != "jk" {
		t.Fatalf("first target unit = %q, want merged initials %q", got, "jk")
	}
}

func TestEmptyNames(t *testing.T) {
	m := mustMatcher(t)
	tcs := []struct {
		target, reference string
	}{
		{"", "John"},
		{"John", ""},
		{"", ""},
		{"   ", "John"},
		{"123 !?", "John"},
	}
	for _, tc := range tcs {
		res, err := m.Match(tc.target, tc.reference)
		if err != nil {
			t.Fatalf("unexpected error for %q/%q: %v", tc.target, tc.reference, err)
		}
		if res.Percentage != 0 {
			t.Fatalf("match %q/%q = %d, want 0", tc.target, tc.reference, res.Percentage)
		}
		if res.Label != "Names Do Not Match" {
			t.Fatalf("match %q/%q label = %q", tc.target, tc.reference, res.Label)
		}
	}
}

func TestBoundsAndDeterminism(t *testing.T) {
	m := mustMatcher(t)
	names := []string{
		"", "a", "J.K. Rowling", "muhammad", "John Doe Smith",
		"O'Brien-Smith JR.", "Md", "jonatan smyth the 3rd",
	}
	for _, a := range names {
		for _, b := range names {
			res, err := m.Match(a, b)
			if err != nil {
				t.Fatalf("unexpected error for %q/%q: %v", a, b, err)
			}
			if res.Percentage < 0 || res.Percentage > 100 {
				t.Fatalf("match %q/%q = %d, out of range", a, b, res.Percentage)
			}
			if res.RawScore < 0 || res.RawScore > 1 {
				t.Fatalf("match %q/%q raw = %f, out of range", a, b, res.RawScore)
			}
			if res.Label == "" {
				t.Fatalf("match %q/%q has empty label", a, b)
			}
			again, err := m.Match(a, b)
			if err != nil {
				t.Fatalf("unexpected error on repeat: %v", err)
			}
			if !reflect.DeepEqual(res, again) {
				t.Fatalf("match %q/%q not deterministic", a, b)
			}
		}
	}
}

func TestOversizedInputRejected(t *testing.T) {
	m := mustMatcher(t)
	long := strings.Repeat("a", 513)

	if _, err := m.Match(long, "ok"); err == nil {
		t.Fatalf("expected error for oversized target")
	} else if !errs.Is(err, errs.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
	if _, err := m.Match("ok", long); err == nil {
		t.Fatalf("expected error for oversized reference")
	} else if !errs.Is(err, errs.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	bad := DefaultConfig()
	bad.LiteralWeight = 0.25
	if _, err := New(bad); err == nil {
		t.Fatalf("expected error for weights not summing to 1.0")
	} else if !errs.Is(err, errs.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}

	gap := DefaultConfig()
	gap.Buckets = []decision.Bucket{
		{Min: 0, Max: 40, Label: "low"},
		{Min: 60, Max: 100, Label: "high"},
	}
	if _, err := New(gap); err == nil {
		t.Fatalf("expected error for gapped label table")
	} else if !errs.Is(err, errs.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}

	neg := DefaultConfig()
	neg.MaxInputLength = -1
	if _, err := New(neg); err == nil {
		t.Fatalf("expected error for negative max length")
	}
}

type fixedSegmenter struct {
	units []models.Unit
}

func (s fixedSegmenter) Segment(string) []models.Unit { return s.units }

type constEncoder struct{}

func (constEncoder) Encode(u models.Unit) models.EncodedUnit {
	return models.EncodedUnit{Unit: u, Primary: "X"}
}

var _ processor.Segmenter = fixedSegmenter{}

func TestSwappableComponents(t *testing.T) {
	seg := fixedSegmenter{units: []models.Unit{
		{Text: "abc", Kind: models.KindSegment, Ordinal: 0},
	}}
	m, err := NewWithComponents(seg, constEncoder{}, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The stubs make every input segment and encode the same way, so any
	// two names compare as identical.
	res, err := m.Match("anything", "else entirely")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Percentage != 100 {
		t.Fatalf("percentage = %d, want 100", res.Percentage)
	}
}

func TestSummaryReportsActiveSettings(t *testing.T) {
	m := mustMatcher(t)
	s := m.Summary()
	if s["phonetic_weight"] != 0.85 {
		t.Fatalf("unexpected phonetic weight: %v", s["phonetic_weight"])
	}
	if s["variant_count"].(int) == 0 {
		t.Fatalf("expected default variants to be configured")
	}

	cfg := m.Config()
	cfg.Buckets[0].Label = "mutated"
	if res, err := m.Match("a", "a"); err != nil || res.Label != "Same Name" {
		t.Fatalf("matcher config mutated through Config copy: %v %v", res.Label, err)
	}
}
