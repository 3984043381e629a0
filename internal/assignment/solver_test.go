package assignment

import (
	"testing"

	"phonetic-name-match/internal/models"
	"phonetic-name-match/internal/similarity"
)

// matrixScorer returns fixed scores keyed by unit texts.
type matrixScorer struct {
	scores map[[2]string]float64
}

func (m matrixScorer) Pair(target, reference models.EncodedUnit) models.CandidatePair {
	return models.CandidatePair{
		Target:    target,
		Reference: reference,
		Score:     m.scores[[2]string{target.Unit.Text, reference.Unit.Text}],
	}
}

func unitSeq(texts ...string) []models.EncodedUnit {
	out := make([]models.EncodedUnit, len(texts))
	for i, t := range texts {
		out[i] = models.EncodedUnit{Unit: models.Unit{Text: t, Ordinal: i}}
	}
	return out
}

func TestAssignGreedyLocking(t *testing.T) {
	// Taking the globally best pair first (t0-r0) forces t1 to go
	// unmatched, even though t1-r0 plus t0-r1 would total higher. The
	// solver must reproduce the greedy trace, not the optimum.
	scorer := matrixScorer{scores: map[[2]string]float64{
		{"t0", "r0"}: 0.9,
		{"t0", "r1"}: 0.8,
		{"t1", "r0"}: 0.85,
		{"t1", "r1"}: 0.1,
		{"t2", "r0"}: 0.2,
		{"t2", "r1"}: 0.3,
	}}
	s := New(scorer)

	a := s.Assign(unitSeq("t0", "t1", "t2"), unitSeq("r0", "r1"))
	if len(a.Pairs) != 2 {
		t.Fatalf("unexpected assignment: %+v", a)
	}
	if a.Pairs[0].Target.Unit.Text != "t0" || a.Pairs[0].Reference.Unit.Text != "r0" {
		t.Fatalf("unexpected first pair: %+v", a.Pairs[0])
	}
	if a.Pairs[1].Target.Unit.Text != "t2" || a.Pairs[1].Reference.Unit.Text != "r1" {
		t.Fatalf("unexpected second pair: %+v", a.Pairs[1])
	}
	if got, want := a.Sum(), 0.9+0.3; got != want {
		t.Fatalf("unexpected sum: %v, want %v", got, want)
	}
}

func TestAssignTieBreakIsDeterministic(t *testing.T) {
	scorer := matrixScorer{scores: map[[2]string]float64{
		{"t0", "r0"}: 0.5,
		{"t0", "r1"}: 0.5,
		{"t1", "r0"}: 0.5,
		{"t1", "r1"}: 0.5,
	}}
	s := New(scorer)

	for i := 0; i < 50; i++ {
		a := s.Assign(unitSeq("t0", "t1"), unitSeq("r0", "r1"))
		if len(a.Pairs) != 2 {
			t.Fatalf("unexpected assignment: %+v", a)
		}
		// Ties resolve by target ordinal then reference ordinal.
		if a.Pairs[0].Target.Unit.Text != "t0" || a.Pairs[0].Reference.Unit.Text != "r0" ||
			a.Pairs[1].Target.Unit.Text != "t1" || a.Pairs[1].Reference.Unit.Text != "r1" {
			t.Fatalf("tie-break not deterministic: %+v", a)
		}
	}
}

func TestAssignNoUnitTwice(t *testing.T) {
	scorer := matrixScorer{scores: map[[2]string]float64{
		{"t0", "r0"}: 0.9,
		{"t0", "r1"}: 0.8,
		{"t1", "r0"}: 0.7,
		{"t1", "r1"}: 0.6,
		{"t2", "r0"}: 0.5,
		{"t2", "r1"}: 0.4,
	}}
	s := New(scorer)

	a := s.Assign(unitSeq("t0", "t1", "t2"), unitSeq("r0", "r1"))
	seenT := map[int]bool{}
	seenR := map[int]bool{}
	for _, p := range a.Pairs {
		if seenT[p.Target.Unit.Ordinal] || seenR[p.Reference.Unit.Ordinal] {
			t.Fatalf("unit locked twice: %+v", a)
		}
		seenT[p.Target.Unit.Ordinal] = true
		seenR[p.Reference.Unit.Ordinal] = true
	}
	// Two reference units bound the pair count.
	if len(a.Pairs) != 2 {
		t.Fatalf("unexpected pair count: %+v", a)
	}
}

func TestAssignEmptySides(t *testing.T) {
	s := New(matrixScorer{})

	if a := s.Assign(nil, unitSeq("r0")); len(a.Pairs) != 0 {
		t.Fatalf("expected empty assignment: %+v", a)
	}
	if a := s.Assign(unitSeq("t0"), nil); len(a.Pairs) != 0 {
		t.Fatalf("expected empty assignment: %+v", a)
	}
}

func TestAssignWithRealScorer(t *testing.T) {
	s := New(similarity.NewDefault())

	target := []models.EncodedUnit{
		{Unit: models.Unit{Text: "muhammad", Ordinal: 0}, Primary: "MHMT"},
		{Unit: models.Unit{Text: "ali", Ordinal: 1}, Primary: "AL"},
	}
	reference := []models.EncodedUnit{
		{Unit: models.Unit{Text: "ali", Ordinal: 0}, Primary: "AL"},
		{Unit: models.Unit{Text: "muhammad", Ordinal: 1}, Primary: "MHMT"},
	}

	// Order must not matter for who pairs with whom.
	a := s.Assign(target, reference)
	if len(a.Pairs) != 2 {
		t.Fatalf("unexpected assignment: %+v", a)
	}
	for _, p := range a.Pairs {
		if p.Target.Unit.Text != p.Reference.Unit.Text {
			t.Fatalf("crossed pairing: %+v", a)
		}
		if p.Score != 1.0 {
			t.Fatalf("identical units must score 1.0: %+v", p)
		}
	}
}
