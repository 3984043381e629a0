package similarity

import (
	"testing"

	"github.com/antzucaro/matchr"

	"phonetic-name-match/internal/models"
)

func enc(text, primary, secondary string) models.EncodedUnit {
	return models.EncodedUnit{
		Unit:      models.Unit{Text: text, Kind: models.KindSegment},
		Primary:   primary,
		Secondary: secondary,
	}
}

func TestPairIdenticalUnits(t *testing.T) {
	s := NewDefault()

	p := s.Pair(enc("ali", "AL", ""), enc("ali", "AL", ""))
	if p.Score != 1.0 || p.Phonetic != 1.0 || p.Literal != 1.0 || !p.Blended {
		t.Fatalf("unexpected pair: %+v", p)
	}
}

func TestPairBlendsOnlyOnPerfectPhonetics(t *testing.T) {
	s := NewDefault()

	// Same code, diverging spellings: the literal term must pull the score
	// strictly below 1.0.
	p := s.Pair(enc("jk", "JK", ""), enc("jacob", "JK", ""))
	want := 0.85 + 0.15*matchr.JaroWinkler("jk", "jacob", false)
	if !p.Blended || p.Score != want {
		t.Fatalf("unexpected pair: %+v, want score %v", p, want)
	}
	if p.Score >= 1.0 || p.Score <= 0.85 {
		t.Fatalf("blended score out of range: %+v", p)
	}
}

func TestPairNoBlendOnImperfectPhonetics(t *testing.T) {
	s := NewDefault()

	p := s.Pair(enc("smith", "SM0", "XMT"), enc("smythe", "SM0", "XM"))
	if p.Blended {
		t.Fatalf("must not blend below 1.0: %+v", p)
	}
	if p.Score != p.Phonetic {
		t.Fatalf("score must equal phonetic when not blended: %+v", p)
	}
	if p.Phonetic >= 1.0 || p.Phonetic <= 0.0 {
		t.Fatalf("unexpected phonetic score: %+v", p)
	}
}

func TestPairUsesSecondaryCodes(t *testing.T) {
	s := NewDefault()

	// smith/schmidt agree on the alternate pronunciation XMT, so phonetics
	// are perfect and the blend applies.
	p := s.Pair(enc("smith", "SM0", "XMT"), enc("schmidt", "XMT", "SMT"))
	if p.Phonetic != 1.0 || !p.Blended {
		t.Fatalf("expected perfect phonetic via secondary: %+v", p)
	}
	want := 0.85 + 0.15*matchr.JaroWinkler("smith", "schmidt", false)
	if p.Score != want {
		t.Fatalf("unexpected score: %+v, want %v", p, want)
	}
}

func TestPairEmptyCodes(t *testing.T) {
	s := NewDefault()

	// Empty-vs-empty codes count as equal.
	p := s.Pair(enc("x", "", ""), enc("x", "", ""))
	if p.Phonetic != 1.0 {
		t.Fatalf("empty-vs-empty must be equal: %+v", p)
	}

	// Empty-vs-nonempty is no match at all.
	p = s.Pair(enc("x", "", ""), enc("ali", "AL", ""))
	if p.Phonetic != 0.0 || p.Score != 0.0 || p.Blended {
		t.Fatalf("empty-vs-nonempty must score zero: %+v", p)
	}
}

func TestPairBounds(t *testing.T) {
	s := NewDefault()

	units := []models.EncodedUnit{
		enc("muhammad", "MHMT", ""),
		enc("mohd", "MT", ""),
		enc("jk", "JK", "AK"),
		enc("rowling", "RLNK", ""),
		enc("", "", ""),
	}
	for _, a := range units {
		for _, b := range units {
			p := s.Pair(a, b)
			if p.Score < 0.0 || p.Score > 1.0 {
				t.Fatalf("score out of bounds: %+v", p)
			}
		}
	}
}

func TestCustomWeights(t *testing.T) {
	s := New(0.5, 0.5)

	p := s.Pair(enc("jk", "JK", ""), enc("jacob", "JK", ""))
	want := 0.5 + 0.5*matchr.JaroWinkler("jk", "jacob", false)
	if p.Score != want {
		t.Fatalf("unexpected score: %+v, want %v", p, want)
	}
}
