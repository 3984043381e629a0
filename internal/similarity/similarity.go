// Package similarity scores unit pairs by blending phonetic-code similarity
// with literal text similarity.
package similarity

import (
	"github.com/antzucaro/matchr"

	"phonetic-name-match/internal/constants"
	"phonetic-name-match/internal/models"
)

// Scorer computes pair scores. Weights are fixed at construction and must
// sum to 1.0 (enforced by the matcher config); read-only after construction,
// safe for concurrent use.
//
// The rule: the score IS the best phonetic similarity across the code
// combinations. Only when phonetics agree exactly (1.0) is the literal term
// blended in, so a short initial block sharing a code with a long segment
// ("jk" vs "jacob") cannot score as a perfect match. When phonetics disagree
// even slightly, literal similarity is not consulted.
type Scorer struct {
	phoneticWeight float64
	literalWeight  float64
}

// New creates a Scorer with the given blend weights.
func New(phoneticWeight, literalWeight float64) *Scorer {
	return &Scorer{phoneticWeight: phoneticWeight, literalWeight: literalWeight}
}

// NewDefault creates a Scorer with the standard 85:15 weights.
func NewDefault() *Scorer {
	return New(constants.DefaultPhoneticWeight, constants.DefaultLiteralWeight)
}

// Pair scores one target/reference combination and returns it with its
// sub-scores for traceability.
func (s *Scorer) Pair(target, reference models.EncodedUnit) models.CandidatePair {
	phonetic := bestPhonetic(target, reference)
	literal := stringScore(target.Unit.Text, reference.Unit.Text)

	value := phonetic
	blended := false
	if phonetic == 1.0 {
		value = s.phoneticWeight*phonetic + s.literalWeight*literal
		blended = true
	}

	return models.CandidatePair{
		Target:    target,
		Reference: reference,
		Score:     value,
		Phonetic:  phonetic,
		Literal:   literal,
		Blended:   blended,
	}
}

// bestPhonetic takes the maximum similarity over the primary/secondary code
// combinations. Secondaries join only when present; primaries always
// participate, including the empty code of an unencodable unit.
func bestPhonetic(a, b models.EncodedUnit) float64 {
	ac := []string{a.Primary}
	if a.Secondary != "" {
		ac = append(ac, a.Secondary)
	}
	bc := []string{b.Primary}
	if b.Secondary != "" {
		bc = append(bc, b.Secondary)
	}

	best := 0.0
	for _, x := range ac {
		for _, y := range bc {
			if v := stringScore(x, y); v > best {
				best = v
			}
		}
	}
	return best
}

// stringScore is Jaro-Winkler with the empty-string cases pinned down:
// empty-vs-empty counts as equal, empty-vs-nonempty as no match. The
// library returns 0 for any empty input, which would conflate the two.
func stringScore(x, y string) float64 {
	if x == "" && y == "" {
		return 1.0
	}
	if x == "" || y == "" {
		return 0.0
	}
	return matchr.JaroWinkler(x, y, false)
}
