// Package encoder maps name units to phonetic codes.
//
// The transform is the standard double metaphone algorithm via
// github.com/antzucaro/matchr. It is a pure function of the unit text:
// locale-free, no external state, safe for concurrent use.
package encoder

import (
	"github.com/antzucaro/matchr"

	"phonetic-name-match/internal/models"
)

// Encoder produces phonetic codes for a unit. Small on purpose so tests and
// callers can substitute fixed-code implementations.
type Encoder interface {
	Encode(u models.Unit) models.EncodedUnit
}

// DoubleMetaphone is the default Encoder.
type DoubleMetaphone struct{}

var _ Encoder = DoubleMetaphone{}

// New returns the default double metaphone encoder.
func New() DoubleMetaphone {
	return DoubleMetaphone{}
}

// Encode computes the primary and, when distinct, secondary code for the
// unit. A unit with no encodable characters gets empty codes rather than an
// error; scoring treats empty-vs-empty as equal and empty-vs-nonempty as a
// zero sub-score.
func (DoubleMetaphone) Encode(u models.Unit) models.EncodedUnit {
	primary, secondary := matchr.DoubleMetaphone(u.Text)
	// The library reports an alternate for every input; it only carries
	// information when it differs from the primary.
	if secondary == primary {
		secondary = ""
	}
	return models.EncodedUnit{Unit: u, Primary: primary, Secondary: secondary}
}

// EncodeAll encodes a unit sequence in order.
func EncodeAll(e Encoder, units []models.Unit) []models.EncodedUnit {
	if len(units) == 0 {
		return nil
	}
	out := make([]models.EncodedUnit, len(units))
	for i, u := range units {
		out[i] = e.Encode(u)
	}
	return out
}
