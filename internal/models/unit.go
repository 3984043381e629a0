package models

// UnitKind classifies how a unit was formed during segmentation.
type UnitKind string

const (
	// KindSegment is a multi-letter token taken as-is ("smith").
	KindSegment UnitKind = "segment"
	// KindInitialBlock is one or more adjacent single-letter tokens joined
	// into a single unit ("j","k" -> "jk"). A lone initial is a one-letter block.
	KindInitialBlock UnitKind = "initial_block"
)

// Span locates a unit inside the normalized name string.
// Offset/Length are rune-based so traces line up with what the user typed
// after normalization.
type Span struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// Unit is the atomic comparable element of a name after segmentation.
// Units are immutable once created; the processor assigns ordinals by
// position in the final post-merge sequence.
type Unit struct {
	Text    string   `json:"text"`
	Kind    UnitKind `json:"kind"`
	Span    Span     `json:"span"`
	Ordinal int      `json:"ordinal"`
}

// EncodedUnit carries a unit plus its phonetic codes. Primary is never empty
// for a unit containing at least one encodable letter; Secondary is empty
// unless the algorithm produced a distinct alternate pronunciation.
type EncodedUnit struct {
	Unit      Unit   `json:"unit"`
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}
