package processor

import (
	"strings"

	"phonetic-name-match/internal/constants"
	"phonetic-name-match/internal/models"
)

// Segmenter turns a raw name into ordered units. The matcher depends on this
// interface, not on the concrete Processor, so alternate segmentation
// strategies can be swapped in without touching scoring or assignment.
type Segmenter interface {
	Segment(raw string) []models.Unit
}

// Processor is the default Segmenter. It normalizes, canonicalizes known
// Muhammad variants, tokenizes, and merges adjacent single-letter tokens
// into initial blocks. Read-only after construction; safe for concurrent use.
type Processor struct {
	variants map[string]struct{}
}

var _ Segmenter = (*Processor)(nil)

// New creates a Processor rewriting the given full-token variants to the
// canonical "muhammad" spelling. Variant matching is case-insensitive and
// exact, never substring.
func New(variants []string) *Processor {
	m := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			m[v] = struct{}{}
		}
	}
	return &Processor{variants: m}
}

// NewDefault creates a Processor with the default variant table.
func NewDefault() *Processor {
	return New(constants.DefaultMuhammadVariants())
}

// Segment implements the unit pipeline:
// normalize -> canonicalize variants -> tokenize -> merge initials.
// Empty or whitespace-only input yields no units.
func (p *Processor) Segment(raw string) []models.Unit {
	tokens := p.canonicalize(tokenize(normalize(raw)))
	if len(tokens) == 0 {
		return nil
	}

	// Lay tokens out as they appear in the processed form: single spaces
	// between tokens. Spans index that form (periods are already boundaries).
	offsets := make([]int, len(tokens))
	pos := 0
	for i, t := range tokens {
		if i > 0 {
			pos++
		}
		offsets[i] = pos
		pos += len(t)
	}

	var units []models.Unit
	for i := 0; i < len(tokens); {
		if len(tokens[i]) > 1 {
			units = append(units, models.Unit{
				Text: tokens[i],
				Kind: models.KindSegment,
				Span: models.Span{Offset: offsets[i], Length: len(tokens[i])},
			})
			i++
			continue
		}
		// Run of adjacent single-letter tokens becomes one initial block.
		// A segment in between breaks the run; a lone initial is a
		// one-letter block.
		j := i
		var b strings.Builder
		for j < len(tokens) && len(tokens[j]) == 1 {
			b.WriteString(tokens[j])
			j++
		}
		last := j - 1
		units = append(units, models.Unit{
			Text: b.String(),
			Kind: models.KindInitialBlock,
			Span: models.Span{
				Offset: offsets[i],
				Length: offsets[last] + len(tokens[last]) - offsets[i],
			},
		})
		i = j
	}

	for i := range units {
		units[i].Ordinal = i
	}
	return units
}

// canonicalize rewrites variant tokens to the canonical spelling.
func (p *Processor) canonicalize(tokens []string) []string {
	for i, t := range tokens {
		if _, ok := p.variants[t]; ok {
			tokens[i] = constants.CanonicalMuhammad
		}
	}
	return tokens
}

// normalize lowercases, strips everything outside letters, whitespace and
// periods, collapses whitespace runs to one space, and trims the ends.
func normalize(raw string) string {
	lower := strings.ToLower(raw)
	var b strings.Builder
	b.Grow(len(lower))
	space := false
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z' || r == '.':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v':
			space = true
		}
	}
	return b.String()
}

// tokenize splits on whitespace/period boundaries, dropping empties.
func tokenize(normalized string) []string {
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return r == ' ' || r == '.'
	})
}

// Flatten rebuilds the processed name a unit sequence came from: segment
// texts as-is, initial blocks spelled back out as spaced letters. Useful for
// traces; Flatten(Segment(x)) matches the span layout of the units.
func Flatten(units []models.Unit) string {
	var b strings.Builder
	for i, u := range units {
		if i > 0 {
			b.WriteByte(' ')
		}
		if u.Kind == models.KindInitialBlock {
			for j, r := range u.Text {
				if j > 0 {
					b.WriteByte(' ')
				}
				b.WriteRune(r)
			}
			continue
		}
		b.WriteString(u.Text)
	}
	return b.String()
}
