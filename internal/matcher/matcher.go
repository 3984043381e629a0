// Package matcher runs the full comparison pipeline: segment both names,
// encode every unit, pair the units greedily, then fold the pair scores into
// a percentage and a label.
package matcher

import (
	"fmt"
	"math"

	"phonetic-name-match/internal/assignment"
	"phonetic-name-match/internal/constants"
	"phonetic-name-match/internal/decision"
	"phonetic-name-match/internal/encoder"
	"phonetic-name-match/internal/models"
	"phonetic-name-match/internal/processor"
	"phonetic-name-match/internal/similarity"
	"phonetic-name-match/internal/validation"
	errs "phonetic-name-match/pkg/errors"
)

// Config tunes the whole pipeline. It is copied at construction; changing a
// Config after New has no effect on a running Matcher.
type Config struct {
	// MuhammadVariants are the spellings rewritten to the canonical form
	// during segmentation.
	MuhammadVariants []string `json:"muhammad_variants" yaml:"muhammad_variants"`

	// PhoneticWeight and LiteralWeight blend the two channels when the
	// phonetic score is a perfect 1.0. They must sum to 1.0.
	PhoneticWeight float64 `json:"phonetic_weight" yaml:"phonetic_weight"`
	LiteralWeight  float64 `json:"literal_weight" yaml:"literal_weight"`

	// Buckets is the percentage-to-label table.
	Buckets []decision.Bucket `json:"buckets" yaml:"buckets"`

	// MaxInputLength rejects raw names longer than this before segmentation.
	// Zero disables the check.
	MaxInputLength int `json:"max_input_length" yaml:"max_input_length"`
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		MuhammadVariants: constants.DefaultMuhammadVariants(),
		PhoneticWeight:   constants.DefaultPhoneticWeight,
		LiteralWeight:    constants.DefaultLiteralWeight,
		Buckets:          decision.DefaultConfig().Buckets,
		MaxInputLength:   constants.DefaultMaxInputLength,
	}
}

// Validate checks weights and the label table. Failures are config errors;
// the caller should treat them as fatal at startup.
func (c Config) Validate() error {
	const op = "matcher.Config.Validate"
	if c.PhoneticWeight < 0 || c.PhoneticWeight > 1 {
		return errs.NewConfig(op, fmt.Sprintf("phonetic weight %.4f out of range", c.PhoneticWeight), nil)
	}
	if c.LiteralWeight < 0 || c.LiteralWeight > 1 {
		return errs.NewConfig(op, fmt.Sprintf("literal weight %.4f out of range", c.LiteralWeight), nil)
	}
	if math.Abs(c.PhoneticWeight+c.LiteralWeight-1.0) > 1e-9 {
		return errs.NewConfig(op, fmt.Sprintf("weights must sum to 1.0, got %.4f", c.PhoneticWeight+c.LiteralWeight), nil)
	}
	if c.MaxInputLength < 0 {
		return errs.NewConfig(op, fmt.Sprintf("max input length %d is negative", c.MaxInputLength), nil)
	}
	return decision.Config{Buckets: c.Buckets}.Validate()
}

// Matcher compares two raw names. Immutable after construction; safe for
// concurrent use.
type Matcher struct {
	cfg       Config
	segmenter processor.Segmenter
	encoder   encoder.Encoder
	solver    *assignment.Solver
	labels    *decision.Engine
}

// New builds a Matcher from configuration alone, wiring the standard
// segmenter and double metaphone encoder.
func New(cfg Config) (*Matcher, error) {
	return NewWithComponents(processor.New(cfg.MuhammadVariants), encoder.New(), cfg)
}

// NewWithComponents builds a Matcher around a caller-supplied segmenter and
// encoder. The segmenter owns canonicalization, so cfg.MuhammadVariants is
// not consulted on this path.
func NewWithComponents(seg processor.Segmenter, enc encoder.Encoder, cfg Config) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	labels, err := decision.NewEngine(decision.Config{Buckets: cfg.Buckets})
	if err != nil {
		return nil, err
	}
	scorer := similarity.New(cfg.PhoneticWeight, cfg.LiteralWeight)
	return &Matcher{
		cfg:       cfg,
		segmenter: seg,
		encoder:   enc,
		solver:    assignment.New(scorer),
		labels:    labels,
	}, nil
}

// NewDefault builds a Matcher with DefaultConfig.
func NewDefault() (*Matcher, error) {
	return New(DefaultConfig())
}

// Match compares target against reference and returns the scored result.
// The comparison is directional: the denominator is the target's unit count,
// so Match(a, b) and Match(b, a) can disagree when the names have different
// numbers of units.
func (m *Matcher) Match(target, reference string) (models.MatchResult, error) {
	const op = "matcher.Match"
	if err := validation.ValidatePair(target, reference, m.cfg.MaxInputLength); err != nil {
		return models.MatchResult{}, errs.NewInput(op, "input rejected", err)
	}

	targetSegments := m.segmenter.Segment(target)
	referenceSegments := m.segmenter.Segment(reference)

	targetUnits := encoder.EncodeAll(m.encoder, targetSegments)
	referenceUnits := encoder.EncodeAll(m.encoder, referenceSegments)

	asn := m.solver.Assign(targetUnits, referenceUnits)

	raw := 0.0
	if len(targetUnits) > 0 {
		raw = asn.Sum() / float64(len(targetUnits))
	}
	percentage := int(math.Round(raw * 100))

	return models.MatchResult{
		Target:          target,
		Reference:       reference,
		TargetUnits:     targetUnits,
		ReferenceUnits:  referenceUnits,
		Assignment:      asn,
		RawScore:        raw,
		Percentage:      percentage,
		Label:           m.labels.Label(percentage),
		ProcessedTarget: processor.Flatten(targetSegments),
		ProcessedRef:    processor.Flatten(referenceSegments),
	}, nil
}

// Config returns a copy of the active configuration.
func (m *Matcher) Config() Config {
	cfg := m.cfg
	cfg.MuhammadVariants = append([]string(nil), m.cfg.MuhammadVariants...)
	cfg.Buckets = append([]decision.Bucket(nil), m.cfg.Buckets...)
	return cfg
}

// Summary reports the active settings for stats and admin views.
func (m *Matcher) Summary() map[string]interface{} {
	return map[string]interface{}{
		"phonetic_weight":  m.cfg.PhoneticWeight,
		"literal_weight":   m.cfg.LiteralWeight,
		"buckets":          m.labels.Buckets(),
		"max_input_length": m.cfg.MaxInputLength,
		"variant_count":    len(m.cfg.MuhammadVariants),
	}
}
