// Package decision classifies match percentages into qualitative labels via
// an ordered bucket table.
package decision

import (
	"fmt"

	"phonetic-name-match/internal/constants"
	errs "phonetic-name-match/pkg/errors"
)

// Bucket is one inclusive percentage range and its label.
type Bucket struct {
	Min   int    `json:"min" yaml:"min"`
	Max   int    `json:"max" yaml:"max"`
	Label string `json:"label" yaml:"label"`
}

// Config holds the ordered label table. The table must cover 0..100 with no
// gaps and no overlaps; Validate enforces that before any classification
// happens.
type Config struct {
	Buckets []Bucket `json:"buckets" yaml:"buckets"`
}

// DefaultConfig returns the standard label table.
func DefaultConfig() Config {
	return Config{Buckets: []Bucket{
		{Min: 0, Max: 30, Label: "Names Do Not Match"},
		{Min: 31, Max: 60, Label: "Weak Match"},
		{Min: 61, Max: 75, Label: "Possible Match"},
		{Min: 76, Max: 88, Label: "Probable Match"},
		{Min: 89, Max: 94, Label: "Strong Match"},
		{Min: 95, Max: 99, Label: "Likely Same Name"},
		{Min: 100, Max: 100, Label: "Same Name"},
	}}
}

// Validate checks the table is usable: in order, each bucket well-formed, first
// starts at 0, last ends at 100, each bucket starts right after the previous
// one. Any violation is a ConfigError; the engine refuses to start on one.
func (c Config) Validate() error {
	const op = "decision.Config.Validate"
	if len(c.Buckets) == 0 {
		return errs.NewConfig(op, "label table is empty", nil)
	}
	for i, b := range c.Buckets {
		if b.Label == "" {
			return errs.NewConfig(op, fmt.Sprintf("bucket %d has no label", i), nil)
		}
		if b.Min > b.Max {
			return errs.NewConfig(op, fmt.Sprintf("bucket %d: min %d > max %d", i, b.Min, b.Max), nil)
		}
	}
	if first := c.Buckets[0]; first.Min != constants.PercentMin {
		return errs.NewConfig(op, fmt.Sprintf("table starts at %d, want %d", first.Min, constants.PercentMin), nil)
	}
	if last := c.Buckets[len(c.Buckets)-1]; last.Max != constants.PercentMax {
		return errs.NewConfig(op, fmt.Sprintf("table ends at %d, want %d", last.Max, constants.PercentMax), nil)
	}
	for i := 1; i < len(c.Buckets); i++ {
		prev, cur := c.Buckets[i-1], c.Buckets[i]
		if cur.Min <= prev.Max {
			return errs.NewConfig(op, fmt.Sprintf("buckets %d and %d overlap", i-1, i), nil)
		}
		if cur.Min != prev.Max+1 {
			return errs.NewConfig(op, fmt.Sprintf("gap between %d and %d (%d..%d)", i-1, i, prev.Max+1, cur.Min-1), nil)
		}
	}
	return nil
}

// Engine maps percentages to labels. Immutable after construction; safe for
// concurrent use.
type Engine struct {
	buckets []Bucket
}

// NewEngine validates the table and builds the classifier.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	buckets := make([]Bucket, len(cfg.Buckets))
	copy(buckets, cfg.Buckets)
	return &Engine{buckets: buckets}, nil
}

// Label returns the label for a percentage. Out-of-range values clamp to the
// boundary buckets; matcher output is always 0..100.
func (e *Engine) Label(percentage int) string {
	if percentage <= e.buckets[0].Max {
		return e.buckets[0].Label
	}
	for _, b := range e.buckets {
		if percentage >= b.Min && percentage <= b.Max {
			return b.Label
		}
	}
	return e.buckets[len(e.buckets)-1].Label
}

// Buckets returns a copy of the table, for display and stats endpoints.
func (e *Engine) Buckets() []Bucket {
	out := make([]Bucket, len(e.buckets))
	copy(out, e.buckets)
	return out
}
