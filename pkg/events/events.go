package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event is the base interface for match activity events.
// Keep payloads small, use JSON-friendly fields.
type Event interface {
	Type() string
	Timestamp() time.Time
	Editor() *string
	MarshalData() ([]byte, error)
}

// Base contains common event metadata.
type Base struct {
	Ts time.Time `json:"ts"`
	Ed *string   `json:"editor,omitempty"`
}

func (b Base) Timestamp() time.Time { return b.Ts }
func (b Base) Editor() *string      { return b.Ed }

// --- Concrete events ---

const (
	TypeMatchScored    = "match.scored"
	TypeBatchCompleted = "match.batch.completed"
)

// MatchScored is emitted for every interactive comparison.
type MatchScored struct {
	Base
	Target     string `json:"target"`
	Reference  string `json:"reference"`
	Percentage int    `json:"percentage"`
	Label      string `json:"label"`
}

func (e MatchScored) Type() string                 { return TypeMatchScored }
func (e MatchScored) MarshalData() ([]byte, error) { return json.Marshal(e) }

// BatchCompleted is emitted when a batch job finishes, whatever the outcome.
type BatchCompleted struct {
	Base
	JobID         string  `json:"job_id"`
	Pairs         int     `json:"pairs"`
	Errored       int     `json:"errored"`
	AvgPercentage float64 `json:"avg_percentage"`
	Failed        bool    `json:"failed"`
}

func (e BatchCompleted) Type() string                 { return TypeBatchCompleted }
func (e BatchCompleted) MarshalData() ([]byte, error) { return json.Marshal(e) }

// Store defines append and recent-activity listing.
// Implementations must preserve append order.
type Store interface {
	Append(ctx context.Context, e Event) error
	Recent(n int) []StoredEvent
}

// StoredEvent is the retained representation.
// Seq is monotonic within a store instance.
type StoredEvent struct {
	Seq     int64     `json:"seq"`
	Type    string    `json:"type"`
	Ts      time.Time `json:"ts"`
	Editor  *string   `json:"editor,omitempty"`
	Payload []byte    `json:"payload"` // original JSON
}
