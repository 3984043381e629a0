package models

import "time"

// CandidatePair is one scored target/reference unit combination.
// Ephemeral: built fresh per match call and discarded after assignment.
// Phonetic and Literal are the sub-scores that produced Score; Blended
// records whether the literal term was mixed in (it only is when the
// phonetic score is exactly 1.0).
type CandidatePair struct {
	Target    EncodedUnit `json:"target"`
	Reference EncodedUnit `json:"reference"`
	Score     float64     `json:"score"`
	Phonetic  float64     `json:"phonetic"`
	Literal   float64     `json:"literal"`
	Blended   bool        `json:"blended"`
}

// Assignment is the solver's output: the accepted pairs, in acceptance
// order. No target unit and no reference unit appears in more than one pair.
type Assignment struct {
	Pairs []CandidatePair `json:"pairs"`
}

// Sum returns the total score of all accepted pairs.
func (a Assignment) Sum() float64 {
	var s float64
	for _, p := range a.Pairs {
		s += p.Score
	}
	return s
}

// MatchResult is what a match call returns. RawScore is normalized by the
// TARGET's unit count, so swapping target and reference can change it.
// Never persisted by the engine.
type MatchResult struct {
	Target          string        `json:"target"`
	Reference       string        `json:"reference"`
	TargetUnits     []EncodedUnit `json:"target_units"`
	ReferenceUnits  []EncodedUnit `json:"reference_units"`
	Assignment      Assignment    `json:"assignment"`
	RawScore        float64       `json:"raw_score"`
	Percentage      int           `json:"percentage"`
	Label           string        `json:"label"`
	ProcessedTarget string        `json:"processed_target"`
	ProcessedRef    string        `json:"processed_reference"`
}

// MatchRequest is one unit of batch work: two raw names plus an ID for
// correlating the result.
type MatchRequest struct {
	ID        string `json:"id,omitempty"`
	Target    string `json:"name1"`
	Reference string `json:"name2"`
}

// BatchResult pairs a request with its outcome.
type BatchResult struct {
	Request     MatchRequest `json:"request"`
	Result      *MatchResult `json:"result,omitempty"`
	Err         string       `json:"error,omitempty"`
	CompletedAt time.Time    `json:"completed_at"`
}
