// Package assignment selects a one-to-one unit pairing by global greedy
// assignment: all pairs scored, best first, both sides locked on acceptance.
// This is an approximation of maximum-weight bipartite matching, not the
// Hungarian optimum; names rarely exceed a handful of units per side.
package assignment

import (
	"sort"

	"phonetic-name-match/internal/models"
)

// PairScorer scores one target/reference combination.
// *similarity.Scorer is the production implementation.
type PairScorer interface {
	Pair(target, reference models.EncodedUnit) models.CandidatePair
}

// Solver resolves the full target×reference cross product into an
// Assignment. Stateless apart from the injected scorer; safe for concurrent
// use.
type Solver struct {
	scorer PairScorer
}

// New creates a Solver using the given pair scorer.
func New(scorer PairScorer) *Solver {
	return &Solver{scorer: scorer}
}

// Assign scores every pair, sorts best first and scans once, accepting a
// pair only when neither unit is locked yet. Ties sort by target ordinal,
// then reference ordinal, so results are deterministic. Unmatched units on
// either side simply have no pair. Complexity O(T*R log(T*R)).
func (s *Solver) Assign(target, reference []models.EncodedUnit) models.Assignment {
	if len(target) == 0 || len(reference) == 0 {
		return models.Assignment{}
	}

	pairs := make([]models.CandidatePair, 0, len(target)*len(reference))
	for _, t := range target {
		for _, r := range reference {
			pairs = append(pairs, s.scorer.Pair(t, r))
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Score != pairs[j].Score {
			return pairs[i].Score > pairs[j].Score
		}
		if pairs[i].Target.Unit.Ordinal != pairs[j].Target.Unit.Ordinal {
			return pairs[i].Target.Unit.Ordinal < pairs[j].Target.Unit.Ordinal
		}
		return pairs[i].Reference.Unit.Ordinal < pairs[j].Reference.Unit.Ordinal
	})

	lockedT := make(map[int]bool, len(target))
	lockedR := make(map[int]bool, len(reference))
	var accepted []models.CandidatePair
	for _, p := range pairs {
		if lockedT[p.Target.Unit.Ordinal] || lockedR[p.Reference.Unit.Ordinal] {
			continue
		}
		lockedT[p.Target.Unit.Ordinal] = true
		lockedR[p.Reference.Unit.Ordinal] = true
		accepted = append(accepted, p)
	}

	return models.Assignment{Pairs: accepted}
}
