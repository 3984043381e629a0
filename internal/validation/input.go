package validation

import (
	"fmt"

	"phonetic-name-match/internal/models"
)

// ValidateName checks a raw name against the configured maximum length.
// Empty names are fine; they score zero downstream rather than erroring.
func ValidateName(name string, maxLen int) error {
	if maxLen > 0 && len(name) > maxLen {
		return fmt.Errorf("name must be at most %d characters", maxLen)
	}
	return nil
}

// ValidatePair validates both names of a match request.
func ValidatePair(target, reference string, maxLen int) error {
	if err := ValidateName(target, maxLen); err != nil {
		return fmt.Errorf("name1: %w", err)
	}
	if err := ValidateName(reference, maxLen); err != nil {
		return fmt.Errorf("name2: %w", err)
	}
	return nil
}

// ValidateBatch validates a batch of match requests.
// Returns a map of request index to error message; empty map means all valid.
func ValidateBatch(requests []models.MatchRequest, maxPairs, maxLen int) map[int]string {
	errors := make(map[int]string)

	if maxPairs > 0 && len(requests) > maxPairs {
		for i := maxPairs; i < len(requests); i++ {
			errors[i] = fmt.Sprintf("batch exceeds %d pairs", maxPairs)
		}
	}

	limit := len(requests)
	if maxPairs > 0 && limit > maxPairs {
		limit = maxPairs
	}
	for i := 0; i < limit; i++ {
		if err := ValidatePair(requests[i].Target, requests[i].Reference, maxLen); err != nil {
			errors[i] = err.Error()
		}
	}

	return errors
}
