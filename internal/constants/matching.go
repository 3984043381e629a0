package constants

// Centralized matching constants shared by the pipeline packages.
// Keep these stable; change deliberately and document why.
// These are not configuration knobs; use pkg/config for env-driven settings.

const (
	// CanonicalMuhammad is the spelling all configured variants rewrite to
	// before tokenization.
	CanonicalMuhammad = "muhammad"

	// Scoring weights. The literal term is only blended in when the
	// phonetic score is exactly 1.0; the weights must sum to 1.0.
	DefaultPhoneticWeight = 0.85
	DefaultLiteralWeight  = 0.15

	// Input limits
	DefaultMaxInputLength = 512

	// Percentage scale bounds for label buckets
	PercentMin = 0
	PercentMax = 100
)

// DefaultMuhammadVariants are full tokens rewritten to CanonicalMuhammad.
// Matching is case-insensitive and exact per token, never substring.
func DefaultMuhammadVariants() []string {
	return []string{
		"md",
		"mohd",
		"muhd",
		"moham",
		"muhammad",
		"mohammad",
		"muhammed",
		"mohammed",
		"mohamad",
		"mohamed",
	}
}
