package scorer

import "github.com/sells-group/viability-cli/internal/model"

// Verdict thresholds. Scores at or below doNotOpenMax are DO_NOT_OPEN,
// scores at or below withConditionsMax are OPEN_WITH_CONDITIONS.
const (
	doNotOpenMax      = 39
	withConditionsMax = 69
)

// PickVerdict maps a viability score to its verdict.
func PickVerdict(score int) model.Verdict {
	switch {
	case score <= doNotOpenMax:
		return model.VerdictDoNotOpen
	case score <= withConditionsMax:
		return model.VerdictOpenWithConditions
	default:
		return model.VerdictOpen
	}
}
