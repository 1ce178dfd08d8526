package agents

import (
	"strings"

	"github.com/sauti-labs/lugha/internal/domain"
)

// uncertaintyMarkers is the fixed lexicon that downgrades self-confidence.
// Keeping it static makes self-reporting reproducible instead of trusting
// the model's own claimed confidence.
var uncertaintyMarkers = []string{
	"not sure",
	"don't know",
	"do not know",
	"uncertain",
	"unsure",
	"cannot be certain",
	"can't be certain",
	"i may be wrong",
}

// SelfConfidenceFor derives the translator's self-report from two
// deterministic signals: whether knowledge grounded the answer, and whether
// the generated text hedges.
func SelfConfidenceFor(text string, usedKnowledge bool) domain.SelfConfidence {
	if !usedKnowledge {
		return domain.SelfConfidenceLow
	}
	if containsUncertaintyMarker(text) {
		return domain.SelfConfidenceMedium
	}
	return domain.SelfConfidenceHigh
}

func containsUncertaintyMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
