package pipeline

import "github.com/sauti-labs/lugha/internal/domain"

const (
	knowledgeBonus       = 5
	lowConfidencePenalty = 10
	highConfidenceBonus  = 5
)

// Compose folds the reviewer score, retrieval coverage, and the translator's
// self-report into the single composite that drives all routing. Pure
// function; retrieval coverage and self-assessment can independently pull a
// borderline reviewer score up or down.
func Compose(reviewerScore int, usedKnowledge bool, selfConfidence domain.SelfConfidence, reviewerPassed bool) int {
	score := reviewerScore

	if usedKnowledge {
		score += knowledgeBonus
	}
	if selfConfidence == domain.SelfConfidenceLow {
		score -= lowConfidencePenalty
	}
	if selfConfidence == domain.SelfConfidenceHigh && reviewerPassed {
		score += highConfidenceBonus
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
