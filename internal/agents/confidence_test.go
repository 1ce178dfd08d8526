package agents

import (
	"testing"

	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSelfConfidenceFor(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		usedKnowledge bool
		expected      domain.SelfConfidence
	}{
		{"NoKnowledgeIsLow", "Habari yako!", false, domain.SelfConfidenceLow},
		{"NoKnowledgeStillLowWithHedge", "I'm not sure, but habari?", false, domain.SelfConfidenceLow},
		{"GroundedAndConfident", "Shikamoo is the respectful greeting for elders.", true, domain.SelfConfidenceHigh},
		{"GroundedButHedged", "I'm not sure, but shikamoo may be used here.", true, domain.SelfConfidenceMedium},
		{"HedgeCaseInsensitive", "I am UNCERTAIN about the dialect form.", true, domain.SelfConfidenceMedium},
		{"DontKnowMarker", "Honestly, I don't know the plural form.", true, domain.SelfConfidenceMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SelfConfidenceFor(tt.text, tt.usedKnowledge))
		})
	}
}
