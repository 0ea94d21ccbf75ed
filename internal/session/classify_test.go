// ABOUTME: Tests for substring intent classification
// ABOUTME: Covers the routing triple and the documented misclassification

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{text: "what's the weather like today?", want: IntentWeather},
		{text: "what's in the news today?", want: IntentNews},
		{text: "help me brainstorm ideas", want: IntentGeneral},
		{text: "WEATHER", want: IntentWeather},
		{text: "Any News?", want: IntentNews},
		{text: "", want: IntentGeneral},
		// Known heuristic limitation: substring match, not word match.
		{text: "I read the newspaper", want: IntentNews},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIntent(tt.text))
		})
	}
}
