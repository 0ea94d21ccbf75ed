// ABOUTME: Intent classification for outbound messages
// ABOUTME: Case-insensitive substring heuristic, swappable via the Classifier type

package session

import "strings"

// Intent is the routing decision for a sent message.
type Intent string

const (
	IntentWeather Intent = "weather"
	IntentNews    Intent = "news"
	IntentGeneral Intent = "general"
)

// Classifier decides which capability a message should be routed to.
// The manager takes this as a value so the heuristic can be swapped for a
// real classifier without touching the state machine.
type Classifier func(text string) Intent

// ClassifyIntent routes by case-insensitive substring match. It is a
// heuristic: text like "newspaper" will route to the news path. That is a
// known limitation, not special-cased.
func ClassifyIntent(text string) Intent {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "weather"):
		return IntentWeather
	case strings.Contains(lower, "news"):
		return IntentNews
	default:
		return IntentGeneral
	}
}
