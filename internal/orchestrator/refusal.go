package orchestrator

import (
	"regexp"
	"strings"
)

// fakeToolMarkerPattern matches text like "[Used 1 tool: web_search:OK]" —
// a model hallucinating a tool-call summary instead of actually issuing
// one, per spec.md §4.1's fake-tool-use heuristic.
var fakeToolMarkerPattern = regexp.MustCompile(`(?i)\[used\s+\d+\s+tools?:[^\]]*\]`)

const shortRefusalWordLimit = 12

// refusalPhrases are short, hedging phrases typical of a model declining
// to act when a tool call was expected.
var refusalPhrases = []string{
	"i can't help with that",
	"i cannot help with that",
	"i'm not able to",
	"i am not able to",
	"i won't be able to",
	"as an ai",
	"i don't have the ability",
}

// looksLikeRefusal reports whether text, in a context where a tool call
// was expected (toolsOffered > 0 and no tool calls were actually issued),
// is a suspected tool refusal: short, hedging, without a tool call.
func looksLikeRefusal(text string, toolsOffered int, toolCallCount int) bool {
	if toolCallCount > 0 || toolsOffered == 0 {
		return false
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	// A short, hedging-free reply in a tool-expected context is still
	// suspicious (e.g. "I'm not sure.") but a short factual answer isn't —
	// require at least one hedging cue below the word-count threshold so a
	// terse correct answer never gets misclassified as a refusal.
	wordCount := len(strings.Fields(trimmed))
	return wordCount <= shortRefusalWordLimit && containsHedge(lower)
}

func containsHedge(lower string) bool {
	hedges := []string{"sorry", "unable", "can't", "cannot", "not sure", "don't know", "unfortunately"}
	for _, h := range hedges {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// hasFakeToolMarker reports whether text contains a hallucinated
// tool-use summary marker rather than a real tool-call structure.
func hasFakeToolMarker(text string, toolCallCount int) bool {
	return toolCallCount == 0 && fakeToolMarkerPattern.MatchString(text)
}

// reflectionPrompt builds the short system-role nudge injected after a
// suspected refusal, re-stating the required behavior.
func reflectionPrompt(reason string) string {
	return "Reminder: you have tools available for this request. " +
		"If a tool is needed to answer accurately, call it using the " +
		"tool-call mechanism rather than describing the action in text. " +
		"(" + reason + ")"
}
