package orchestrator

import (
	"fmt"
	"regexp"

	"github.com/nexuscore/agentcore/internal/config"
	"github.com/nexuscore/agentcore/pkg/models"
)

const redactedPlaceholder = "[REDACTED]"

// absolutePathPattern catches *nix and Windows absolute paths, redacted
// alongside the configured sensitive-pattern set (spec.md §4.1: "redact
// absolute file paths, API keys, and anything matching the sensitive-
// pattern set").
var absolutePathPattern = regexp.MustCompile(`(?:/(?:[\w.\-]+/)*[\w.\-]+|[A-Za-z]:\\(?:[\w.\-]+\\)*[\w.\-]+)`)

const (
	defaultMaxToolOutputText = 8 * 1024
	defaultMaxToolOutputHTML = 15 * 1024
)

// Sanitizer applies spec.md §4.1's two transcript-facing transforms:
// redaction of sensitive substrings and truncation of oversized tool
// output, plus boundary-facing error translation. Grounded on the
// teacher's internal/shell redactOutput, generalized from shell stdout to
// the full transcript and given its own configurable pattern set.
type Sanitizer struct {
	patterns []*regexp.Regexp
	maxBytes int
}

// NewSanitizer compiles cfg's redaction patterns once at startup.
func NewSanitizer(cfg config.SanitizationConfig) (*Sanitizer, error) {
	s := &Sanitizer{maxBytes: cfg.MaxToolResultBytes}
	for _, pattern := range cfg.RedactPatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: compile redact pattern %q: %w", pattern, err)
		}
		s.patterns = append(s.patterns, compiled)
	}
	if s.maxBytes <= 0 {
		s.maxBytes = defaultMaxToolOutputText
	}
	return s, nil
}

// Redact replaces every match of the configured sensitive patterns and of
// absolute file paths with a placeholder.
func (s *Sanitizer) Redact(text string) string {
	text = absolutePathPattern.ReplaceAllString(text, redactedPlaceholder)
	for _, pattern := range s.patterns {
		text = pattern.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}

// TruncateToolOutput caps content at maxBytes (isHTML selects the larger
// HTML-specific cap), appending a marker so the model knows content was
// cut. Returns the possibly-truncated content and whether truncation
// occurred.
func (s *Sanitizer) TruncateToolOutput(content string, isHTML bool) (string, bool) {
	limit := s.maxBytes
	if isHTML && limit < defaultMaxToolOutputHTML {
		limit = defaultMaxToolOutputHTML
	}
	if len(content) <= limit {
		return content, false
	}
	return content[:limit] + fmt.Sprintf("\n... [truncated %d bytes]", len(content)-limit), true
}

// userSafeMessage maps an internal ErrorKind to the user-facing synonym
// spec.md §4.1 calls for ("network/auth/database/internal"), never
// leaking the underlying error text.
func userSafeMessage(kind models.ErrorKind) string {
	switch kind {
	case models.ErrModelUnavailable:
		return "I'm having trouble reaching the language model right now. Please try again shortly."
	case models.ErrToolRejected, models.ErrSandboxViolation:
		return "That action was blocked by a safety policy."
	case models.ErrBudgetExceeded:
		return "This request grew too large to complete in one pass."
	case models.ErrCancelled:
		return "This request was interrupted and could not be completed."
	case models.ErrStorageFailure:
		return "I hit an internal storage problem. Please try again."
	case models.ErrInvalidInput:
		return "I couldn't understand part of that request."
	default:
		return "Something went wrong internally while handling that request."
	}
}
