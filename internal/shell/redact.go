package shell

import "regexp"

// defaultRedactPatterns catches common secret shapes that might otherwise
// leak into tool output visible to the model — API keys, AWS access keys,
// PEM-encoded private key blocks. Layer 5 of the shell defense; the
// orchestrator applies a second, configurable pass (internal/config
// SanitizationConfig) on top of this one.
var defaultRedactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?s)-----BEGIN [A-Z ]+PRIVATE KEY-----.*?-----END [A-Z ]+PRIVATE KEY-----`),
	regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`),
}

const redactedPlaceholder = "[REDACTED]"

// redactOutput masks every match of defaultRedactPatterns in s.
func redactOutput(s string) string {
	for _, pattern := range defaultRedactPatterns {
		s = pattern.ReplaceAllString(s, redactedPlaceholder)
	}
	return s
}
