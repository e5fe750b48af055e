// Package policy implements the risk-gated approval protocol threaded
// through every tool invocation (spec.md §4.2). Grounded on the teacher's
// internal/tools/policy/{types,approval}.go.
package policy

import (
	"github.com/nexuscore/agentcore/pkg/models"
)

// Mode selects how approval is gated across an execution.
type Mode string

const (
	ModeAlways    Mode = "always"     // every risky tool call requires approval
	ModeRiskyOnly Mode = "risky_only" // only High/Destructive risk calls require approval (default)
	ModeNever     Mode = "never"      // approval is never required (use with care)
)

// Profile is the per-execution approval configuration, including the
// supplemented elevated-full-bypass allowlist (SPEC_FULL.md §4).
type Profile struct {
	Mode              Mode
	ElevatedFull      bool
	ElevatedAllowlist []string
}

// RequiresApproval reports whether invoking a tool with the given risk
// level and name requires the approval protocol under this profile.
func (p Profile) RequiresApproval(riskLevel models.RiskLevel, toolName string) bool {
	if p.ElevatedFull && matchesAllowlist(p.ElevatedAllowlist, toolName) {
		return false
	}
	switch p.Mode {
	case ModeNever:
		return false
	case ModeAlways:
		return true
	case ModeRiskyOnly:
		return riskLevel.Risky()
	default:
		return riskLevel.Risky()
	}
}

func matchesAllowlist(patterns []string, toolName string) bool {
	for _, pattern := range patterns {
		if pattern == toolName || pattern == "*" {
			return true
		}
		if matched, _ := simpleGlobMatch(pattern, toolName); matched {
			return true
		}
	}
	return false
}

// simpleGlobMatch supports a single trailing "*" wildcard (e.g. "file_*"),
// matching the teacher's allowlist pattern shape without pulling in a
// general glob library for one wildcard form.
func simpleGlobMatch(pattern, name string) (bool, error) {
	if len(pattern) == 0 {
		return pattern == name, nil
	}
	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix, nil
	}
	return pattern == name, nil
}
