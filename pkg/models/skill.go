package models

import "time"

// SkillCategory classifies the origin/purpose of a skill.
type SkillCategory string

const (
	CategoryWorkflow SkillCategory = "workflow"
	CategoryCustom   SkillCategory = "custom"
	CategorySystem   SkillCategory = "system"
)

// SkillOrigin records how a skill came to exist.
type SkillOrigin string

const (
	OriginBuiltin       SkillOrigin = "builtin"
	OriginUserDefined   SkillOrigin = "user_defined"
	OriginAutoGenerated SkillOrigin = "auto_generated"
)

// SkillStatus is the lifecycle state of a Skill.
type SkillStatus string

const (
	SkillDraft    SkillStatus = "draft"
	SkillActive   SkillStatus = "active"
	SkillDisabled SkillStatus = "disabled"
)

// ErrorAction determines what the skill executor does when a step fails.
type ErrorAction string

const (
	ActionAbort    ErrorAction = "abort"
	ActionContinue ErrorAction = "continue"
	ActionRetry    ErrorAction = "retry"
)

// TriggerSet is the set of conditions that route input to a skill.
type TriggerSet struct {
	Keywords []string `json:"keywords,omitempty"`
	Regexes  []string `json:"regexes,omitempty"`
	Intents  []string `json:"intents,omitempty"`
	Priority int      `json:"priority"`
}

// Empty reports whether the trigger set has no conditions at all, which
// violates invariant (4) when the owning skill is Active.
func (t TriggerSet) Empty() bool {
	return len(t.Keywords) == 0 && len(t.Regexes) == 0 && len(t.Intents) == 0
}

// SkillStep is one tool invocation within a skill's ordered workflow.
type SkillStep struct {
	Order        int         `json:"order"`
	ToolName     string      `json:"tool_name"`
	InputTmpl    string      `json:"input_template"`
	OnError      ErrorAction `json:"on_error"`
	RetryLimit   int         `json:"retry_limit,omitempty"`
}

// SkillStats tracks rolling usage metrics for a skill.
type SkillStats struct {
	UsageCount     int64     `json:"usage_count"`
	SuccessRate    float64   `json:"success_rate"`
	MeanDurationMS int64     `json:"mean_duration_ms"`
	LastUsedAt     time.Time `json:"last_used_at,omitempty"`
}

// Skill is a named, parameterized workflow with trigger-based routing.
type Skill struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Category       SkillCategory `json:"category"`
	Origin         SkillOrigin `json:"origin"`
	Status         SkillStatus `json:"status"`
	Triggers       TriggerSet  `json:"triggers"`
	Steps          []SkillStep `json:"steps"`
	InputSchema    string      `json:"input_schema,omitempty"`
	Stats          SkillStats  `json:"stats"`
	SourcePatternID string     `json:"source_pattern_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// PatternStatus is the lifecycle state of a DetectedPattern.
type PatternStatus string

const (
	PatternDetected  PatternStatus = "detected"
	PatternConverted PatternStatus = "converted"
	PatternRejected  PatternStatus = "rejected"
	PatternExpired   PatternStatus = "expired"
)

// DetectedPattern is a mined n-gram of tool names with supporting evidence.
type DetectedPattern struct {
	ID              string        `json:"id"`
	ToolSequence    []string      `json:"tool_sequence"`
	Occurrences     int           `json:"occurrences"`
	TotalExecutions int           `json:"total_executions"`
	Keywords        []string      `json:"keywords"`
	SampleInputs    []string      `json:"sample_inputs"`
	Status          PatternStatus `json:"status"`
	SkillID         string        `json:"skill_id,omitempty"`
	DetectedAt      time.Time     `json:"detected_at"`
}

// Confidence is occurrences / total_executions, per spec.md §4.4.
func (p DetectedPattern) Confidence() float64 {
	if p.TotalExecutions == 0 {
		return 0
	}
	return float64(p.Occurrences) / float64(p.TotalExecutions)
}
