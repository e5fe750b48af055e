package skills

import (
	"fmt"
	"strings"

	"github.com/nexuscore/agentcore/pkg/models"
)

// continuableTools are tools whose failure shouldn't necessarily abort a
// generated skill's remaining steps — read-only/side-effect-free probes
// the skill can reasonably skip past. Anything else defaults to Abort,
// the conservative choice for a machine-authored skill nobody has
// reviewed yet.
var continuableToolPrefixes = []string{"file_read", "file_list", "web_search"}

func defaultErrorAction(toolName string) models.ErrorAction {
	for _, prefix := range continuableToolPrefixes {
		if strings.HasPrefix(toolName, prefix) {
			return models.ActionContinue
		}
	}
	return models.ActionAbort
}

// Generator turns a DetectedPattern into a Draft Skill.
type Generator struct{}

// NewGenerator constructs a Generator.
func NewGenerator() *Generator { return &Generator{} }

// Generate builds a Draft skill from pattern: one step per tool in the
// mined sequence, each with a templated {{variable_N}} input placeholder
// standing in for whatever varied across the pattern's sample
// executions, and a heuristic per-step error action.
func (g *Generator) Generate(pattern models.DetectedPattern) models.Skill {
	steps := make([]models.SkillStep, 0, len(pattern.ToolSequence))
	for i, tool := range pattern.ToolSequence {
		steps = append(steps, models.SkillStep{
			Order:     i,
			ToolName:  tool,
			InputTmpl: fmt.Sprintf(`{"input": "{{variable_%d}}"}`, i+1),
			OnError:   defaultErrorAction(tool),
		})
	}

	name := strings.Join(pattern.ToolSequence, "_then_")
	return models.Skill{
		Name:            name,
		Description:     fmt.Sprintf("Auto-generated from %d observed executions of: %s", pattern.Occurrences, strings.Join(pattern.ToolSequence, " -> ")),
		Category:        models.CategoryWorkflow,
		Origin:          models.OriginAutoGenerated,
		Status:          models.SkillDraft,
		Triggers:        models.TriggerSet{Keywords: pattern.Keywords, Priority: 0},
		Steps:           steps,
		SourcePatternID: pattern.ID,
	}
}
