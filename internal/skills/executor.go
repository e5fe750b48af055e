package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nexuscore/agentcore/pkg/models"
)

// ToolInvoker is the subset of internal/tools.Registry the executor needs,
// kept as an interface so this package never imports internal/tools (the
// orchestrator wires the concrete registry in).
type ToolInvoker interface {
	Invoke(ctx context.Context, invocation models.ToolInvocation) (models.ToolResult, error)
}

// ExecutorConfig bounds a skill run's step count and per-variable size, the
// anti-abuse guards spec.md §4.4 names for the skill executor.
type ExecutorConfig struct {
	MaxSteps       int
	MaxVariableLen int
}

// DefaultExecutorConfig mirrors config.DefaultSkillsConfig's executor_* fields.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{MaxSteps: 50, MaxVariableLen: 100 * 1024}
}

// StepResult is the per-step diagnostic recorded in a skill run's composite
// result.
type StepResult struct {
	Order      int                `json:"order"`
	ToolName   string             `json:"tool_name"`
	Input      json.RawMessage    `json:"input"`
	Result     models.ToolResult  `json:"result"`
	Err        string             `json:"error,omitempty"`
	Attempts   int                `json:"attempts"`
	DurationMS int64              `json:"duration_ms"`
	Action     models.ErrorAction `json:"action_taken,omitempty"`
}

// RunResult is the composite outcome of one skill execution.
type RunResult struct {
	SkillID    string       `json:"skill_id"`
	Steps      []StepResult `json:"steps"`
	Success    bool         `json:"success"`
	DurationMS int64        `json:"duration_ms"`
	DryRun     bool         `json:"dry_run,omitempty"`
}

// ErrTooManySteps is returned when a skill's step count exceeds MaxSteps.
var ErrTooManySteps = fmt.Errorf("skills: step count exceeds configured maximum")

// ErrVariableTooLarge is returned when a substituted variable value
// exceeds MaxVariableLen.
type ErrVariableTooLarge struct {
	Name string
	Len  int
}

func (e *ErrVariableTooLarge) Error() string {
	return fmt.Sprintf("skills: variable %q is %d bytes, exceeds configured maximum", e.Name, e.Len)
}

// Executor dispatches a Skill's ordered steps through a ToolInvoker,
// substituting {{variable}} placeholders from a caller-supplied variable
// map. Grounded on internal/tools.Registry's invoke contract and
// internal/tools/policy's error-action vocabulary (Abort/Continue/Retry).
type Executor struct {
	tools ToolInvoker
	cfg   ExecutorConfig
}

// NewExecutor constructs an Executor.
func NewExecutor(tools ToolInvoker, cfg ExecutorConfig) *Executor {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 50
	}
	if cfg.MaxVariableLen <= 0 {
		cfg.MaxVariableLen = 100 * 1024
	}
	return &Executor{tools: tools, cfg: cfg}
}

// Run executes skill's steps in order against vars, dispatching each
// through the tool registry unless dryRun is set, in which case the
// planned invocations are recorded without dispatch (mirroring the event
// store's DryRun replay mode, spec.md §4.3/§4.4).
func (e *Executor) Run(ctx context.Context, executionID string, skill models.Skill, vars map[string]string, dryRun bool) (RunResult, error) {
	if len(skill.Steps) > e.cfg.MaxSteps {
		return RunResult{SkillID: skill.ID}, ErrTooManySteps
	}
	for name, value := range vars {
		if len(value) > e.cfg.MaxVariableLen {
			return RunResult{SkillID: skill.ID}, &ErrVariableTooLarge{Name: name, Len: len(value)}
		}
	}

	start := time.Now()
	result := RunResult{SkillID: skill.ID, DryRun: dryRun, Success: true}

	for _, step := range skill.Steps {
		if err := ctx.Err(); err != nil {
			result.Success = false
			break
		}

		input := []byte(substitute(step.InputTmpl, vars))
		stepResult := StepResult{Order: step.Order, ToolName: step.ToolName, Input: input}

		if dryRun {
			stepResult.Action = step.OnError
			result.Steps = append(result.Steps, stepResult)
			continue
		}

		attempts := 0
		retryLimit := step.RetryLimit
		if retryLimit < 0 {
			retryLimit = 0
		}
		var (
			toolResult models.ToolResult
			err        error
		)
		stepStart := time.Now()
		for {
			attempts++
			toolResult, err = e.tools.Invoke(ctx, models.ToolInvocation{
				ToolName:      step.ToolName,
				Input:         input,
				CorrelationID: uuid.NewString(),
				ExecutionID:   executionID,
			})
			if err == nil && !toolResult.IsError {
				break
			}
			if attempts > retryLimit || step.OnError != models.ActionRetry {
				break
			}
		}
		stepResult.DurationMS = time.Since(stepStart).Milliseconds()
		stepResult.Attempts = attempts
		stepResult.Result = toolResult
		if err != nil {
			stepResult.Err = err.Error()
		}

		failed := err != nil || toolResult.IsError
		if failed {
			stepResult.Action = step.OnError
			result.Steps = append(result.Steps, stepResult)
			if step.OnError == models.ActionAbort {
				result.Success = false
				break
			}
			// Continue (or an exhausted Retry) lets the run proceed to the
			// next step but the overall result is no longer a clean success.
			result.Success = false
			continue
		}

		result.Steps = append(result.Steps, stepResult)
	}

	result.DurationMS = time.Since(start).Milliseconds()
	return result, nil
}

// substitute replaces every {{name}} placeholder in tmpl with vars[name],
// leaving unmatched placeholders untouched so a missing variable surfaces
// as a literal in the tool input rather than silently vanishing.
func substitute(tmpl string, vars map[string]string) string {
	out := tmpl
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}
