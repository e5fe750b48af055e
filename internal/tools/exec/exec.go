// Package exec registers the shell tool (spec.md's worked "rm" scenario)
// against internal/shell's five-layer defense. Grounded on the teacher's
// shell-backed tool registration in internal/tools, wired here to the
// rebuilt internal/shell package instead of the teacher's security
// package directly.
package exec

import (
	"context"
	"encoding/json"

	"github.com/nexuscore/agentcore/internal/shell"
	"github.com/nexuscore/agentcore/pkg/models"
)

const Name = "exec_shell"

// Definition returns the tool descriptor offered to the model. Risk is
// Destructive: even with the sandbox layers applied, arbitrary shell
// execution always routes through the approval protocol under the
// default RiskyOnly policy.
func Definition() models.ToolDefinition {
	schema := []byte(`{
		"type": "object",
		"properties": {
			"command": {"type": "string", "description": "a single shell command line"}
		},
		"required": ["command"],
		"additionalProperties": false
	}`)
	return models.ToolDefinition{
		Name:        Name,
		Description: "Runs a shell command inside the sandboxed workspace and returns its output.",
		InputSchema: schema,
		RiskLevel:   models.RiskDestructive,
	}
}

type input struct {
	Command string `json:"command"`
}

// Handler returns a tools.Handler closing over executor.
func Handler(executor *shell.Executor) func(ctx context.Context, inv models.ToolInvocation) (models.ToolResult, error) {
	return func(ctx context.Context, inv models.ToolInvocation) (models.ToolResult, error) {
		var in input
		if err := json.Unmarshal(inv.Input, &in); err != nil {
			return models.ToolResult{CorrelationID: inv.CorrelationID, IsError: true, Content: "invalid input: " + err.Error()}, nil
		}
		result, err := executor.Run(ctx, in.Command)
		result.CorrelationID = inv.CorrelationID
		return result, err
	}
}
