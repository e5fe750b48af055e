package exec

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nexuscore/agentcore/internal/config"
	"github.com/nexuscore/agentcore/internal/shell"
	"github.com/nexuscore/agentcore/pkg/models"
)

func TestHandlerRunsCommand(t *testing.T) {
	cfg := config.DefaultShellConfig()
	cfg.WorkspaceRoot = t.TempDir()
	cfg.MaxWallClock = 2 * time.Second
	executor := shell.NewExecutor(cfg)

	handler := Handler(executor)
	input, _ := json.Marshal(map[string]string{"command": "echo hi"})
	result, err := handler(context.Background(), models.ToolInvocation{
		CorrelationID: "c1",
		Input:         input,
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.CorrelationID != "c1" {
		t.Errorf("correlation id = %q, want c1", result.CorrelationID)
	}
	if result.IsError {
		t.Errorf("unexpected error result: %+v", result)
	}
}

func TestHandlerRejectsMalformedInput(t *testing.T) {
	cfg := config.DefaultShellConfig()
	cfg.WorkspaceRoot = t.TempDir()
	executor := shell.NewExecutor(cfg)
	handler := Handler(executor)

	result, err := handler(context.Background(), models.ToolInvocation{Input: []byte(`not json`)})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Error("expected malformed input to surface as an error result")
	}
}

func TestDefinitionIsDestructiveRisk(t *testing.T) {
	if !Definition().RiskLevel.Risky() {
		t.Error("exec_shell should be classified as risky (Destructive)")
	}
}
