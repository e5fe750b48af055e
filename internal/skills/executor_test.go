package skills

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nexuscore/agentcore/pkg/models"
)

type fakeInvoker struct {
	calls   []models.ToolInvocation
	results map[string]models.ToolResult
	errs    map[string]error
}

func (f *fakeInvoker) Invoke(ctx context.Context, inv models.ToolInvocation) (models.ToolResult, error) {
	f.calls = append(f.calls, inv)
	if err, ok := f.errs[inv.ToolName]; ok {
		return models.ToolResult{}, err
	}
	return f.results[inv.ToolName], nil
}

func testSkill(steps ...models.SkillStep) models.Skill {
	return models.Skill{ID: "s1", Name: "s1", Steps: steps}
}

func TestExecutorSubstitutesVariables(t *testing.T) {
	inv := &fakeInvoker{results: map[string]models.ToolResult{
		"file_read": {Content: "ok"},
	}}
	ex := NewExecutor(inv, DefaultExecutorConfig())

	skill := testSkill(models.SkillStep{
		Order: 0, ToolName: "file_read",
		InputTmpl: `{"path": "{{variable_1}}"}`,
		OnError:   models.ActionAbort,
	})

	result, err := ex.Run(context.Background(), "exec1", skill, map[string]string{"variable_1": "/tmp/a.txt"}, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success")
	}
	if len(inv.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(inv.calls))
	}
	var decoded map[string]string
	if err := json.Unmarshal(inv.calls[0].Input, &decoded); err != nil {
		t.Fatalf("decode input: %v", err)
	}
	if decoded["path"] != "/tmp/a.txt" {
		t.Fatalf("path = %q, want /tmp/a.txt", decoded["path"])
	}
}

func TestExecutorAbortOnError(t *testing.T) {
	inv := &fakeInvoker{results: map[string]models.ToolResult{
		"a": {IsError: true, Diagnosis: "boom"},
	}}
	ex := NewExecutor(inv, DefaultExecutorConfig())

	skill := testSkill(
		models.SkillStep{Order: 0, ToolName: "a", InputTmpl: `{}`, OnError: models.ActionAbort},
		models.SkillStep{Order: 1, ToolName: "b", InputTmpl: `{}`, OnError: models.ActionAbort},
	)

	result, err := ex.Run(context.Background(), "exec1", skill, nil, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure")
	}
	if len(result.Steps) != 1 {
		t.Fatalf("steps recorded = %d, want 1 (second step should not run)", len(result.Steps))
	}
}

func TestExecutorContinueOnError(t *testing.T) {
	inv := &fakeInvoker{results: map[string]models.ToolResult{
		"a": {IsError: true, Diagnosis: "boom"},
		"b": {Content: "ok"},
	}}
	ex := NewExecutor(inv, DefaultExecutorConfig())

	skill := testSkill(
		models.SkillStep{Order: 0, ToolName: "a", InputTmpl: `{}`, OnError: models.ActionContinue},
		models.SkillStep{Order: 1, ToolName: "b", InputTmpl: `{}`, OnError: models.ActionAbort},
	)

	result, err := ex.Run(context.Background(), "exec1", skill, nil, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("steps recorded = %d, want 2", len(result.Steps))
	}
	if len(inv.calls) != 2 {
		t.Fatalf("calls = %d, want 2 (should proceed past a Continue error)", len(inv.calls))
	}
}

func TestExecutorRetriesUpToLimit(t *testing.T) {
	attempts := 0
	inv := &fakeInvoker{}
	inv.results = map[string]models.ToolResult{}
	ex := NewExecutor(&countingInvoker{fakeInvoker: inv, onCall: func() { attempts++ }}, DefaultExecutorConfig())

	skill := testSkill(models.SkillStep{Order: 0, ToolName: "flaky", InputTmpl: `{}`, OnError: models.ActionRetry, RetryLimit: 2})

	_, err := ex.Run(context.Background(), "exec1", skill, nil, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3 (1 initial + 2 retries)", attempts)
	}
}

type countingInvoker struct {
	*fakeInvoker
	onCall func()
}

func (c *countingInvoker) Invoke(ctx context.Context, inv models.ToolInvocation) (models.ToolResult, error) {
	c.onCall()
	return models.ToolResult{IsError: true, Diagnosis: "still flaky"}, nil
}

func TestExecutorDryRunDoesNotDispatch(t *testing.T) {
	inv := &fakeInvoker{}
	ex := NewExecutor(inv, DefaultExecutorConfig())

	skill := testSkill(models.SkillStep{Order: 0, ToolName: "rm_everything", InputTmpl: `{}`, OnError: models.ActionAbort})

	result, err := ex.Run(context.Background(), "exec1", skill, nil, true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.DryRun {
		t.Fatal("expected DryRun flag set")
	}
	if len(inv.calls) != 0 {
		t.Fatalf("calls = %d, want 0 in dry-run mode", len(inv.calls))
	}
	if len(result.Steps) != 1 {
		t.Fatalf("expected planned step recorded even in dry run")
	}
}

func TestExecutorTooManySteps(t *testing.T) {
	cfg := DefaultExecutorConfig()
	cfg.MaxSteps = 1
	ex := NewExecutor(&fakeInvoker{}, cfg)

	skill := testSkill(
		models.SkillStep{Order: 0, ToolName: "a", InputTmpl: `{}`},
		models.SkillStep{Order: 1, ToolName: "b", InputTmpl: `{}`},
	)

	_, err := ex.Run(context.Background(), "exec1", skill, nil, false)
	if err != ErrTooManySteps {
		t.Fatalf("err = %v, want ErrTooManySteps", err)
	}
}

func TestExecutorVariableTooLarge(t *testing.T) {
	cfg := DefaultExecutorConfig()
	cfg.MaxVariableLen = 4
	ex := NewExecutor(&fakeInvoker{}, cfg)

	skill := testSkill(models.SkillStep{Order: 0, ToolName: "a", InputTmpl: `{{v}}`})

	_, err := ex.Run(context.Background(), "exec1", skill, map[string]string{"v": "too long"}, false)
	if err == nil || !strings.Contains(err.Error(), "exceeds configured maximum") {
		t.Fatalf("err = %v, want ErrVariableTooLarge", err)
	}
}
