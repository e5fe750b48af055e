package skills

import (
	"context"
	"testing"

	"github.com/nexuscore/agentcore/pkg/models"
)

func newTestManager() *Manager {
	cfg := DefaultManagerConfig()
	return NewManager(cfg, NewMemoryStore(), NewMemoryPatternStore(), nil, nil, nil)
}

func TestManagerMineAndGenerateBelowOccurrenceThreshold(t *testing.T) {
	m := newTestManager()
	records := []ExecutionRecord{
		{ToolSequence: []string{"file_read", "file_write"}, UserInput: "read and write the file"},
		{ToolSequence: []string{"file_read", "file_write"}, UserInput: "read and write the file"},
	} // 2 occurrences, default MinOccurrences is 3

	created, err := m.MineAndGenerate(context.Background(), records)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("created = %d, want 0 below min_occurrences", len(created))
	}
}

func TestManagerMineAndGenerateConvertsPattern(t *testing.T) {
	cfg := DefaultManagerConfig()
	cfg.Analyzer.MinNGram = 3
	cfg.Analyzer.MaxNGram = 3
	m := NewManager(cfg, NewMemoryStore(), NewMemoryPatternStore(), nil, nil, nil)

	rec := ExecutionRecord{
		ToolSequence: []string{"file_read", "file_write", "git_commit"},
		UserInput:    "read the file and commit it",
	}
	records := []ExecutionRecord{rec, rec, rec}

	created, err := m.MineAndGenerate(context.Background(), records)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created = %d, want 1", len(created))
	}
	if created[0].Status != models.SkillDraft {
		t.Fatalf("status = %v, want Draft", created[0].Status)
	}
	if created[0].SourcePatternID == "" {
		t.Fatal("expected SourcePatternID to be set")
	}

	patterns, err := m.patterns.List(context.Background())
	if err != nil {
		t.Fatalf("list patterns: %v", err)
	}
	if len(patterns) != 1 || patterns[0].Status != models.PatternConverted {
		t.Fatalf("expected exactly one Converted pattern, got %+v", patterns)
	}
	if patterns[0].SkillID != created[0].ID {
		t.Fatalf("pattern skill id = %q, want %q", patterns[0].SkillID, created[0].ID)
	}
}

func TestManagerActivateRequiresTriggers(t *testing.T) {
	m := newTestManager()
	skill, err := m.skillsDB.Create(context.Background(), models.Skill{
		Name: "untriggered", Status: models.SkillDraft,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := m.Activate(context.Background(), skill.ID); err == nil {
		t.Fatal("expected activation to fail without triggers")
	}
}

func TestManagerActivateAndRoute(t *testing.T) {
	m := newTestManager()
	skill, err := m.skillsDB.Create(context.Background(), models.Skill{
		Name: "greeter", Status: models.SkillDraft,
		Triggers: models.TriggerSet{Keywords: []string{"hello"}, Priority: 1},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := m.Activate(context.Background(), skill.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	match, ok := m.Route("hello there")
	if !ok || match.Skill.ID != skill.ID {
		t.Fatalf("expected routed match to %q, got %+v ok=%v", skill.ID, match, ok)
	}
}

func TestManagerExecuteRecordsUsage(t *testing.T) {
	m := newTestManager()
	skill, err := m.skillsDB.Create(context.Background(), models.Skill{
		Name: "doit",
		Steps: []models.SkillStep{
			{Order: 0, ToolName: "noop", InputTmpl: `{}`, OnError: models.ActionAbort},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	inv := &fakeInvoker{results: map[string]models.ToolResult{"noop": {Content: "done"}}}
	executor := NewExecutor(inv, DefaultExecutorConfig())

	result, err := m.Execute(context.Background(), executor, "exec1", skill.ID, nil, false)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success")
	}

	updated, err := m.skillsDB.Get(context.Background(), skill.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if updated.Stats.UsageCount != 1 {
		t.Fatalf("usage count = %d, want 1", updated.Stats.UsageCount)
	}
}
