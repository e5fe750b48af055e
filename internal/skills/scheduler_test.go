package skills

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nexuscore/agentcore/pkg/models"
)

type fakeEventSource struct {
	events []models.Event
}

func (f *fakeEventSource) Recent(ctx context.Context, limit int) ([]models.Event, error) {
	if len(f.events) > limit {
		return f.events[len(f.events)-limit:], nil
	}
	return f.events, nil
}

func toolCallEvent(executionID, tool string, age time.Duration) models.Event {
	payload, _ := json.Marshal(models.ToolCallPayload{ToolName: tool})
	return models.Event{
		ExecutionID: executionID,
		Kind:        models.EventToolCall,
		Timestamp:   time.Now().UTC().Add(-age),
		Payload:     payload,
	}
}

func userInputEvent(executionID, text string, age time.Duration) models.Event {
	payload, _ := json.Marshal(models.UserInputPayload{Text: text})
	return models.Event{
		ExecutionID: executionID,
		Kind:        models.EventUserInput,
		Timestamp:   time.Now().UTC().Add(-age),
		Payload:     payload,
	}
}

func TestSchedulerSweepGeneratesSkillFromRecentExecutions(t *testing.T) {
	src := &fakeEventSource{events: []models.Event{
		userInputEvent("exec-1", "please read the config and commit it", time.Hour),
		toolCallEvent("exec-1", "file_read", time.Hour),
		toolCallEvent("exec-1", "file_write", time.Hour),
		userInputEvent("exec-2", "read the config please", 2*time.Hour),
		toolCallEvent("exec-2", "file_read", 2*time.Hour),
		toolCallEvent("exec-2", "file_write", 2*time.Hour),
		userInputEvent("exec-3", "can you read the config", 3*time.Hour),
		toolCallEvent("exec-3", "file_read", 3*time.Hour),
		toolCallEvent("exec-3", "file_write", 3*time.Hour),
	}}

	cfg := DefaultManagerConfig()
	cfg.Analyzer.MinNGram = 2
	cfg.Analyzer.MaxNGram = 2
	manager := NewManager(cfg, NewMemoryStore(), NewMemoryPatternStore(), nil, nil, nil)

	sched, err := NewScheduler(SchedulerConfig{
		CronSpec:    "0 * * * *",
		WindowDays:  30,
		RecentLimit: 100,
	}, src, manager, nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	created, err := sched.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created = %d, want 1", len(created))
	}

	triggers := created[0].Triggers.Keywords
	found := false
	for _, kw := range triggers {
		if kw == "config" {
			found = true
		}
		if kw == "file" || kw == "write" {
			t.Fatalf("keywords %v derived from tool names, not UserInput text", triggers)
		}
	}
	if !found {
		t.Fatalf("expected keyword %q from UserInput text among %v", "config", triggers)
	}
}

func TestSchedulerSweepExcludesEventsOutsideWindow(t *testing.T) {
	src := &fakeEventSource{events: []models.Event{
		toolCallEvent("exec-1", "file_read", 40*24*time.Hour),
		toolCallEvent("exec-1", "file_write", 40*24*time.Hour),
		toolCallEvent("exec-2", "file_read", 40*24*time.Hour),
		toolCallEvent("exec-2", "file_write", 40*24*time.Hour),
		toolCallEvent("exec-3", "file_read", 40*24*time.Hour),
		toolCallEvent("exec-3", "file_write", 40*24*time.Hour),
	}}

	cfg := DefaultManagerConfig()
	manager := NewManager(cfg, NewMemoryStore(), NewMemoryPatternStore(), nil, nil, nil)

	sched, err := NewScheduler(DefaultSchedulerConfig(), src, manager, nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	created, err := sched.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("created = %d, want 0 for events outside the mining window", len(created))
	}
}

func TestNewSchedulerRejectsInvalidCronSpec(t *testing.T) {
	manager := NewManager(DefaultManagerConfig(), NewMemoryStore(), NewMemoryPatternStore(), nil, nil, nil)
	if _, err := NewScheduler(SchedulerConfig{CronSpec: "not a cron spec"}, &fakeEventSource{}, manager, nil); err == nil {
		t.Fatal("expected an error for an invalid cron spec")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	manager := NewManager(DefaultManagerConfig(), NewMemoryStore(), NewMemoryPatternStore(), nil, nil, nil)
	sched, err := NewScheduler(SchedulerConfig{CronSpec: "@every 1h", WindowDays: 30, RecentLimit: 10}, &fakeEventSource{}, manager, nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	sched.Stop()
}
