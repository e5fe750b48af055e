package eventstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nexuscore/agentcore/pkg/models"
)

func seedExecution(t *testing.T, store Store, executionID string, session models.SessionKey, text string) {
	t.Helper()
	ctx := context.Background()
	if err := store.RegisterSession(ctx, executionID, session); err != nil {
		t.Fatalf("register session: %v", err)
	}
	payload, _ := json.Marshal(models.UserInputPayload{Text: text})
	if _, err := store.Append(ctx, executionID, models.EventUserInput, payload); err != nil {
		t.Fatalf("seed append: %v", err)
	}
}

func TestReplayerViewRendersEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedExecution(t, store, "exec-1", models.SessionKey{Channel: "cli", User: "u"}, "list my files")

	finalPayload, _ := json.Marshal(models.FinalResponsePayload{Text: "done", TurnsElapsed: 2})
	store.Append(ctx, "exec-1", models.EventFinalResponse, finalPayload)

	r := NewReplayer(store)
	tl, err := r.View(ctx, "exec-1")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(tl.Entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(tl.Entries))
	}
	if tl.Entries[0].Kind != models.EventUserInput {
		t.Errorf("entries[0].Kind = %v", tl.Entries[0].Kind)
	}
}

type fakeRunner struct {
	calls []struct {
		mode    RunMode
		session models.SessionKey
		input   string
	}
	result models.Execution
}

func (f *fakeRunner) Run(ctx context.Context, mode RunMode, session models.SessionKey, input string, attachments []string) (models.Execution, error) {
	f.calls = append(f.calls, struct {
		mode    RunMode
		session models.SessionKey
		input   string
	}{mode, session, input})
	return f.result, nil
}

func TestReplayerRerunDrivesRunnerWithOriginalInput(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	session := models.SessionKey{Channel: "cli", User: "u"}
	seedExecution(t, store, "exec-1", session, "list my files")

	r := NewReplayer(store)
	runner := &fakeRunner{result: models.Execution{ID: "exec-2", Status: models.StatusSucceeded}}

	exec, err := r.Replay(ctx, "exec-1", Rerun, runner)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if exec.ID != "exec-2" {
		t.Errorf("exec.ID = %q, want exec-2", exec.ID)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("runner called %d times, want 1", len(runner.calls))
	}
	if runner.calls[0].mode != Rerun || runner.calls[0].input != "list my files" {
		t.Errorf("unexpected call: %+v", runner.calls[0])
	}
}

func TestReplayerViewOnlyRejectedByReplay(t *testing.T) {
	store := NewMemoryStore()
	r := NewReplayer(store)
	if _, err := r.Replay(context.Background(), "exec-1", ViewOnly, &fakeRunner{}); err == nil {
		t.Error("expected error when calling Replay with ViewOnly")
	}
}

func TestRecoverCrashedClosesOpenExecutions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Append(ctx, "hanging", models.EventUserInput, []byte(`{}`))
	store.Append(ctx, "hanging", models.EventToolCall, []byte(`{}`))
	store.Append(ctx, "done", models.EventUserInput, []byte(`{}`))
	store.Append(ctx, "done", models.EventFinalResponse, []byte(`{}`))

	recovered, err := RecoverCrashed(ctx, store)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if len(recovered) != 1 || recovered[0] != "hanging" {
		t.Fatalf("recovered = %v, want [hanging]", recovered)
	}

	events, _ := store.ListByExecution(ctx, "hanging")
	last := events[len(events)-1]
	if last.Kind != models.EventCrashInferred {
		t.Errorf("last event kind = %v, want crash_inferred", last.Kind)
	}

	open, err := store.OpenExecutions(ctx)
	if err != nil {
		t.Fatalf("open executions after recovery: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("open = %v, want none after recovery", open)
	}
}
