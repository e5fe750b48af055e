package eventstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nexuscore/agentcore/pkg/models"
)

// RunMode selects how Replay treats an execution's recorded history.
// Grounded on the teacher's separation between read-only projections and
// live re-execution (the distinction internal/jobs draws between listing
// a job's history and re-enqueuing it).
type RunMode string

const (
	// ViewOnly reads and renders the timeline; nothing is executed.
	ViewOnly RunMode = "view_only"
	// Rerun starts a fresh execution with a new ID from the same input,
	// exercising the real tools and model calls again.
	Rerun RunMode = "rerun"
	// DryRun starts a fresh execution but intercepts every ToolCall the
	// model issues, synthesizing a success result without invoking the
	// real tool — no side effects reach the outside world.
	DryRun RunMode = "dry_run"
)

// TimelineEntry is one rendered line of a ViewOnly projection.
type TimelineEntry struct {
	Seq         int64
	Kind        models.EventKind
	Description string
}

// Timeline is the rendered, human-readable projection of an execution's
// event stream.
type Timeline struct {
	ExecutionID string
	Entries     []TimelineEntry
}

// Runner is implemented by the orchestrator so the replay engine can drive
// Rerun/DryRun without eventstore importing orchestrator (which itself
// depends on eventstore for its transcript).
type Runner interface {
	Run(ctx context.Context, mode RunMode, session models.SessionKey, input string, attachments []string) (models.Execution, error)
}

// Replayer implements spec.md §4.3's three replay modes against a Store.
type Replayer struct {
	store Store
}

// NewReplayer constructs a Replayer over store.
func NewReplayer(store Store) *Replayer {
	return &Replayer{store: store}
}

// View renders an execution's full event stream as a Timeline, without
// executing anything.
func (r *Replayer) View(ctx context.Context, executionID string) (Timeline, error) {
	events, err := r.store.ListByExecution(ctx, executionID)
	if err != nil {
		return Timeline{}, fmt.Errorf("eventstore: view %s: %w", executionID, err)
	}
	tl := Timeline{ExecutionID: executionID}
	for _, evt := range events {
		tl.Entries = append(tl.Entries, TimelineEntry{
			Seq:         evt.Seq,
			Kind:        evt.Kind,
			Description: describe(evt),
		})
	}
	return tl, nil
}

func describe(evt models.Event) string {
	switch evt.Kind {
	case models.EventUserInput:
		var p models.UserInputPayload
		_ = json.Unmarshal(evt.Payload, &p)
		return fmt.Sprintf("user input: %q", truncateForDisplay(p.Text))
	case models.EventToolCall:
		var p models.ToolCallPayload
		_ = json.Unmarshal(evt.Payload, &p)
		return fmt.Sprintf("tool call: %s (%s risk)", p.ToolName, p.RiskLevel)
	case models.EventToolResult:
		var p models.ToolResultPayload
		_ = json.Unmarshal(evt.Payload, &p)
		if p.IsError {
			return fmt.Sprintf("tool result: error (%s)", truncateForDisplay(p.Content))
		}
		return "tool result: ok"
	case models.EventFinalResponse:
		var p models.FinalResponsePayload
		_ = json.Unmarshal(evt.Payload, &p)
		return fmt.Sprintf("final response after %d turns", p.TurnsElapsed)
	case models.EventError:
		var p models.ErrorPayload
		_ = json.Unmarshal(evt.Payload, &p)
		return fmt.Sprintf("error: %s (%s)", p.Kind, truncateForDisplay(p.Message))
	case models.EventCrashInferred:
		return "crash inferred on recovery"
	default:
		return string(evt.Kind)
	}
}

func truncateForDisplay(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// Replay executes mode against executionID. ViewOnly never touches
// runner; Rerun and DryRun look up the execution's original input and
// session, then hand off to runner to actually drive a fresh execution.
func (r *Replayer) Replay(ctx context.Context, executionID string, mode RunMode, runner Runner) (*models.Execution, error) {
	if mode == ViewOnly {
		return nil, fmt.Errorf("eventstore: Replay called with ViewOnly; use View instead")
	}
	events, err := r.store.ListByExecution(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: replay %s: %w", executionID, err)
	}
	var input models.UserInputPayload
	found := false
	for _, evt := range events {
		if evt.Kind == models.EventUserInput {
			if err := json.Unmarshal(evt.Payload, &input); err != nil {
				return nil, fmt.Errorf("eventstore: replay %s: decode user input: %w", executionID, err)
			}
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("eventstore: replay %s: no user_input event found", executionID)
	}
	session, err := r.store.SessionForExecution(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: replay %s: %w", executionID, err)
	}
	exec, err := runner.Run(ctx, mode, session, input.Text, input.Attachments)
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

// RecoverCrashed scans the store for executions whose event stream has no
// terminal event and appends a synthetic CrashInferred event to each,
// closing them out. Called once at process startup, matching the
// "CrashInferred synthetic sentinel on recovery" contract of spec.md §4.3.
func RecoverCrashed(ctx context.Context, store Store) ([]string, error) {
	open, err := store.OpenExecutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("eventstore: recover crashed: %w", err)
	}
	var recovered []string
	for _, executionID := range open {
		payload, err := json.Marshal(models.ErrorPayload{
			Kind:        models.ErrCancelled,
			Message:     "process restarted mid-execution; no terminal event was recorded",
			UserSafe:    "This request was interrupted and could not be completed.",
			Recoverable: true,
		})
		if err != nil {
			return recovered, fmt.Errorf("eventstore: recover crashed: marshal payload: %w", err)
		}
		if _, err := store.Append(ctx, executionID, models.EventCrashInferred, payload); err != nil {
			return recovered, fmt.Errorf("eventstore: recover crashed: append for %s: %w", executionID, err)
		}
		recovered = append(recovered, executionID)
	}
	return recovered, nil
}
