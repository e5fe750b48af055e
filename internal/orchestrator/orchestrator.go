// Package orchestrator implements the ReAct loop: the single public
// operation process(normalized_message) -> final_response that opens an
// Execution, drives the plan/act/observe cycle against an LLMProvider and
// the tool registry, and seals the execution with a terminal event
// (spec.md §4.1). Grounded on the teacher's internal/agent.AgenticLoop
// state machine (Init -> Stream -> Execute Tools -> Complete/Continue),
// generalized from the teacher's streaming-chunk channel interface to this
// spec's synchronous process() contract and its five named phases.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nexuscore/agentcore/internal/config"
	"github.com/nexuscore/agentcore/internal/eventstore"
	"github.com/nexuscore/agentcore/internal/memory"
	"github.com/nexuscore/agentcore/internal/observability"
	"github.com/nexuscore/agentcore/internal/skills"
	"github.com/nexuscore/agentcore/internal/tools"
	"github.com/nexuscore/agentcore/internal/tools/policy"
	"github.com/nexuscore/agentcore/pkg/models"
)

// tracerName identifies this package's spans in any configured
// OpenTelemetry exporter.
const tracerName = "github.com/nexuscore/agentcore/internal/orchestrator"

const defaultSystemPrompt = "You are a helpful personal AI assistant with access to tools. " +
	"Use tools when they would make your answer more accurate or complete."

// Orchestrator drives the ReAct loop for one execution at a time; distinct
// executions are independent and may run concurrently (spec.md §5: "no
// global lock on the orchestrator").
type Orchestrator struct {
	provider  LLMProvider
	registry  *tools.Registry
	approvals *policy.ApprovalManager
	skills    *skills.Manager
	memory    *memory.Manager
	events    eventstore.Store
	sanitizer *Sanitizer

	defaultModel string
	cfg          config.Config
	logger       *slog.Logger

	// metrics is optional: a nil value disables all Prometheus recording
	// (used pervasively by the test suite, which has no registry to hand).
	metrics *observability.Metrics
	// tracing gates OpenTelemetry span creation; false is the zero value
	// so tests and callers that never opt in pay nothing for it.
	tracing bool
}

// WithMetrics attaches a Prometheus collector bundle, turning on turn/tool/
// execution/budget recording for this Orchestrator. Returns the receiver so
// callers can chain it onto New's result.
func (o *Orchestrator) WithMetrics(m *observability.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// WithTracing turns on OpenTelemetry spans around model calls and tool
// dispatch, reported under this package's tracerName.
func (o *Orchestrator) WithTracing(enabled bool) *Orchestrator {
	o.tracing = enabled
	return o
}

// New constructs an Orchestrator wiring every collaborator named in
// spec.md §2's data-flow description. skillsMgr and memoryMgr may both be
// nil, disabling skill pre-emption and memory retrieval/storage
// respectively — the loop treats them as optional collaborators.
func New(
	provider LLMProvider,
	registry *tools.Registry,
	approvals *policy.ApprovalManager,
	skillsMgr *skills.Manager,
	memoryMgr *memory.Manager,
	events eventstore.Store,
	cfg config.Config,
	defaultModel string,
	logger *slog.Logger,
) (*Orchestrator, error) {
	sanitizer, err := NewSanitizer(cfg.Sanitize)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		provider:     provider,
		registry:     registry,
		approvals:    approvals,
		skills:       skillsMgr,
		memory:       memoryMgr,
		events:       events,
		sanitizer:    sanitizer,
		defaultModel: defaultModel,
		cfg:          cfg,
		logger:       logger.With("component", "orchestrator"),
	}, nil
}

// Process is the orchestrator's one public operation: process a normalized
// inbound message end to end and produce the outgoing response. It is a
// thin adapter over Run using eventstore.Rerun's semantics — a brand new
// execution, full orchestration — since Process always starts fresh.
func (o *Orchestrator) Process(ctx context.Context, msg models.NormalizedMessage) (*models.OutgoingMessage, error) {
	exec, err := o.Run(ctx, eventstore.Rerun, msg.Session, msg.Text, msg.Attachments)
	if err != nil {
		return nil, err
	}
	return o.outgoingFor(ctx, exec)
}

// Run implements eventstore.Runner so the replay engine can drive Rerun and
// DryRun without eventstore importing this package.
func (o *Orchestrator) Run(ctx context.Context, mode eventstore.RunMode, session models.SessionKey, input string, attachments []string) (models.Execution, error) {
	exec := models.Execution{
		ID:        uuid.NewString(),
		Session:   session,
		Input:     input,
		StartedAt: time.Now().UTC(),
		Status:    models.StatusRunning,
	}

	if err := o.events.RegisterSession(ctx, exec.ID, session); err != nil {
		return exec, fmt.Errorf("orchestrator: register session: %w", err)
	}

	inputPayload, _ := json.Marshal(models.UserInputPayload{Text: input, Attachments: attachments})
	if _, err := o.events.Append(ctx, exec.ID, models.EventUserInput, inputPayload); err != nil {
		return exec, fmt.Errorf("orchestrator: append user input: %w", err)
	}
	if o.memory != nil {
		_, _ = o.memory.StoreTurn(ctx, session.String(), "user", input)
	}

	run := &executionRun{
		orch:    o,
		exec:    &exec,
		mode:    mode,
		budgets: newBudgetTracker(o.cfg.Budget),
		phase:   PhasePlanning,
	}
	run.loop(ctx)

	exec.EndedAt = time.Now().UTC()
	return exec, nil
}

// outgoingFor renders an Execution's FinalResponse/Error terminal event as
// the channel-facing OutgoingMessage contract (spec.md §6).
func (o *Orchestrator) outgoingFor(ctx context.Context, exec models.Execution) (*models.OutgoingMessage, error) {
	events, err := o.events.ListByExecution(ctx, exec.ID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load terminal event: %w", err)
	}
	for i := len(events) - 1; i >= 0; i-- {
		evt := events[i]
		switch evt.Kind {
		case models.EventFinalResponse:
			var p models.FinalResponsePayload
			if err := json.Unmarshal(evt.Payload, &p); err != nil {
				return nil, fmt.Errorf("orchestrator: decode final response: %w", err)
			}
			return &models.OutgoingMessage{Text: p.Text, ParseMarkdown: true, ExecutionID: exec.ID}, nil
		case models.EventError:
			var p models.ErrorPayload
			if err := json.Unmarshal(evt.Payload, &p); err != nil {
				return nil, fmt.Errorf("orchestrator: decode error: %w", err)
			}
			return &models.OutgoingMessage{Text: p.UserSafe, ParseMarkdown: false, ExecutionID: exec.ID}, nil
		}
	}
	return nil, fmt.Errorf("orchestrator: execution %s ended without a terminal event", exec.ID)
}
