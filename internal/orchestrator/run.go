package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nexuscore/agentcore/internal/eventstore"
	"github.com/nexuscore/agentcore/internal/observability"
	"github.com/nexuscore/agentcore/internal/retry"
	"github.com/nexuscore/agentcore/internal/skills"
	"github.com/nexuscore/agentcore/internal/tools/policy"
	"github.com/nexuscore/agentcore/pkg/models"
)

// executionRun holds the per-execution mutable state the loop advances
// through its phases. One executionRun is created per Run call and never
// shared across executions — the Orchestrator itself holds no
// per-execution state (spec.md §5: "no global lock on the orchestrator").
type executionRun struct {
	orch    *Orchestrator
	exec    *models.Execution
	mode    eventstore.RunMode
	budgets *budgetTracker
	phase   Phase

	consecutiveRefusals int
	lastAssistantText   string
}

// append marshals payload and appends it to this execution's event log.
func (r *executionRun) append(ctx context.Context, kind models.EventKind, payload interface{}) (models.Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return models.Event{}, fmt.Errorf("orchestrator: marshal %s payload: %w", kind, err)
	}
	return r.orch.events.Append(ctx, r.exec.ID, kind, data)
}

// sealWith appends a terminal event on a fresh context so the terminal
// write survives even when the run's own ctx has already been cancelled —
// invariant (3) requires exactly one terminal event no matter how the loop
// exits.
func (r *executionRun) sealWith(kind models.EventKind, payload interface{}) {
	_, _ = r.append(context.Background(), kind, payload)
}

// loop drives the Planning -> AwaitingTool -> AwaitingApproval ->
// Reflecting -> Finalizing -> Terminal cycle described in spec.md §4.1.
// Grounded on the teacher's internal/agent.AgenticLoop.Run turn loop,
// generalized from its streaming-channel contract to this package's
// synchronous, event-sourced one.
func (r *executionRun) loop(ctx context.Context) {
	r.phase = PhasePlanning
	runStart := time.Now()
	defer func() {
		if r.orch.metrics != nil {
			r.orch.metrics.TurnsTotal.WithLabelValues(string(r.exec.Status)).Inc()
			r.orch.metrics.ExecutionDuration.Observe(time.Since(runStart).Seconds())
		}
	}()

	if r.orch.tracing {
		var span trace.Span
		ctx, span = observability.StartSpan(ctx, tracerName, "orchestrator.execution")
		defer span.End()
	}

	if r.orch.skills != nil {
		r.preemptWithSkill(ctx)
	}

	for {
		if reason, hit := r.budgets.exceeded(); hit {
			r.sealBudgetExceeded(reason)
			return
		}
		if ctx.Err() != nil {
			r.sealCancelled()
			return
		}

		r.phase = PhasePlanning
		r.budgets.recordTurn()
		resp, toolsOffered, err := r.planTurn(ctx)
		if err != nil {
			r.sealModelError(err)
			return
		}

		if len(resp.ToolCalls) == 0 {
			r.phase = PhaseReflecting
			if r.handleNoToolCallTurn(ctx, resp, toolsOffered) {
				return
			}
			continue
		}

		r.consecutiveRefusals = 0
		r.phase = PhaseAwaitingTool
		if done := r.dispatchToolCalls(ctx, resp.ToolCalls); done {
			return
		}
	}
}

// planTurn assembles a CompletionRequest from the reconstructed
// transcript plus retrieved memory context, calls the provider with the
// configured retry policy, and brackets the call with ModelRequest /
// ModelResponse events.
func (r *executionRun) planTurn(ctx context.Context) (models.CompletionResponse, int, error) {
	events, err := r.orch.events.ListByExecution(ctx, r.exec.ID)
	if err != nil {
		return models.CompletionResponse{}, 0, Wrap(KindStorageFailure, "planTurn", err)
	}
	messages := eventstore.BuildTranscript(events)

	if r.orch.memory != nil {
		turns, err := r.orch.memory.RetrieveContext(ctx, r.exec.Session.String(), r.exec.Input, r.orch.cfg.Memory.MaxRetrievedTurns)
		if err == nil && len(turns) > 0 {
			messages = append([]models.CompletionMessage{{Role: "system", Content: formatMemoryContext(turns)}}, messages...)
		}
	}

	defs := r.orch.registry.List()
	toolSchemas := make([]models.ToolSchema, 0, len(defs))
	for _, def := range defs {
		toolSchemas = append(toolSchemas, models.ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}

	req := models.CompletionRequest{
		Model:    r.orch.defaultModel,
		System:   defaultSystemPrompt,
		Messages: messages,
		Tools:    toolSchemas,
	}

	if _, err := r.append(ctx, models.EventModelRequest, models.ModelRequestPayload{
		Model:         req.Model,
		SystemPrompt:  req.System,
		MessageCount:  len(req.Messages),
		ToolsOffered:  len(req.Tools),
		TurnIteration: r.budgets.turns,
	}); err != nil {
		return models.CompletionResponse{}, len(req.Tools), Wrap(KindStorageFailure, "planTurn", err)
	}

	spanCtx := ctx
	if r.orch.tracing {
		var span trace.Span
		spanCtx, span = observability.StartSpan(ctx, tracerName, "orchestrator.plan_turn")
		span.SetAttributes(attribute.String("model", req.Model), attribute.Int("tools_offered", len(req.Tools)))
		defer span.End()
	}

	var resp models.CompletionResponse
	callErr := retry.Do(spanCtx, retry.DefaultPolicy(),
		func(err error) bool { return IsRetryable(err) },
		func(ctx context.Context) error {
			tctx, cancel := context.WithTimeout(ctx, r.orch.cfg.Timeouts.Model)
			defer cancel()
			out, err := r.orch.provider.Complete(tctx, req)
			if err != nil {
				return Wrap(KindModelUnavailable, "provider.Complete", err)
			}
			resp = out
			return nil
		})
	if callErr != nil {
		return models.CompletionResponse{}, len(req.Tools), callErr
	}

	r.budgets.recordTokens(resp.TokensIn, resp.TokensOut)
	r.lastAssistantText = resp.Text

	if _, err := r.append(ctx, models.EventModelResponse, models.ModelResponsePayload{
		Text:           resp.Text,
		ToolCalls:      resp.ToolCalls,
		TokensIn:       resp.TokensIn,
		TokensOut:      resp.TokensOut,
		RefusalLike:    looksLikeRefusal(resp.Text, len(req.Tools), len(resp.ToolCalls)),
		FakeToolMarker: hasFakeToolMarker(resp.Text, len(resp.ToolCalls)),
	}); err != nil {
		return resp, len(req.Tools), Wrap(KindStorageFailure, "planTurn", err)
	}

	return resp, len(req.Tools), nil
}

// formatMemoryContext renders retrieved turns as a single system message
// prepended to the transcript, per spec.md §4.5's retrieve_context
// consumer contract.
func formatMemoryContext(turns []models.RetrievedTurn) string {
	var b strings.Builder
	b.WriteString("Relevant context from earlier conversations:\n")
	for _, t := range turns {
		fmt.Fprintf(&b, "- (%s) %s\n", t.Turn.Role, t.Turn.Content)
	}
	return b.String()
}

// handleNoToolCallTurn classifies a tool-call-free model response as
// either a suspected refusal/fake-tool-use (inject a reflection nudge and
// keep looping, or seal once strikes are exhausted) or a genuine final
// answer. Returns true if the loop should stop.
func (r *executionRun) handleNoToolCallTurn(ctx context.Context, resp models.CompletionResponse, toolsOffered int) bool {
	refusal := looksLikeRefusal(resp.Text, toolsOffered, len(resp.ToolCalls))
	fakeMarker := hasFakeToolMarker(resp.Text, len(resp.ToolCalls))

	if !refusal && !fakeMarker {
		r.finalize(ctx, resp.Text, false)
		return true
	}

	reason := "suspected tool refusal"
	if fakeMarker {
		reason = "fake tool-use marker detected"
	}
	r.consecutiveRefusals++
	if r.consecutiveRefusals > r.orch.cfg.Refusal.MaxStrikes {
		r.sealRefusalExhausted(reason)
		return true
	}

	prompt := reflectionPrompt(reason)
	_, _ = r.append(ctx, models.EventReflection, models.ReflectionPayload{
		Reason:           reason,
		InjectedPrompt:   prompt,
		ConsecutiveCount: r.consecutiveRefusals,
	})
	return false
}

// finalize seals the execution with a FinalResponse event, the loop's only
// non-error terminal path.
func (r *executionRun) finalize(ctx context.Context, text string, bestEffort bool) {
	text = r.orch.sanitizer.Redact(text)
	if r.orch.memory != nil {
		_, _ = r.orch.memory.StoreTurn(ctx, r.exec.Session.String(), "assistant", text)
	}
	r.phase = PhaseFinalizing
	r.exec.Status = models.StatusSucceeded
	r.sealWith(models.EventFinalResponse, models.FinalResponsePayload{
		Text:         text,
		BestEffort:   bestEffort,
		TurnsElapsed: r.budgets.turns,
	})
	r.phase = PhaseTerminal
}

func (r *executionRun) sealBudgetExceeded(reason string) {
	r.phase = PhaseTerminal
	r.exec.Status = models.StatusBudgetExceeded
	if r.orch.metrics != nil {
		r.orch.metrics.BudgetHits.WithLabelValues(reason).Inc()
	}
	userSafe := userSafeMessage(models.ErrBudgetExceeded)
	if r.lastAssistantText != "" {
		userSafe = r.orch.sanitizer.Redact(r.lastAssistantText) + "\n\n(" + userSafe + ")"
	}
	r.sealWith(models.EventError, models.ErrorPayload{
		Kind:        models.ErrBudgetExceeded,
		Message:     reason,
		UserSafe:    userSafe,
		Recoverable: false,
	})
}

func (r *executionRun) sealRefusalExhausted(reason string) {
	r.phase = PhaseTerminal
	r.exec.Status = models.StatusFailed
	r.sealWith(models.EventError, models.ErrorPayload{
		Kind:        models.ErrModelProtocolViolation,
		Message:     fmt.Sprintf("exceeded %d consecutive strikes: %s", r.orch.cfg.Refusal.MaxStrikes, reason),
		UserSafe:    userSafeMessage(models.ErrModelProtocolViolation),
		Recoverable: false,
	})
}

func (r *executionRun) sealModelError(err error) {
	kind, ok := KindOf(err)
	if !ok {
		kind = models.ErrModelUnavailable
	}
	r.phase = PhaseTerminal
	r.exec.Status = models.StatusFailed
	r.sealWith(models.EventError, models.ErrorPayload{
		Kind:        kind,
		Message:     err.Error(),
		UserSafe:    userSafeMessage(kind),
		Recoverable: IsRetryable(err),
	})
}

func (r *executionRun) sealCancelled() {
	r.phase = PhaseTerminal
	r.exec.Status = models.StatusCancelled
	r.sealWith(models.EventError, models.ErrorPayload{
		Kind:        models.ErrCancelled,
		Message:     "execution cancelled",
		UserSafe:    userSafeMessage(models.ErrCancelled),
		Recoverable: false,
	})
}

// preemptWithSkill checks the skill router before planning ever starts; a
// match's steps are run up front and recorded as ordinary ToolCall/
// ToolResult event pairs so the subsequent planning turn sees their
// results in its reconstructed transcript and can synthesize a final
// answer informed by them (spec.md §2: "skill router optionally pre-empts
// with a known workflow").
func (r *executionRun) preemptWithSkill(ctx context.Context) {
	match, ok := r.orch.skills.Route(r.exec.Input)
	if !ok {
		return
	}

	executor := skills.NewExecutor(r.orch.registry, skills.ExecutorConfig{
		MaxSteps:       r.orch.cfg.Skills.ExecutorMaxSteps,
		MaxVariableLen: r.orch.cfg.Skills.ExecutorMaxVariableLen,
	})

	result, err := r.orch.skills.Execute(ctx, executor, r.exec.ID, match.Skill.ID, nil, r.mode == eventstore.DryRun)
	if err != nil {
		r.orch.logger.Warn("skill pre-emption failed", "skill", match.Skill.Name, "error", err)
		return
	}

	for _, step := range result.Steps {
		correlationID := step.Result.CorrelationID
		if correlationID == "" {
			correlationID = fmt.Sprintf("%s-step-%d", match.Skill.ID, step.Order)
		}
		_, _ = r.append(ctx, models.EventToolCall, models.ToolCallPayload{
			CorrelationID: correlationID,
			ToolName:      step.ToolName,
			Input:         step.Input,
		})
		stepResult := step.Result
		stepResult.CorrelationID = correlationID
		r.recordToolResult(ctx, correlationID, stepResult, step.DurationMS)
	}
}

// dispatchToolCalls runs every tool call the model issued this turn,
// parallelizing side-effect-free tools (spec.md §4.1) and running the rest
// sequentially. Returns true if the run was sealed (context cancellation).
func (r *executionRun) dispatchToolCalls(ctx context.Context, calls []models.ToolCall) bool {
	var parallelCalls, sequentialCalls []models.ToolCall
	for _, call := range calls {
		if def, ok := r.orch.registry.Get(call.Name); ok && def.SideEffectFree {
			parallelCalls = append(parallelCalls, call)
		} else {
			sequentialCalls = append(sequentialCalls, call)
		}
	}

	if len(parallelCalls) > 0 {
		var wg sync.WaitGroup
		for _, call := range parallelCalls {
			wg.Add(1)
			go func(call models.ToolCall) {
				defer wg.Done()
				r.runOneToolCall(ctx, call)
			}(call)
		}
		wg.Wait()
	}

	for _, call := range sequentialCalls {
		if ctx.Err() != nil {
			break
		}
		r.runOneToolCall(ctx, call)
	}

	if ctx.Err() != nil {
		r.sealCancelled()
		return true
	}
	return false
}

// runOneToolCall records the ToolCall event, runs the approval protocol if
// the tool's risk level requires it under the configured policy, invokes
// the tool, and records the (sanitized, possibly truncated) ToolResult.
func (r *executionRun) runOneToolCall(ctx context.Context, call models.ToolCall) {
	def, ok := r.orch.registry.Get(call.Name)
	riskLevel := models.RiskLow
	if ok {
		riskLevel = def.RiskLevel
	}

	_, _ = r.append(ctx, models.EventToolCall, models.ToolCallPayload{
		CorrelationID: call.ID,
		ToolName:      call.Name,
		Input:         call.Input,
		RiskLevel:     riskLevel,
	})

	profile := policy.Profile{
		Mode:              policy.Mode(r.orch.cfg.Approval.Mode),
		ElevatedFull:      r.orch.cfg.Approval.ElevatedFull,
		ElevatedAllowlist: r.orch.cfg.Approval.ElevatedAllowlist,
	}

	var approvalToken string
	if profile.RequiresApproval(riskLevel, call.Name) {
		r.phase = PhaseAwaitingApproval
		approved, nonce, reason := r.awaitApproval(ctx, call, riskLevel)
		r.phase = PhaseAwaitingTool
		if !approved {
			r.recordToolResult(ctx, call.ID, models.ToolResult{
				CorrelationID: call.ID,
				IsError:       true,
				Content:       "tool call rejected: " + reason,
			}, 0)
			return
		}
		approvalToken = nonce
	}

	if r.mode == eventstore.DryRun {
		r.recordToolResult(ctx, call.ID, models.ToolResult{
			CorrelationID: call.ID,
			Content:       "dry run: tool was not actually invoked",
		}, 0)
		return
	}

	invokeCtx := ctx
	var span trace.Span
	if r.orch.tracing {
		invokeCtx, span = observability.StartSpan(ctx, tracerName, "orchestrator.tool_call")
		span.SetAttributes(attribute.String("tool", call.Name), attribute.String("risk_level", string(riskLevel)))
	}

	depthDone := r.budgets.enterToolDepth()
	tctx, cancel := context.WithTimeout(invokeCtx, r.orch.cfg.Timeouts.Tool)
	start := time.Now()
	result, err := r.orch.registry.Invoke(tctx, models.ToolInvocation{
		ToolName:      call.Name,
		Input:         call.Input,
		CorrelationID: call.ID,
		ExecutionID:   r.exec.ID,
		ApprovalToken: approvalToken,
	})
	cancel()
	depthDone()
	elapsed := time.Since(start)

	if err != nil {
		result = models.ToolResult{CorrelationID: call.ID, IsError: true, Content: err.Error()}
	}
	if span != nil {
		span.End()
	}
	if r.orch.metrics != nil {
		outcome := "ok"
		if result.IsError {
			outcome = "error"
		}
		r.orch.metrics.ObserveTool(call.Name, outcome, elapsed)
	}
	r.recordToolResult(ctx, call.ID, result, elapsed.Milliseconds())
}

// awaitApproval runs the nonce-keyed approval protocol for one risky tool
// call, recording both the request and the eventual response.
func (r *executionRun) awaitApproval(ctx context.Context, call models.ToolCall, riskLevel models.RiskLevel) (approved bool, nonce string, reason string) {
	nonce, err := policy.NewNonce()
	if err != nil {
		return false, "", "failed to generate approval nonce: " + err.Error()
	}

	timeout := r.orch.cfg.Timeouts.Approval
	timeoutAt := time.Now().Add(timeout)
	inputSummary := string(call.Input)
	if len(inputSummary) > 200 {
		inputSummary = inputSummary[:200] + "..."
	}

	_, _ = r.append(ctx, models.EventApprovalRequested,
		policy.BuildRequestedEvent(nonce, call.Name, inputSummary, call.Name, riskLevel, timeoutAt))

	r.orch.approvals.Request(nonce, timeout)
	waitErr := r.orch.approvals.Await(ctx, nonce)
	approved = waitErr == nil
	if waitErr != nil {
		reason = waitErr.Error()
	}

	_, _ = r.append(ctx, models.EventApprovalResponse, models.ApprovalResponsePayload{
		Nonce:    nonce,
		Approved: approved,
		Reason:   reason,
	})
	return approved, nonce, reason
}

// recordToolResult sanitizes and possibly truncates a tool's output before
// appending the ToolResult event, so neither the model's next turn nor a
// human viewing the event log ever sees unredacted secrets or unbounded
// content (spec.md §4.1).
func (r *executionRun) recordToolResult(ctx context.Context, correlationID string, result models.ToolResult, durationMS int64) {
	content, truncated := r.orch.sanitizer.TruncateToolOutput(result.Content, looksLikeHTML(result.Content))
	content = r.orch.sanitizer.Redact(content)
	_, _ = r.append(ctx, models.EventToolResult, models.ToolResultPayload{
		CorrelationID: correlationID,
		Content:       content,
		IsError:       result.IsError,
		Diagnosis:     result.Diagnosis,
		Truncated:     truncated,
		DurationMS:    durationMS,
	})
}

func looksLikeHTML(content string) bool {
	trimmed := strings.TrimSpace(content)
	lower := strings.ToLower(trimmed)
	return strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html")
}
