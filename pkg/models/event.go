package models

import (
	"encoding/json"
	"time"
)

// EventKind tags the variant of an Event's payload. New variants may be
// appended; existing readers treat unknown kinds as opaque and warn rather
// than fail, per the event log's forward-compatibility contract.
type EventKind string

const (
	EventUserInput         EventKind = "user_input"
	EventPlanCreated       EventKind = "plan_created"
	EventModelRequest      EventKind = "model_request"
	EventModelResponse     EventKind = "model_response"
	EventToolCall          EventKind = "tool_call"
	EventToolResult        EventKind = "tool_result"
	EventApprovalRequested EventKind = "approval_requested"
	EventApprovalResponse  EventKind = "approval_response"
	EventFinalResponse     EventKind = "final_response"
	EventError             EventKind = "error"
	EventReflection        EventKind = "reflection"
	// EventCrashInferred is synthesized on recovery when an execution's log
	// ends without a terminal event, per spec.md's durability contract.
	EventCrashInferred EventKind = "crash_inferred"
)

// terminalKinds are the only kinds that may close out an execution's event
// stream, per invariant (3): exactly one of FinalResponse or Error (which
// subsumes Cancelled/TimedOut/BudgetExceeded, all recorded as Error-kind
// events distinguished by payload.Reason).
var terminalKinds = map[EventKind]bool{
	EventFinalResponse: true,
	EventError:         true,
	EventCrashInferred: true,
}

// IsTerminal reports whether this event kind can close an execution.
func (k EventKind) IsTerminal() bool { return terminalKinds[k] }

// CurrentEventSchemaVersion is bumped whenever a breaking change is made to
// the Event payload shapes. Events are always written with the version in
// effect at write time and never rewritten.
const CurrentEventSchemaVersion = 1

// Event is an atomic, timestamped, immutable fact about an Execution.
type Event struct {
	ExecutionID string          `json:"execution_id"`
	Seq         int64           `json:"seq"`
	Kind        EventKind       `json:"kind"`
	Timestamp   time.Time       `json:"timestamp"`
	Version     int             `json:"version"`
	Payload     json.RawMessage `json:"payload"`
}

// --- Payload shapes, one per EventKind ---

type UserInputPayload struct {
	Text        string   `json:"text"`
	Attachments []string `json:"attachments,omitempty"`
}

type PlanCreatedPayload struct {
	Summary      string   `json:"summary"`
	ToolsOffered []string `json:"tools_offered,omitempty"`
}

type ModelRequestPayload struct {
	Model         string `json:"model"`
	SystemPrompt  string `json:"system_prompt,omitempty"`
	MessageCount  int    `json:"message_count"`
	ToolsOffered  int    `json:"tools_offered"`
	TurnIteration int    `json:"turn_iteration"`
}

type ModelResponsePayload struct {
	Text           string     `json:"text,omitempty"`
	ToolCalls      []ToolCall `json:"tool_calls,omitempty"`
	TokensIn       int64      `json:"tokens_in"`
	TokensOut      int64      `json:"tokens_out"`
	RefusalLike    bool       `json:"refusal_like,omitempty"`
	FakeToolMarker bool       `json:"fake_tool_marker,omitempty"`
}

type ToolCallPayload struct {
	CorrelationID string          `json:"correlation_id"`
	ToolName      string          `json:"tool_name"`
	Input         json.RawMessage `json:"input"`
	RiskLevel     RiskLevel       `json:"risk_level"`
}

type ToolResultPayload struct {
	CorrelationID string `json:"correlation_id"`
	Content       string `json:"content"`
	IsError       bool   `json:"is_error"`
	Diagnosis     string `json:"diagnosis,omitempty"`
	Truncated     bool   `json:"truncated,omitempty"`
	DurationMS    int64  `json:"duration_ms"`
}

type ApprovalRequestedPayload struct {
	Nonce               string    `json:"nonce"`
	ToolName            string    `json:"tool_name"`
	InputSummary        string    `json:"input_summary"`
	AffectedResource    string    `json:"affected_resource"`
	RiskLevel           RiskLevel `json:"risk_level"`
	TimeoutAtUnixMillis int64     `json:"timeout_at_unix_millis"`
}

type ApprovalResponsePayload struct {
	Nonce    string `json:"nonce"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

type FinalResponsePayload struct {
	Text         string `json:"text"`
	BestEffort   bool   `json:"best_effort,omitempty"`
	TurnsElapsed int    `json:"turns_elapsed"`
}

// ErrorKind is the taxonomy of spec.md §7, narrowed as errors propagate
// toward the boundary.
type ErrorKind string

const (
	ErrInvalidInput             ErrorKind = "invalid_input"
	ErrBudgetExceeded           ErrorKind = "budget_exceeded"
	ErrToolRejected             ErrorKind = "tool_rejected"
	ErrToolSoftFailure          ErrorKind = "tool_soft_failure"
	ErrToolHardFailure          ErrorKind = "tool_hard_failure"
	ErrModelUnavailable         ErrorKind = "model_unavailable"
	ErrModelProtocolViolation   ErrorKind = "model_protocol_violation"
	ErrSandboxViolation         ErrorKind = "sandbox_violation"
	ErrCancelled                ErrorKind = "cancelled"
	ErrStorageFailure           ErrorKind = "storage_failure"
)

type ErrorPayload struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	UserSafe   string    `json:"user_safe"`
	Recoverable bool     `json:"recoverable"`
}

type ReflectionPayload struct {
	Reason           string `json:"reason"`
	InjectedPrompt   string `json:"injected_prompt"`
	ConsecutiveCount int    `json:"consecutive_count"`
}
