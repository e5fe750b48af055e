// Package models defines the data types shared across the orchestration
// core: executions, events, tool calls, skills, and memory records.
package models

import "time"

// ExecutionStatus is the terminal (or in-flight) status of an Execution.
type ExecutionStatus string

const (
	StatusRunning        ExecutionStatus = "running"
	StatusSucceeded      ExecutionStatus = "succeeded"
	StatusFailed         ExecutionStatus = "failed"
	StatusCancelled      ExecutionStatus = "cancelled"
	StatusTimedOut       ExecutionStatus = "timed_out"
	StatusBudgetExceeded ExecutionStatus = "budget_exceeded"
)

// Terminal reports whether the status represents a sealed execution.
func (s ExecutionStatus) Terminal() bool {
	return s != StatusRunning
}

// SessionKey identifies a conversation thread across channel, workspace,
// user, and thread dimensions.
type SessionKey struct {
	Channel   string `json:"channel"`
	Workspace string `json:"workspace"`
	User      string `json:"user"`
	Thread    string `json:"thread"`
}

// String renders a stable, unique key for use as a map/index key.
func (k SessionKey) String() string {
	return k.Channel + ":" + k.Workspace + ":" + k.User + ":" + k.Thread
}

// Execution is a single processing of one user message.
type Execution struct {
	ID         string          `json:"id"`
	Session    SessionKey      `json:"session"`
	Input      string          `json:"input"`
	StartedAt  time.Time       `json:"started_at"`
	EndedAt    time.Time       `json:"ended_at,omitempty"`
	Status     ExecutionStatus `json:"status"`
	TokensUsed int64           `json:"tokens_used"`
	CostMicros int64           `json:"cost_micros"`
}

// Sealed reports whether the execution has reached a terminal status.
func (e *Execution) Sealed() bool {
	return e != nil && e.Status.Terminal()
}
