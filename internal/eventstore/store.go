// Package eventstore implements the append-only, per-execution
// sequence-numbered event log and its replay engine (spec.md §4.3).
// Grounded on the store-interface-plus-two-backends pattern the teacher
// uses for its job queue (internal/jobs/store.go + cockroach.go), applied
// here to executions/events instead of jobs.
package eventstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nexuscore/agentcore/pkg/models"
)

func errExecutionNotRegistered(executionID string) error {
	return fmt.Errorf("eventstore: no session registered for execution %q", executionID)
}

// Store is the append-only event log contract. Implementations must
// guarantee that Seq is strictly increasing per ExecutionID and that
// Append is durable before it returns (invariant: an acknowledged Append
// is never lost).
type Store interface {
	// Append assigns the next sequence number for evt.ExecutionID, stamps
	// it, persists it durably, and returns the stamped event.
	Append(ctx context.Context, executionID string, kind models.EventKind, payload []byte) (models.Event, error)
	// ListByExecution returns every event for an execution in sequence
	// order.
	ListByExecution(ctx context.Context, executionID string) ([]models.Event, error)
	// ListBySession returns every event belonging to executions started
	// under the given session key, ordered by (execution start, seq).
	ListBySession(ctx context.Context, session models.SessionKey) ([]models.Event, error)
	// Recent returns the most recently appended events across all
	// executions, newest last, capped at limit.
	Recent(ctx context.Context, limit int) ([]models.Event, error)
	// RegisterSession records the session key an execution belongs to, so
	// ListBySession can find it. Must be called once before the first
	// Append for an execution.
	RegisterSession(ctx context.Context, executionID string, session models.SessionKey) error
	// OpenExecutions returns execution IDs whose event stream has no
	// terminal event yet — candidates for crash recovery on startup.
	OpenExecutions(ctx context.Context) ([]string, error)
	// SessionForExecution returns the session key an execution was
	// registered under, for Rerun/DryRun replay.
	SessionForExecution(ctx context.Context, executionID string) (models.SessionKey, error)
	Close() error
}

// MemoryStore is an in-memory Store used by tests and by the "memory"
// event-store backend config option. Grounded on the teacher's in-memory
// job store fake used alongside cockroach.go in tests.
type MemoryStore struct {
	mu        sync.Mutex
	byExec    map[string][]models.Event
	execOrder []string // insertion order, for Recent
	sessions  map[string]models.SessionKey
}

// NewMemoryStore constructs an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byExec:   make(map[string][]models.Event),
		sessions: make(map[string]models.SessionKey),
	}
}

func (s *MemoryStore) Append(ctx context.Context, executionID string, kind models.EventKind, payload []byte) (models.Event, error) {
	if err := ctx.Err(); err != nil {
		return models.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.byExec[executionID]
	if len(existing) == 0 {
		s.execOrder = append(s.execOrder, executionID)
	}
	evt := models.Event{
		ExecutionID: executionID,
		Seq:         int64(len(existing)),
		Kind:        kind,
		Timestamp:   time.Now().UTC(),
		Version:     models.CurrentEventSchemaVersion,
		Payload:     append([]byte(nil), payload...),
	}
	s.byExec[executionID] = append(existing, evt)
	return evt, nil
}

func (s *MemoryStore) ListByExecution(ctx context.Context, executionID string) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.byExec[executionID]
	out := make([]models.Event, len(events))
	copy(out, events)
	return out, nil
}

func (s *MemoryStore) ListBySession(ctx context.Context, session models.SessionKey) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for execID, key := range s.sessions {
		if key.String() != session.String() {
			continue
		}
		out = append(out, s.byExec[execID]...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExecutionID == out[j].ExecutionID {
			return out[i].Seq < out[j].Seq
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Event
	for _, execID := range s.execOrder {
		all = append(all, s.byExec[execID]...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *MemoryStore) RegisterSession(ctx context.Context, executionID string, session models.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[executionID] = session
	return nil
}

func (s *MemoryStore) OpenExecutions(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var open []string
	for _, execID := range s.execOrder {
		events := s.byExec[execID]
		if len(events) == 0 || !events[len(events)-1].Kind.IsTerminal() {
			open = append(open, execID)
		}
	}
	return open, nil
}

func (s *MemoryStore) SessionForExecution(ctx context.Context, executionID string) (models.SessionKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.sessions[executionID]
	if !ok {
		return models.SessionKey{}, errExecutionNotRegistered(executionID)
	}
	return key, nil
}

func (s *MemoryStore) Close() error { return nil }
