package memory

import (
	"context"
	"testing"

	"github.com/nexuscore/agentcore/internal/config"
	"github.com/nexuscore/agentcore/internal/memory/backend/sqlitevec"
	"github.com/nexuscore/agentcore/internal/memory/embeddings"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	b, err := sqlitevec.Open(":memory:")
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	cfg := config.DefaultMemoryConfig()
	return NewManager(b, embeddings.NewHashProvider(32), cfg)
}

func TestStoreTurnPersists(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	turn, err := m.StoreTurn(ctx, "session-1", "user", "Jane Doe met Bob in New York")
	if err != nil {
		t.Fatalf("store turn: %v", err)
	}
	if turn.ID == "" {
		t.Fatal("expected turn id to be assigned")
	}
	if len(turn.EntityIDs) == 0 {
		t.Fatal("expected entity ids to be extracted")
	}

	turns, err := m.backend.TurnsBySession(ctx, "session-1")
	if err != nil {
		t.Fatalf("turns by session: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("expected 1 stored turn, got %d", len(turns))
	}
}

func TestStoreTurnLinksRepeatedEntity(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.StoreTurn(ctx, "session-1", "user", "Jane Doe called Bob Smith"); err != nil {
		t.Fatalf("store first turn: %v", err)
	}
	if _, err := m.StoreTurn(ctx, "session-1", "user", "Jane Doe called again"); err != nil {
		t.Fatalf("store second turn: %v", err)
	}

	entity, found, err := m.backend.EntityByName(ctx, "session-1", "Jane Doe")
	if err != nil {
		t.Fatalf("entity by name: %v", err)
	}
	if !found {
		t.Fatal("expected Jane Doe entity to exist")
	}
	if len(entity.TurnIDs) != 2 {
		t.Fatalf("expected entity linked to 2 turns, got %d", len(entity.TurnIDs))
	}
}

func TestRetrieveContextRanksRelevantTurnHigher(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.StoreTurn(ctx, "session-1", "user", "The quarterly budget report is due Friday"); err != nil {
		t.Fatalf("store turn: %v", err)
	}
	if _, err := m.StoreTurn(ctx, "session-1", "user", "I like hiking in the mountains on weekends"); err != nil {
		t.Fatalf("store turn: %v", err)
	}

	results, err := m.RetrieveContext(ctx, "session-1", "budget report", 5)
	if err != nil {
		t.Fatalf("retrieve context: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one retrieved turn")
	}
	if results[0].Turn.Content != "The quarterly budget report is due Friday" {
		t.Fatalf("expected budget turn ranked first, got %q", results[0].Turn.Content)
	}
}

func TestRetrieveContextEmptySession(t *testing.T) {
	m := newTestManager(t)
	results, err := m.RetrieveContext(context.Background(), "no-such-session", "anything", 5)
	if err != nil {
		t.Fatalf("retrieve context: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for empty session, got %d", len(results))
	}
}

func TestExtractEntitiesMultiWord(t *testing.T) {
	names := extractEntities("Jane Doe went to New York with Bob")
	want := map[string]bool{"Jane Doe": true, "New York": true, "Bob": true}
	if len(names) != len(want) {
		t.Fatalf("expected %d entities, got %v", len(want), names)
	}
	for _, n := range names {
		if !want[n] {
			t.Fatalf("unexpected entity %q", n)
		}
	}
}

func TestExtractEntitiesNoCapitals(t *testing.T) {
	names := extractEntities("the quick brown fox jumps")
	if len(names) != 0 {
		t.Fatalf("expected no entities, got %v", names)
	}
}
