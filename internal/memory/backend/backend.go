// Package backend defines the storage-backend contract the memory graph's
// Manager sits on top of, pluggable between a local sqlite-vec store and a
// remote pgvector store (spec.md §4.5, SPEC_FULL.md §3/§5). Grounded on the
// teacher's internal/memory/backend.Backend interface shape, narrowed to
// the turn/entity model this spec actually names instead of the teacher's
// generic MemoryEntry.
package backend

import (
	"context"

	"github.com/nexuscore/agentcore/pkg/models"
)

// Backend is the storage contract for memory turns and entities. Turns and
// entities live in separate keyed tables per spec.md §9's cyclic-graph
// REDESIGN FLAG — cross-references are IDs, never in-memory pointers.
type Backend interface {
	// UpsertTurn stores (or replaces) a turn, including its embedding.
	UpsertTurn(ctx context.Context, turn models.MemoryTurn) error
	// TurnsBySession returns every turn recorded under sessionKey, oldest
	// first.
	TurnsBySession(ctx context.Context, sessionKey string) ([]models.MemoryTurn, error)
	// SearchTurns returns the nearest turns to queryEmbedding within
	// sessionKey by cosine similarity, without reranking — the Manager
	// applies the hybrid score on top of this.
	SearchTurns(ctx context.Context, sessionKey string, queryEmbedding []float32, limit int) ([]models.RetrievedTurn, error)

	// UpsertEntity stores (or replaces) an entity record.
	UpsertEntity(ctx context.Context, entity models.MemoryEntity) error
	// EntityByName looks up an entity by its canonical name within a
	// session, for create-or-link on store.
	EntityByName(ctx context.Context, sessionKey, canonicalName string) (models.MemoryEntity, bool, error)
	// EntitiesByIDs batch-fetches entities by ID, used to compute
	// entity-overlap at retrieval time.
	EntitiesByIDs(ctx context.Context, ids []string) ([]models.MemoryEntity, error)

	Close() error
}
