// Package memory implements the entity/turn memory graph: storing
// conversation turns with embeddings, extracting lightweight entity
// mentions, and retrieving context by a hybrid of embedding similarity,
// recency proximity, and entity overlap (spec.md §4.5). Grounded on the
// teacher's internal/memory/manager.go, generalized from its single-backend
// wiring to the backend-pluggable shape SPEC_FULL.md §5 calls for.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/nexuscore/agentcore/internal/config"
	"github.com/nexuscore/agentcore/internal/memory/backend"
	"github.com/nexuscore/agentcore/internal/memory/embeddings"
	"github.com/nexuscore/agentcore/pkg/models"
)

// Manager owns the store_turn/retrieve_context operations over a pluggable
// backend and embedding provider.
type Manager struct {
	backend  backend.Backend
	embedder embeddings.Provider
	cfg      config.MemoryConfig
}

// NewManager constructs a Manager. cfg supplies the hybrid-score weights and
// retrieval cap.
func NewManager(b backend.Backend, embedder embeddings.Provider, cfg config.MemoryConfig) *Manager {
	return &Manager{backend: b, embedder: embedder, cfg: cfg}
}

// StoreTurn embeds content, extracts entity mentions, links or creates the
// corresponding MemoryEntity rows with updated co-occurrence weights, and
// persists the turn. It returns the stored turn.
func (m *Manager) StoreTurn(ctx context.Context, sessionKey, role, content string) (models.MemoryTurn, error) {
	embedding, err := m.embedder.Embed(ctx, content)
	if err != nil {
		return models.MemoryTurn{}, fmt.Errorf("memory: embed turn: %w", err)
	}

	names := extractEntities(content)
	entityIDs := make([]string, 0, len(names))
	for _, name := range names {
		id, err := m.linkEntity(ctx, sessionKey, name, names)
		if err != nil {
			return models.MemoryTurn{}, err
		}
		entityIDs = append(entityIDs, id)
	}

	turn := models.MemoryTurn{
		ID:         uuid.NewString(),
		SessionKey: sessionKey,
		Role:       role,
		Content:    content,
		Timestamp:  time.Now().UTC(),
		EntityIDs:  entityIDs,
		Embedding:  embedding,
	}
	if err := m.backend.UpsertTurn(ctx, turn); err != nil {
		return models.MemoryTurn{}, err
	}

	for _, id := range entityIDs {
		entities, err := m.backend.EntitiesByIDs(ctx, []string{id})
		if err != nil || len(entities) == 0 {
			continue
		}
		entity := entities[0]
		if !containsString(entity.TurnIDs, turn.ID) {
			entity.TurnIDs = append(entity.TurnIDs, turn.ID)
		}
		if err := m.backend.UpsertEntity(ctx, entity); err != nil {
			return models.MemoryTurn{}, err
		}
	}

	return turn, nil
}

// linkEntity finds-or-creates the MemoryEntity for name within sessionKey,
// bumping co-occurrence weight against every other name mentioned in the
// same turn.
func (m *Manager) linkEntity(ctx context.Context, sessionKey, name string, cooccurring []string) (string, error) {
	entity, found, err := m.backend.EntityByName(ctx, sessionKey, name)
	if err != nil {
		return "", fmt.Errorf("memory: entity lookup: %w", err)
	}
	if !found {
		entity = models.MemoryEntity{
			ID:            uuid.NewString(),
			SessionKey:    sessionKey,
			CanonicalName: name,
			Type:          "mention",
			Adjacency:     map[string]float64{},
		}
	}
	if entity.Adjacency == nil {
		entity.Adjacency = map[string]float64{}
	}
	for _, other := range cooccurring {
		if other == name {
			continue
		}
		entity.Adjacency[other]++
	}
	if err := m.backend.UpsertEntity(ctx, entity); err != nil {
		return "", fmt.Errorf("memory: entity upsert: %w", err)
	}
	return entity.ID, nil
}

// RetrieveContext embeds queryText, fetches the backend's nearest turns by
// embedding similarity, then reranks the top candidates with the hybrid
// score: 0.5*embedding_similarity + 0.3*proximity + 0.2*entity_overlap
// (spec.md §4.5), using cfg's configured weights rather than hardcoded ones
// so a deployment can retune without a code change. k caps the number of
// turns returned.
func (m *Manager) RetrieveContext(ctx context.Context, sessionKey, queryText string, k int) ([]models.RetrievedTurn, error) {
	if k <= 0 {
		k = m.cfg.MaxRetrievedTurns
	}

	queryEmbedding, err := m.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}

	fetchLimit := k * 3
	if fetchLimit < k {
		fetchLimit = k
	}
	candidates, err := m.backend.SearchTurns(ctx, sessionKey, queryEmbedding, fetchLimit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	queryEntities := extractEntities(queryText)
	allTurns, err := m.backend.TurnsBySession(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	latestIdx := make(map[string]int, len(allTurns))
	for i, t := range allTurns {
		latestIdx[t.ID] = i
	}
	total := len(allTurns)

	for i, cand := range candidates {
		embeddingSim := cand.Score
		proximity := recencyProximity(latestIdx[cand.Turn.ID], total)
		overlap, err := m.entityOverlap(ctx, queryEntities, cand.Turn.EntityIDs)
		if err != nil {
			return nil, err
		}
		candidates[i].Score = m.cfg.EmbeddingWeight*embeddingSim +
			m.cfg.ProximityWeight*proximity +
			m.cfg.EntityOverlapWeight*overlap
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// recencyProximity scores a turn's index within the session on a 0..1
// scale, 1 meaning most recent.
func recencyProximity(idx, total int) float64 {
	if total <= 1 {
		return 1
	}
	return float64(idx+1) / float64(total)
}

// entityOverlap is the fraction of queryEntities whose canonical name
// matches one of turnEntityIDs' entities, in [0,1].
func (m *Manager) entityOverlap(ctx context.Context, queryEntities []string, turnEntityIDs []string) (float64, error) {
	if len(queryEntities) == 0 || len(turnEntityIDs) == 0 {
		return 0, nil
	}
	turnEntities, err := m.backend.EntitiesByIDs(ctx, turnEntityIDs)
	if err != nil {
		return 0, err
	}
	names := make(map[string]bool, len(turnEntities))
	for _, e := range turnEntities {
		names[e.CanonicalName] = true
	}
	matches := 0
	for _, name := range queryEntities {
		if names[name] {
			matches++
		}
	}
	return float64(matches) / float64(len(queryEntities)), nil
}

// extractEntities is a rule-based heuristic: a run of consecutive
// capitalized words (proper-noun case) is treated as one entity mention,
// e.g. "New York" or "Jane Doe". It's a stand-in for an NER model, which
// spec.md §1 puts out of scope as an external collaborator.
func extractEntities(text string) []string {
	words := strings.Fields(text)
	var entities []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			entities = append(entities, strings.Join(current, " "))
			current = nil
		}
	}
	for _, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsPunct(r)
		})
		if isCapitalized(trimmed) {
			current = append(current, trimmed)
		} else {
			flush()
		}
	}
	flush()
	return dedupeStrings(entities)
}

func isCapitalized(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)[0]
	return unicode.IsUpper(r)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func containsString(in []string, s string) bool {
	for _, v := range in {
		if v == s {
			return true
		}
	}
	return false
}
