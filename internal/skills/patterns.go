package skills

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nexuscore/agentcore/pkg/models"
)

// PatternStore is the transactional store for DetectedPattern records,
// separate from the Skill Store because a pattern outlives any skill it
// did or didn't produce (spec.md §3's DetectedPattern data model).
type PatternStore interface {
	Upsert(ctx context.Context, pattern models.DetectedPattern) (models.DetectedPattern, error)
	Get(ctx context.Context, id string) (models.DetectedPattern, error)
	List(ctx context.Context) ([]models.DetectedPattern, error)
	MarkConverted(ctx context.Context, id, skillID string) error
}

// MemoryPatternStore is an in-memory PatternStore, the default backend
// since mined patterns are cheap to re-derive from the event log on
// restart (unlike skills, which a user may have hand-edited).
type MemoryPatternStore struct {
	mu       sync.Mutex
	patterns map[string]models.DetectedPattern
}

// NewMemoryPatternStore returns an empty in-memory pattern store.
func NewMemoryPatternStore() *MemoryPatternStore {
	return &MemoryPatternStore{patterns: make(map[string]models.DetectedPattern)}
}

// Upsert inserts pattern, or updates the existing record matching the same
// tool sequence so repeated analyzer runs refresh occurrence counts instead
// of accumulating duplicates.
func (s *MemoryPatternStore) Upsert(ctx context.Context, pattern models.DetectedPattern) (models.DetectedPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(pattern.ToolSequence)
	for id, existing := range s.patterns {
		if keyFor(existing.ToolSequence) == key && existing.Status != models.PatternConverted {
			pattern.ID = id
			pattern.Status = existing.Status
			pattern.SkillID = existing.SkillID
			s.patterns[id] = pattern
			return pattern, nil
		}
	}
	if pattern.ID == "" {
		pattern.ID = uuid.NewString()
	}
	s.patterns[pattern.ID] = pattern
	return pattern, nil
}

func (s *MemoryPatternStore) Get(ctx context.Context, id string) (models.DetectedPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[id]
	if !ok {
		return models.DetectedPattern{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryPatternStore) List(ctx context.Context) ([]models.DetectedPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DetectedPattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.Before(out[j].DetectedAt) })
	return out, nil
}

// MarkConverted transitions a pattern to Converted and links it to skillID,
// maintaining invariant (5): a Converted pattern always has a non-null
// skill reference.
func (s *MemoryPatternStore) MarkConverted(ctx context.Context, id, skillID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = models.PatternConverted
	p.SkillID = skillID
	s.patterns[id] = p
	return nil
}
