package skills

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexuscore/agentcore/pkg/models"
)

// ErrNotFound is returned when a skill ID has no matching record.
var ErrNotFound = errors.New("skills: not found")

// Store is the transactional CRUD + usage-stats contract for skills.
// Grounded on the teacher's internal/skills Store interface shape.
type Store interface {
	Create(ctx context.Context, skill models.Skill) (models.Skill, error)
	Get(ctx context.Context, id string) (models.Skill, error)
	Update(ctx context.Context, skill models.Skill) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Skill, error)
	// RecordUsage updates rolling usage stats after one execution of the
	// skill completes.
	RecordUsage(ctx context.Context, id string, success bool, duration time.Duration) error
	Close() error
}

// MemoryStore is an in-memory Store used by tests.
type MemoryStore struct {
	mu     sync.Mutex
	skills map[string]models.Skill
}

// NewMemoryStore returns an empty in-memory skill store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{skills: make(map[string]models.Skill)}
}

func (s *MemoryStore) Create(ctx context.Context, skill models.Skill) (models.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if skill.ID == "" {
		skill.ID = uuid.NewString()
	}
	if skill.CreatedAt.IsZero() {
		skill.CreatedAt = time.Now().UTC()
	}
	s.skills[skill.ID] = skill
	return skill, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skill, ok := s.skills[id]
	if !ok {
		return models.Skill{}, ErrNotFound
	}
	return skill, nil
}

func (s *MemoryStore) Update(ctx context.Context, skill models.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.skills[skill.ID]; !ok {
		return ErrNotFound
	}
	s.skills[skill.ID] = skill
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.skills[id]; !ok {
		return ErrNotFound
	}
	delete(s.skills, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Skill, 0, len(s.skills))
	for _, skill := range s.skills {
		out = append(out, skill)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) RecordUsage(ctx context.Context, id string, success bool, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	skill, ok := s.skills[id]
	if !ok {
		return ErrNotFound
	}
	applyUsage(&skill.Stats, success, duration)
	s.skills[id] = skill
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// applyUsage folds one execution's outcome into a rolling SkillStats
// average, matching the teacher's incremental-mean usage tracking.
func applyUsage(stats *models.SkillStats, success bool, duration time.Duration) {
	n := stats.UsageCount
	successes := stats.SuccessRate * float64(n)
	if success {
		successes++
	}
	stats.UsageCount = n + 1
	stats.SuccessRate = successes / float64(stats.UsageCount)
	stats.MeanDurationMS = (stats.MeanDurationMS*n + duration.Milliseconds()) / stats.UsageCount
	stats.LastUsedAt = time.Now().UTC()
}
