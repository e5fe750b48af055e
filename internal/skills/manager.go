package skills

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nexuscore/agentcore/pkg/models"
)

// ManagerConfig bundles the analyzer/router/executor tunables a Manager
// needs, mirroring internal/config.SkillsConfig.
type ManagerConfig struct {
	Analyzer AnalyzerConfig
	Router   RouterConfig
	Executor ExecutorConfig
	// GeneratorThreshold is the minimum pattern confidence the generator
	// will convert, spec.md §4.4's "Only patterns with confidence >= 0.7".
	GeneratorThreshold float64
}

// DefaultManagerConfig mirrors config.DefaultSkillsConfig's defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Analyzer:           DefaultAnalyzerConfig(),
		Router:             DefaultRouterConfig(),
		Executor:           DefaultExecutorConfig(),
		GeneratorThreshold: 0.7,
	}
}

// Manager ties pattern mining, skill generation, storage, routing, and
// execution into one facade the orchestrator depends on. Grounded
// structurally on the teacher's internal/skills.Manager (config-held
// mutex-protected index, rebuilt atomically on change) even though the
// teacher's Manager indexes filesystem-discovered skills rather than
// mined ones.
type Manager struct {
	cfg       ManagerConfig
	skillsDB  Store
	patterns  PatternStore
	analyzer  *Analyzer
	generator *Generator
	router    *Router
	logger    *slog.Logger

	mu     sync.RWMutex
	active []models.Skill // snapshot rebuilt on every write, read by Route
}

// NewManager constructs a Manager over the given stores.
func NewManager(cfg ManagerConfig, skillsDB Store, patterns PatternStore, classifier IntentClassifier, semantic SemanticScorer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:       cfg,
		skillsDB:  skillsDB,
		patterns:  patterns,
		analyzer:  NewAnalyzer(cfg.Analyzer),
		generator: NewGenerator(),
		router:    NewRouter(cfg.Router, classifier, semantic),
		logger:    logger.With("component", "skills.manager"),
	}
	return m
}

// Refresh reloads the active-skill index from the store, so Route sees
// skills created/activated/disabled since the last call. The orchestrator
// calls this after any skill mutation (spec.md §5: "rebuilt atomically on
// skill change").
func (m *Manager) Refresh(ctx context.Context) error {
	all, err := m.skillsDB.List(ctx)
	if err != nil {
		return err
	}
	active := make([]models.Skill, 0, len(all))
	for _, s := range all {
		if s.Status == models.SkillActive {
			active = append(active, s)
		}
	}
	m.mu.Lock()
	m.active = active
	m.mu.Unlock()
	return nil
}

// Route finds the best-matching active skill for input text, refreshing
// nothing itself — callers own the Refresh cadence.
func (m *Manager) Route(input string) (Match, bool) {
	m.mu.RLock()
	snapshot := m.active
	m.mu.RUnlock()
	return m.router.Route(input, snapshot)
}

// MineAndGenerate runs one pattern-analyzer sweep over records (one
// ExecutionRecord per execution, already extracted by the caller via
// ExtractToolSequence/ExtractUserInput), upserts any DetectedPattern
// meeting the analyzer's thresholds, and converts patterns clearing
// GeneratorThreshold into Draft skills. Returns the newly created Draft
// skills.
func (m *Manager) MineAndGenerate(ctx context.Context, records []ExecutionRecord) ([]models.Skill, error) {
	patterns := m.analyzer.Analyze(records)

	var created []models.Skill
	for _, pattern := range patterns {
		stored, err := m.patterns.Upsert(ctx, pattern)
		if err != nil {
			return created, err
		}
		if stored.Status == models.PatternConverted {
			continue
		}
		if stored.Confidence() < m.cfg.GeneratorThreshold {
			continue
		}

		skill := m.generator.Generate(stored)
		skill.SourcePatternID = stored.ID
		saved, err := m.skillsDB.Create(ctx, skill)
		if err != nil {
			return created, err
		}
		if err := m.patterns.MarkConverted(ctx, stored.ID, saved.ID); err != nil {
			return created, err
		}
		created = append(created, saved)
		m.logger.Info("skill generated from pattern", "skill", saved.Name, "pattern_id", stored.ID, "confidence", stored.Confidence())
	}
	return created, nil
}

// Activate transitions a Draft skill to Active, requiring a non-empty
// trigger set per invariant (4).
func (m *Manager) Activate(ctx context.Context, skillID string) error {
	skill, err := m.skillsDB.Get(ctx, skillID)
	if err != nil {
		return err
	}
	if skill.Triggers.Empty() {
		return &ErrEmptyTriggers{SkillID: skillID}
	}
	skill.Status = models.SkillActive
	if err := m.skillsDB.Update(ctx, skill); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// ErrEmptyTriggers is returned by Activate when a skill has no keywords,
// regexes, or intents — invariant (4) forbids an Active skill without one.
type ErrEmptyTriggers struct{ SkillID string }

func (e *ErrEmptyTriggers) Error() string {
	return "skills: cannot activate " + e.SkillID + ": trigger set is empty"
}

// Execute runs a skill by ID with the given variables through executor,
// recording the outcome's usage stats on the skill store.
func (m *Manager) Execute(ctx context.Context, executor *Executor, executionID, skillID string, vars map[string]string, dryRun bool) (RunResult, error) {
	skill, err := m.skillsDB.Get(ctx, skillID)
	if err != nil {
		return RunResult{}, err
	}
	start := time.Now()
	result, err := executor.Run(ctx, executionID, skill, vars, dryRun)
	if dryRun || err != nil {
		return result, err
	}
	_ = m.skillsDB.RecordUsage(ctx, skillID, result.Success, time.Since(start))
	return result, nil
}
