package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nexuscore/agentcore/internal/config"
	"github.com/nexuscore/agentcore/internal/eventstore"
	"github.com/nexuscore/agentcore/internal/memory"
	"github.com/nexuscore/agentcore/internal/memory/backend/pgvector"
	"github.com/nexuscore/agentcore/internal/memory/backend/sqlitevec"
	"github.com/nexuscore/agentcore/internal/memory/embeddings"
	"github.com/nexuscore/agentcore/internal/observability"
	"github.com/nexuscore/agentcore/internal/orchestrator"
	"github.com/nexuscore/agentcore/internal/shell"
	"github.com/nexuscore/agentcore/internal/skills"
	"github.com/nexuscore/agentcore/internal/tools"
	"github.com/nexuscore/agentcore/internal/tools/exec"
	"github.com/nexuscore/agentcore/internal/tools/files"
	"github.com/nexuscore/agentcore/internal/tools/policy"
	"github.com/nexuscore/agentcore/internal/vault"
)

const defaultConfigPath = "agentcore.yaml"

// defaultConfigPathEnv names the environment variable an operator can set
// instead of passing --config on every invocation, mirroring the teacher's
// NEXUS_CONFIG convention.
const defaultConfigPathEnv = "AGENTCORE_CONFIG"

// resolveConfigPath applies the --config flag, then AGENTCORE_CONFIG, then
// the hardcoded default, in that order, grounded on the teacher's
// cmd/nexus/main.go resolveConfigPath.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(defaultConfigPathEnv); env != "" {
		return env
	}
	return defaultConfigPath
}

// loadConfig resolves and loads the config file, falling back to in-memory
// defaults when no file exists at the resolved path — a one-shot CLI
// shouldn't force an operator to hand-author a config file before the
// first "agentcore process" works.
func loadConfig(flagValue string) (config.Config, error) {
	path := resolveConfigPath(flagValue)
	if _, err := os.Stat(path); err != nil {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// app bundles every long-lived collaborator bootstrap wires together, plus
// a close func releasing whatever needs releasing (open DB handles).
type app struct {
	cfg       config.Config
	orch      *orchestrator.Orchestrator
	events    eventstore.Store
	vault     *vault.Vault
	skillsMgr *skills.Manager
	skillsDB  skills.Store
	toolsReg  *tools.Registry
	scheduler *skills.Scheduler
	logger    *slog.Logger

	close func() error
}

// buildApp wires every collaborator named in SPEC_FULL.md's data-flow
// description: config -> event store -> vault -> memory backend -> skills
// store/manager -> tool registry -> approval manager -> orchestrator.
// Grounded on the teacher's cmd/nexus/main.go bootstrap, which wires its
// own equivalents (db, llm, gateway) the same way: open the concrete
// resource, wrap it behind the package-owned interface, hand it to the
// next constructor.
func buildApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.Logging)

	var closers []func() error

	events, err := openEventStore(ctx, cfg.EventStore)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() error {
		if c, ok := events.(interface{ Close() error }); ok {
			return c.Close()
		}
		return nil
	})
	if recovered, err := eventstore.RecoverCrashed(ctx, events); err != nil {
		logger.Warn("crashed-execution recovery failed", "error", err)
	} else if len(recovered) > 0 {
		logger.Info("recovered crashed executions", "count", len(recovered))
	}

	v, err := vault.Open(cfg.Vault, vaultPassphrase())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open vault: %w", err)
	}

	memMgr, memCloser, err := openMemory(cfg.Memory)
	if err != nil {
		return nil, err
	}
	if memCloser != nil {
		closers = append(closers, memCloser)
	}

	skillsDB, skillsCloser, err := openSkillsStore(ctx, cfg.Skills)
	if err != nil {
		return nil, err
	}
	if skillsCloser != nil {
		closers = append(closers, skillsCloser)
	}
	patterns := skills.NewMemoryPatternStore()
	analyzerCfg := skills.DefaultAnalyzerConfig()
	analyzerCfg.MinOccurrences = cfg.Skills.MinOccurrences
	analyzerCfg.MinConfidence = cfg.Skills.MinConfidence
	analyzerCfg.TopKKeywords = cfg.Skills.TopKKeywords

	skillsMgr := skills.NewManager(skills.ManagerConfig{
		Analyzer: analyzerCfg,
		Router: skills.RouterConfig{
			MaxInputChars: cfg.Skills.RouterMaxInputChars,
			MaxRegexChars: cfg.Skills.RouterMaxRegexChars,
			MinScore:      skills.DefaultRouterConfig().MinScore,
		},
		Executor: skills.ExecutorConfig{
			MaxSteps:       cfg.Skills.ExecutorMaxSteps,
			MaxVariableLen: cfg.Skills.ExecutorMaxVariableLen,
		},
		GeneratorThreshold: skills.DefaultManagerConfig().GeneratorThreshold,
	}, skillsDB, patterns, nil, nil, logger)
	if err := skillsMgr.Refresh(ctx); err != nil {
		logger.Warn("initial skill index refresh failed", "error", err)
	}

	var scheduler *skills.Scheduler
	if cfg.Skills.Enabled {
		scheduler, err = skills.NewScheduler(skills.SchedulerConfig{
			CronSpec:    cfg.Skills.MiningCronSpec,
			WindowDays:  30,
			RecentLimit: 5000,
		}, events, skillsMgr, logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: scheduler: %w", err)
		}
	}

	registry := tools.NewRegistry()
	if err := registerTools(registry, cfg); err != nil {
		return nil, err
	}

	approvals := policy.NewApprovalManager()

	orch, err := orchestrator.New(echoProvider{}, registry, approvals, skillsMgr, memMgr, events, cfg, "echo-1", logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: orchestrator: %w", err)
	}
	if cfg.MetricsEnabled {
		orch = orch.WithMetrics(observability.NewMetrics(prometheus.DefaultRegisterer))
	}
	if cfg.Tracing.Enabled {
		if _, err := observability.NewTracerProvider(cfg.Tracing); err != nil {
			logger.Warn("tracer provider setup failed", "error", err)
		} else {
			orch = orch.WithTracing(true)
		}
	}

	return &app{
		cfg:       cfg,
		orch:      orch,
		events:    events,
		vault:     v,
		skillsMgr: skillsMgr,
		skillsDB:  skillsDB,
		toolsReg:  registry,
		scheduler: scheduler,
		logger:    logger,
		close: func() error {
			var firstErr error
			for _, c := range closers {
				if err := c(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}, nil
}

func openEventStore(ctx context.Context, cfg config.EventStoreConfig) (eventstore.Store, error) {
	switch cfg.Backend {
	case "memory":
		return eventstore.NewMemoryStore(), nil
	case "sqlite", "":
		return eventstore.OpenSQLiteStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("bootstrap: unknown event_store.backend %q", cfg.Backend)
	}
}

func openMemory(cfg config.MemoryConfig) (*memory.Manager, func() error, error) {
	embedder := embeddings.NewHashProvider(64)
	switch cfg.Backend {
	case "pgvector":
		b, err := pgvector.Open(pgvector.Config{DSN: cfg.DSN, RunMigrations: true})
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: open pgvector memory backend: %w", err)
		}
		return memory.NewManager(b, embedder, cfg), func() error { return b.Close() }, nil
	case "sqlitevec", "":
		b, err := sqlitevec.Open(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: open sqlitevec memory backend: %w", err)
		}
		return memory.NewManager(b, embedder, cfg), func() error { return b.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown memory.backend %q", cfg.Backend)
	}
}

func openSkillsStore(ctx context.Context, cfg config.SkillsConfig) (skills.Store, func() error, error) {
	store, err := skills.OpenSQLiteStore(ctx, "file:agentcore-skills.db?_journal=WAL")
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: open skills store: %w", err)
	}
	return store, store.Close, nil
}

// registerTools registers every tool SPEC_FULL.md names a concrete
// implementation for. web_search is deliberately absent: no concrete
// websearch.Backend exists in this module (a real search-API client is an
// out-of-scope external collaborator per spec.md §1).
func registerTools(registry *tools.Registry, cfg config.Config) error {
	fileTools := files.Toolset{WorkspaceRoot: cfg.Shell.WorkspaceRoot}
	if err := registry.Register(files.ListDefinition(), fileTools.ListHandler, tools.ToolConfig{}); err != nil {
		return err
	}
	if err := registry.Register(files.ReadDefinition(), fileTools.ReadHandler, tools.ToolConfig{}); err != nil {
		return err
	}
	if err := registry.Register(files.WriteDefinition(), fileTools.WriteHandler, tools.ToolConfig{}); err != nil {
		return err
	}

	shellExecutor := shell.NewExecutor(cfg.Shell)
	if err := registry.Register(exec.Definition(), exec.Handler(shellExecutor), tools.ToolConfig{}); err != nil {
		return err
	}
	return nil
}

// vaultPassphrase reads the fallback-backend encryption passphrase from
// the environment. An empty passphrase is valid input to filebackend.Open
// only in the sense that it will produce a weak key — operators deploying
// for real should always set this.
func vaultPassphrase() []byte {
	return []byte(os.Getenv("AGENTCORE_VAULT_PASSPHRASE"))
}
