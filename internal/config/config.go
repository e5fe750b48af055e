// Package config loads the flat agentcore configuration surface. Grounded
// on the teacher's internal/config/config.go DefaultXConfig() convention:
// every tunable gets a documented default and a YAML tag, and the whole
// tree loads from one file via gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nexuscore/agentcore/internal/observability"
)

// BudgetConfig holds the four hard ceilings the orchestrator enforces per
// execution (spec.md §4.1).
type BudgetConfig struct {
	MaxTurns     int           `yaml:"max_turns"`
	MaxWallClock time.Duration `yaml:"max_wall_clock"`
	MaxTokens    int64         `yaml:"max_tokens"`
	MaxToolDepth int           `yaml:"max_tool_depth"`
}

// DefaultBudgetConfig mirrors the teacher's DefaultAgentConfig ceilings,
// generalized to this spec's four named budgets.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		MaxTurns:     25,
		MaxWallClock: 10 * time.Minute,
		MaxTokens:    200_000,
		MaxToolDepth: 8,
	}
}

// TimeoutConfig holds per-call timeouts (spec.md §4.1/§5).
type TimeoutConfig struct {
	Model    time.Duration `yaml:"model"`
	Tool     time.Duration `yaml:"tool"`
	Approval time.Duration `yaml:"approval"`
}

// DefaultTimeoutConfig returns the spec's named defaults.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Model:    60 * time.Second,
		Tool:     60 * time.Second,
		Approval: 300 * time.Second,
	}
}

// RefusalConfig controls the refusal/fake-tool-use strike detector.
type RefusalConfig struct {
	MaxStrikes int `yaml:"max_strikes"`
}

func DefaultRefusalConfig() RefusalConfig {
	return RefusalConfig{MaxStrikes: 3}
}

// SanitizationConfig controls redaction and truncation applied to both
// inbound tool results and outbound model-visible content.
type SanitizationConfig struct {
	MaxToolResultBytes int      `yaml:"max_tool_result_bytes"`
	RedactPatterns     []string `yaml:"redact_patterns"`
}

func DefaultSanitizationConfig() SanitizationConfig {
	return SanitizationConfig{
		MaxToolResultBytes: 32 * 1024,
		RedactPatterns: []string{
			`sk-[A-Za-z0-9]{20,}`,
			`AKIA[0-9A-Z]{16}`,
			`-----BEGIN [A-Z ]+PRIVATE KEY-----`,
		},
	}
}

// ShellConfig configures the five-layer shell sandbox (spec.md §5).
type ShellConfig struct {
	RateLimitPerSecond float64       `yaml:"rate_limit_per_second"`
	RateLimitBurst     int           `yaml:"rate_limit_burst"`
	MaxOutputBytes     int           `yaml:"max_output_bytes"`
	MaxWallClock       time.Duration `yaml:"max_wall_clock"`
	MaxConcurrent      int           `yaml:"max_concurrent"`
	WorkspaceRoot      string        `yaml:"workspace_root"`
}

func DefaultShellConfig() ShellConfig {
	return ShellConfig{
		RateLimitPerSecond: 2,
		RateLimitBurst:     5,
		MaxOutputBytes:     1 << 20,
		MaxWallClock:       30 * time.Second,
		MaxConcurrent:      4,
		WorkspaceRoot:      "/tmp/agentcore-workspace",
	}
}

// SandboxConfig configures the generic non-shell isolation container
// contract (spec.md §5, no concrete backend — see SPEC_FULL.md §3).
type SandboxConfig struct {
	NetworkEnabled bool   `yaml:"network_enabled"`
	MemoryLimitMB  int    `yaml:"memory_limit_mb"`
	CPULimitMillis int    `yaml:"cpu_limit_millis"`
	ScratchDir     string `yaml:"scratch_dir"`
}

func DefaultSandboxConfig() SandboxConfig {
	return SandboxConfig{
		NetworkEnabled: false,
		MemoryLimitMB:  512,
		CPULimitMillis: 1000,
		ScratchDir:     "/tmp/agentcore-scratch",
	}
}

// SkillsConfig configures mining, routing, and execution guards (spec.md
// §4.4).
type SkillsConfig struct {
	Enabled                bool          `yaml:"enabled"`
	MiningInterval         time.Duration `yaml:"mining_interval"`
	MiningCronSpec         string        `yaml:"mining_cron_spec"`
	MinOccurrences         int           `yaml:"min_occurrences"`
	MinConfidence          float64       `yaml:"min_confidence"`
	TopKKeywords           int           `yaml:"top_k_keywords"`
	RouterMaxInputChars    int           `yaml:"router_max_input_chars"`
	RouterMaxRegexChars    int           `yaml:"router_max_regex_chars"`
	ExecutorMaxSteps       int           `yaml:"executor_max_steps"`
	ExecutorMaxVariableLen int           `yaml:"executor_max_variable_len"`
}

func DefaultSkillsConfig() SkillsConfig {
	return SkillsConfig{
		Enabled:                true,
		MiningInterval:         1 * time.Hour,
		MiningCronSpec:         "0 * * * *",
		MinOccurrences:         3,
		MinConfidence:          0.6,
		TopKKeywords:           5,
		RouterMaxInputChars:    10_000,
		RouterMaxRegexChars:    500,
		ExecutorMaxSteps:       20,
		ExecutorMaxVariableLen: 4096,
	}
}

// MemoryConfig configures the entity/turn graph and hybrid retrieval
// weights (spec.md §4.5).
type MemoryConfig struct {
	Backend             string  `yaml:"backend"` // "sqlitevec" or "pgvector"
	DSN                 string  `yaml:"dsn"`
	EmbeddingWeight     float64 `yaml:"embedding_weight"`
	ProximityWeight     float64 `yaml:"proximity_weight"`
	EntityOverlapWeight float64 `yaml:"entity_overlap_weight"`
	MaxRetrievedTurns   int     `yaml:"max_retrieved_turns"`
}

func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Backend:             "sqlitevec",
		DSN:                 "file:agentcore-memory.db",
		EmbeddingWeight:     0.5,
		ProximityWeight:     0.3,
		EntityOverlapWeight: 0.2,
		MaxRetrievedTurns:   12,
	}
}

// VaultConfig configures the credential vault (spec.md §4.6).
type VaultConfig struct {
	ServiceName      string `yaml:"service_name"`
	FallbackFilePath string `yaml:"fallback_file_path"`
}

func DefaultVaultConfig() VaultConfig {
	return VaultConfig{
		ServiceName:      "agentcore",
		FallbackFilePath: "/var/lib/agentcore/vault.enc",
	}
}

// EventStoreConfig configures the append-only event log backend.
type EventStoreConfig struct {
	Backend string `yaml:"backend"` // "sqlite" or "memory"
	DSN     string `yaml:"dsn"`
}

func DefaultEventStoreConfig() EventStoreConfig {
	return EventStoreConfig{
		Backend: "sqlite",
		DSN:     "file:agentcore-events.db?_journal=WAL",
	}
}

// ApprovalConfig selects the approval protocol mode (spec.md §4.2) plus the
// supplemented elevated-full-bypass allowlist.
type ApprovalConfig struct {
	Mode              string   `yaml:"mode"` // "always", "risky_only", "never"
	ElevatedFull      bool     `yaml:"elevated_full"`
	ElevatedAllowlist []string `yaml:"elevated_allowlist"`
}

func DefaultApprovalConfig() ApprovalConfig {
	return ApprovalConfig{
		Mode:              "risky_only",
		ElevatedFull:      false,
		ElevatedAllowlist: nil,
	}
}

// Config is the full process configuration tree.
type Config struct {
	Logging        observability.LoggingConfig `yaml:"logging"`
	Tracing        observability.TracingConfig `yaml:"tracing"`
	MetricsEnabled bool                        `yaml:"metrics_enabled"`
	Budget         BudgetConfig                `yaml:"budget"`
	Timeouts       TimeoutConfig               `yaml:"timeouts"`
	Refusal        RefusalConfig               `yaml:"refusal"`
	Sanitize       SanitizationConfig          `yaml:"sanitization"`
	Shell          ShellConfig                 `yaml:"shell"`
	Sandbox        SandboxConfig               `yaml:"sandbox"`
	Skills         SkillsConfig                `yaml:"skills"`
	Memory         MemoryConfig                `yaml:"memory"`
	Vault          VaultConfig                 `yaml:"vault"`
	EventStore     EventStoreConfig            `yaml:"event_store"`
	Approval       ApprovalConfig              `yaml:"approval"`
}

// Default returns the full default configuration tree, matching the
// teacher's per-subsystem DefaultXConfig() composition in
// internal/config/config.go.
func Default() Config {
	return Config{
		Logging:        observability.DefaultLoggingConfig(),
		Tracing:        observability.TracingConfig{ServiceName: "agentcore", Enabled: false},
		MetricsEnabled: true,
		Budget:         DefaultBudgetConfig(),
		Timeouts:       DefaultTimeoutConfig(),
		Refusal:        DefaultRefusalConfig(),
		Sanitize:       DefaultSanitizationConfig(),
		Shell:          DefaultShellConfig(),
		Sandbox:        DefaultSandboxConfig(),
		Skills:         DefaultSkillsConfig(),
		Memory:         DefaultMemoryConfig(),
		Vault:          DefaultVaultConfig(),
		EventStore:     DefaultEventStoreConfig(),
		Approval:       DefaultApprovalConfig(),
	}
}

// Load reads and parses a YAML config file, overlaying it onto the
// defaults so a partial file only overrides what it names.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config tree for internally inconsistent values that
// yaml.Unmarshal can't catch on its own.
func (c Config) Validate() error {
	switch c.Approval.Mode {
	case "always", "risky_only", "never":
	default:
		return fmt.Errorf("config: invalid approval.mode %q", c.Approval.Mode)
	}
	if c.Budget.MaxTurns <= 0 {
		return fmt.Errorf("config: budget.max_turns must be positive")
	}
	if c.Budget.MaxToolDepth <= 0 {
		return fmt.Errorf("config: budget.max_tool_depth must be positive")
	}
	sum := c.Memory.EmbeddingWeight + c.Memory.ProximityWeight + c.Memory.EntityOverlapWeight
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("config: memory retrieval weights must sum to 1.0, got %f", sum)
	}
	return nil
}
