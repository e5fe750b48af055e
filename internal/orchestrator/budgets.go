package orchestrator

import (
	"time"

	"github.com/nexuscore/agentcore/internal/config"
)

// budgetTracker enforces the four hard ceilings spec.md §4.1 names:
// max turns, max wall-clock, max cumulative tokens, max tool-call depth.
// Each is a terminal condition when reached.
type budgetTracker struct {
	cfg       config.BudgetConfig
	startedAt time.Time
	turns     int
	tokens    int64
	toolDepth int
}

func newBudgetTracker(cfg config.BudgetConfig) *budgetTracker {
	return &budgetTracker{cfg: cfg, startedAt: time.Now()}
}

// recordTurn counts one planner iteration.
func (b *budgetTracker) recordTurn() {
	b.turns++
}

// recordTokens accumulates tokens spent on a model call.
func (b *budgetTracker) recordTokens(tokensIn, tokensOut int64) {
	b.tokens += tokensIn + tokensOut
}

// enterToolDepth increments the nested tool-call depth (a tool that itself
// triggers another model call), returning a function to leave it.
func (b *budgetTracker) enterToolDepth() func() {
	b.toolDepth++
	return func() { b.toolDepth-- }
}

// exceeded reports the first budget that has been breached, if any.
func (b *budgetTracker) exceeded() (reason string, hit bool) {
	if b.cfg.MaxTurns > 0 && b.turns > b.cfg.MaxTurns {
		return "maximum turns exceeded", true
	}
	if b.cfg.MaxWallClock > 0 && time.Since(b.startedAt) > b.cfg.MaxWallClock {
		return "maximum wall-clock time exceeded", true
	}
	if b.cfg.MaxTokens > 0 && b.tokens > b.cfg.MaxTokens {
		return "maximum token budget exceeded", true
	}
	if b.cfg.MaxToolDepth > 0 && b.toolDepth > b.cfg.MaxToolDepth {
		return "maximum tool-call depth exceeded", true
	}
	return "", false
}

func (b *budgetTracker) elapsed() time.Duration {
	return time.Since(b.startedAt)
}
