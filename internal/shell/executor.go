package shell

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/nexuscore/agentcore/internal/config"
	"github.com/nexuscore/agentcore/pkg/models"
)

// Executor runs shell commands through all five defense layers. One
// Executor is shared across every invocation of the shell tool so the
// rate limiter and concurrency cap apply session-wide, matching the
// teacher's per-session shell sandbox instance.
type Executor struct {
	cfg config.ShellConfig
	lim *limiter
}

// NewExecutor constructs an Executor from the shell sandbox configuration.
func NewExecutor(cfg config.ShellConfig) *Executor {
	return &Executor{
		cfg: cfg,
		lim: newLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, cfg.MaxConcurrent),
	}
}

// Run executes command through layers 1-5 in order: validation, pipeline
// analysis, environment isolation (workspace jail + minimal env), resource
// limits (rate limit, concurrency cap, wall-clock timeout, output cap),
// and output masking on whatever escapes.
func (e *Executor) Run(ctx context.Context, command string) (models.ToolResult, error) {
	if err := validateInput(command); err != nil {
		return models.ToolResult{IsError: true, Content: err.Error()}, nil
	}
	if err := analyzePipeline(command); err != nil {
		return models.ToolResult{IsError: true, Content: err.Error()}, nil
	}

	release, err := e.lim.acquire(ctx)
	if err != nil {
		return models.ToolResult{}, err
	}
	defer release()

	runCtx := ctx
	var cancel context.CancelFunc
	if e.cfg.MaxWallClock > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.MaxWallClock)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
	cmd.Dir = e.cfg.WorkspaceRoot
	cmd.Env = buildEnv(e.cfg.WorkspaceRoot)

	maxBytes := e.cfg.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	stdout := newCappedBuffer(maxBytes)
	stderr := newCappedBuffer(maxBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	result := models.ToolResult{
		Content: redactOutput(combineOutput(stdout.String(), stderr.String())),
	}
	truncatedNote := ""
	if stdout.Truncated() || stderr.Truncated() {
		truncatedNote = " (output truncated at the configured byte cap)"
	}

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		result.IsError = true
		result.Diagnosis = "command exceeded its wall-clock limit and was terminated"
	case runErr != nil:
		result.Diagnosis = "command exited with a non-zero status after " + elapsed.Round(time.Millisecond).String() + truncatedNote
	default:
		if truncatedNote != "" {
			result.Diagnosis = strings.TrimSpace(truncatedNote)
		}
	}
	return result, nil
}

func combineOutput(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	return stdout + "\n--- stderr ---\n" + stderr
}
