// Package main provides the CLI entry point for the agentcore orchestration
// core.
//
// agentcore drives a ReAct-style tool-using agent loop: it holds no opinion
// about which channel or language-model provider feeds it input (those are
// external collaborators per spec.md §1), and instead exposes the
// orchestration core's operations directly.
//
// # Basic Usage
//
// Process one message end to end:
//
//	agentcore process --session demo --text "list the files here"
//
// Inspect or re-drive a past execution:
//
//	agentcore replay view <execution-id>
//	agentcore replay rerun <execution-id>
//
// Manage mined and hand-authored skills:
//
//	agentcore skills list
//	agentcore skills mine
//
// Manage vaulted credentials:
//
//	agentcore vault put github-token ghp_...
//
// # Environment Variables
//
//   - AGENTCORE_CONFIG: path to the YAML configuration file (default:
//     agentcore.yaml in the working directory)
//   - AGENTCORE_VAULT_PASSPHRASE: encryption passphrase for the vault's
//     file-backend fallback, used only when the OS keyring is unreachable
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexuscore/agentcore/internal/observability"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := observability.NewLogger(observability.DefaultLoggingConfig())

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd assembles the command tree. Separated from main so tests can
// drive it directly without going through os.Exit.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentcore",
		Short: "agentcore - personal AI assistant orchestration core",
		Long: `agentcore drives a ReAct tool-using agent loop over an append-only,
replayable event log, with a risk-gated sandboxed tool registry, a mined
skill library, and a cross-session memory graph.

It holds no opinion about which channel or language-model provider feeds
it: those are external collaborators wired by the embedding application.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildProcessCmd(),
		buildReplayCmd(),
		buildSkillsCmd(),
		buildVaultCmd(),
	)

	return rootCmd
}
