package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nexuscore/agentcore/internal/eventstore"
)

// buildReplayCmd creates the "replay" command group exposing spec.md
// §4.3's three replay modes.
func buildReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Inspect or re-drive a past execution's event log",
	}
	cmd.AddCommand(
		buildReplaySubCmd("view", eventstore.ViewOnly, "Render an execution's event timeline without executing anything"),
		buildReplaySubCmd("rerun", eventstore.Rerun, "Start a fresh execution from the same input, exercising real tools and model calls"),
		buildReplaySubCmd("dryrun", eventstore.DryRun, "Start a fresh execution, but synthesize tool results instead of invoking real tools"),
	)
	return cmd
}

func buildReplaySubCmd(use string, mode eventstore.RunMode, short string) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   use + " <execution-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, configPath, mode, args[0])
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func runReplay(cmd *cobra.Command, configPath string, mode eventstore.RunMode, executionID string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	replayer := eventstore.NewReplayer(a.events)
	w := cmd.OutOrStdout()

	if mode == eventstore.ViewOnly {
		timeline, err := replayer.View(ctx, executionID)
		if err != nil {
			return fmt.Errorf("replay view: %w", err)
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "SEQ\tKIND\tDESCRIPTION\n")
		for _, entry := range timeline.Entries {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", entry.Seq, entry.Kind, entry.Description)
		}
		return tw.Flush()
	}

	exec, err := replayer.Replay(ctx, executionID, mode, a.orch)
	if err != nil {
		return fmt.Errorf("replay %s: %w", mode, err)
	}
	fmt.Fprintf(w, "new execution %s finished with status %s\n", exec.ID, exec.Status)
	return nil
}
