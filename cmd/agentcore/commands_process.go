package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexuscore/agentcore/pkg/models"
)

// buildProcessCmd creates the "process" command: drive one normalized
// message through the orchestrator end to end and print the outgoing
// response, grounded on the teacher's buildXCmd()/runX() factory pairing.
func buildProcessCmd() *cobra.Command {
	var configPath, channel, workspace, user, thread, text string
	var attachments []string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process one message through the orchestrator",
		Long: `Process one message through the orchestrator's ReAct loop end to end and
print the resulting response.

This command drives the orchestrator against an in-process echo fixture,
not a real language-model provider (spec.md §1 puts provider clients out
of scope), and risky tool calls will simply time out under the configured
approval.mode since a one-shot process has no interactive approval
channel.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, configPath, channel, workspace, user, thread, text, attachments)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&channel, "channel", "cli", "Session channel identifier")
	cmd.Flags().StringVar(&workspace, "workspace", "default", "Session workspace identifier")
	cmd.Flags().StringVar(&user, "user", "operator", "Session user identifier")
	cmd.Flags().StringVar(&thread, "thread", "", "Session thread identifier")
	cmd.Flags().StringVar(&text, "text", "", "Message text to process")
	cmd.Flags().StringArrayVar(&attachments, "attachment", nil, "Attachment reference (repeatable)")
	cmd.MarkFlagRequired("text")
	return cmd
}

func runProcess(cmd *cobra.Command, configPath, channel, workspace, user, thread, text string, attachments []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if a.scheduler != nil {
		a.scheduler.Start(ctx)
		defer a.scheduler.Stop()
	}

	msg := models.NormalizedMessage{
		Session: models.SessionKey{
			Channel:   channel,
			Workspace: workspace,
			User:      user,
			Thread:    thread,
		},
		Text:        text,
		Attachments: attachments,
	}

	out, err := a.orch.Process(ctx, msg)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, out.Text)
	fmt.Fprintf(w, "(execution %s)\n", out.ExecutionID)
	return nil
}
