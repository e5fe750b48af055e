package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nexuscore/agentcore/internal/skills"
)

// buildSkillsCmd creates the "skills" command group, grounded on the
// teacher's cmd/nexus/commands_skills.go buildSkillsCmd()/buildXCmd()
// factory-function pairing.
func buildSkillsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Manage mined and hand-authored skills",
		Long: `Manage skills: workflows the pattern analyzer mines from recurring
tool-call sequences (spec.md §4.4), or ones registered directly.

Skills start in the draft status once mined and must be explicitly
activated, with a non-empty trigger set, before the router will match
them against new input.`,
	}
	cmd.AddCommand(
		buildSkillsListCmd(),
		buildSkillsMineCmd(),
		buildSkillsRouteCmd(),
		buildSkillsActivateCmd(),
		buildSkillsRunCmd(),
	)
	return cmd
}

func buildSkillsListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every known skill, draft or active",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSkillsList(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func buildSkillsMineCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Run one pattern-analyzer sweep immediately",
		Long:  "Runs the same sweep the cron scheduler runs periodically, but on demand, and prints any skills it generated.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSkillsMine(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func buildSkillsRouteCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "route <text>",
		Short: "Show which active skill, if any, would pre-empt this input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSkillsRoute(cmd, configPath, args[0])
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func buildSkillsActivateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "activate <skill-id>",
		Short: "Transition a draft skill to active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSkillsActivate(cmd, configPath, args[0])
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func buildSkillsRunCmd() *cobra.Command {
	var configPath, executionID string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run <skill-id>",
		Short: "Run a skill's workflow directly, bypassing the router",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSkillsRun(cmd, configPath, args[0], executionID, dryRun)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&executionID, "execution-id", "cli-skill-run", "Execution id to record this run's tool calls under")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Synthesize results instead of invoking real tools")
	return cmd
}

func runSkillsList(cmd *cobra.Command, configPath string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	all, err := a.skillsDB.List(ctx)
	if err != nil {
		return fmt.Errorf("skills list: %w", err)
	}
	if len(all) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No skills found.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tNAME\tSTATUS\tORIGIN\tUSAGE\n")
	for _, s := range all {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", s.ID, s.Name, s.Status, s.Origin, s.Stats.UsageCount)
	}
	return tw.Flush()
}

func runSkillsMine(cmd *cobra.Command, configPath string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if a.scheduler == nil {
		return fmt.Errorf("skills mine: skills.enabled is false in the loaded config")
	}
	created, err := a.scheduler.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("skills mine: %w", err)
	}
	if err := a.skillsMgr.Refresh(ctx); err != nil {
		return fmt.Errorf("skills mine: refresh index: %w", err)
	}

	w := cmd.OutOrStdout()
	if len(created) == 0 {
		fmt.Fprintln(w, "No new skills generated.")
		return nil
	}
	for _, s := range created {
		fmt.Fprintf(w, "generated draft skill %s: %s\n", s.ID, s.Name)
	}
	return nil
}

func runSkillsRoute(cmd *cobra.Command, configPath, text string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	match, ok := a.skillsMgr.Route(text)
	w := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintln(w, "no active skill matched")
		return nil
	}
	fmt.Fprintf(w, "matched %s (%s), score %.2f\n", match.Skill.Name, match.Skill.ID, match.Score)
	return nil
}

func runSkillsActivate(cmd *cobra.Command, configPath, skillID string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.skillsMgr.Activate(ctx, skillID); err != nil {
		return fmt.Errorf("skills activate: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "activated %s\n", skillID)
	return nil
}

func runSkillsRun(cmd *cobra.Command, configPath, skillID, executionID string, dryRun bool) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	executor := skills.NewExecutor(a.toolsReg, skills.ExecutorConfig{
		MaxSteps:       a.cfg.Skills.ExecutorMaxSteps,
		MaxVariableLen: a.cfg.Skills.ExecutorMaxVariableLen,
	})
	result, err := a.skillsMgr.Execute(ctx, executor, executionID, skillID, nil, dryRun)
	if err != nil {
		return fmt.Errorf("skills run: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "success=%t steps=%d\n", result.Success, len(result.Steps))
	for _, step := range result.Steps {
		fmt.Fprintf(w, "  [%d] %s -> error=%t\n", step.Order, step.ToolName, step.Result.IsError)
	}
	return nil
}
