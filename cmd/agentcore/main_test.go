package main

import "testing"

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	required := []string{"process", "replay", "skills", "vault"}
	for _, name := range required {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestReplayCmdHasThreeModes(t *testing.T) {
	root := buildRootCmd()
	replay, _, err := root.Find([]string{"replay"})
	if err != nil {
		t.Fatalf("find replay: %v", err)
	}
	names := map[string]bool{}
	for _, sub := range replay.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range []string{"view", "rerun", "dryrun"} {
		if !names[name] {
			t.Errorf("expected replay subcommand %q", name)
		}
	}
}

func TestSkillsCmdHasExpectedSubcommands(t *testing.T) {
	root := buildRootCmd()
	skillsCmd, _, err := root.Find([]string{"skills"})
	if err != nil {
		t.Fatalf("find skills: %v", err)
	}
	names := map[string]bool{}
	for _, sub := range skillsCmd.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range []string{"list", "mine", "route", "activate", "run"} {
		if !names[name] {
			t.Errorf("expected skills subcommand %q", name)
		}
	}
}
