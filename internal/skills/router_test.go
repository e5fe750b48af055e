package skills

import (
	"strings"
	"testing"

	"github.com/nexuscore/agentcore/pkg/models"
)

func activeSkill(name string, triggers models.TriggerSet) models.Skill {
	return models.Skill{ID: name, Name: name, Status: models.SkillActive, Triggers: triggers}
}

func TestRouterKeywordMatch(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), nil, nil)
	skills := []models.Skill{
		activeSkill("read_then_commit", models.TriggerSet{Keywords: []string{"read", "commit"}, Priority: 1}),
		activeSkill("unrelated", models.TriggerSet{Keywords: []string{"deploy"}}),
	}

	match, ok := r.Route("please read README.md and commit the change", skills)
	if !ok {
		t.Fatal("expected a match")
	}
	if match.Skill.Name != "read_then_commit" {
		t.Fatalf("matched %q, want read_then_commit", match.Skill.Name)
	}
}

func TestRouterDisabledSkillsIgnored(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), nil, nil)
	skills := []models.Skill{
		{ID: "draft", Name: "draft", Status: models.SkillDraft, Triggers: models.TriggerSet{Keywords: []string{"read"}}},
	}
	if _, ok := r.Route("read this file", skills); ok {
		t.Fatal("draft skill should never match")
	}
}

func TestRouterBelowMinScoreNoMatch(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.MinScore = 0.9
	r := NewRouter(cfg, nil, nil)
	skills := []models.Skill{activeSkill("weak", models.TriggerSet{Keywords: []string{"read"}})}

	if _, ok := r.Route("read it", skills); ok {
		t.Fatal("expected no match below MinScore")
	}
}

func TestRouterDoSGuardRejectsOversizedInput(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.MaxInputChars = 100
	r := NewRouter(cfg, nil, nil)
	skills := []models.Skill{activeSkill("s", models.TriggerSet{Keywords: []string{"x"}})}

	huge := strings.Repeat("x", 101)
	if _, ok := r.Route(huge, skills); ok {
		t.Fatal("expected oversized input to be rejected without matching")
	}
}

func TestRouterReDoSGuardSkipsLongRegex(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.MaxRegexChars = 10
	r := NewRouter(cfg, nil, nil)
	longPattern := "(" + strings.Repeat("a|", 20) + "a)"
	skills := []models.Skill{activeSkill("s", models.TriggerSet{Regexes: []string{longPattern}})}

	if _, ok := r.Route("aaaa", skills); ok {
		t.Fatal("expected the over-length regex to be skipped, not matched")
	}
}

func TestRouterRegexMatch(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), nil, nil)
	skills := []models.Skill{activeSkill("ticket", models.TriggerSet{Regexes: []string{`(?i)ticket-\d+`}, Priority: 5})}

	match, ok := r.Route("please close ticket-4821", skills)
	if !ok || match.Skill.Name != "ticket" {
		t.Fatalf("expected ticket match, got %+v ok=%v", match, ok)
	}
}

type fakeClassifier struct{ intents []string }

func (f fakeClassifier) Classify(string) []string { return f.intents }

func TestRouterIntentMatch(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), fakeClassifier{intents: []string{"file_ops"}}, nil)
	skills := []models.Skill{activeSkill("fs", models.TriggerSet{Intents: []string{"file_ops"}, Priority: 3})}

	match, ok := r.Route("do something with files", skills)
	if !ok || match.Skill.Name != "fs" {
		t.Fatalf("expected intent match, got %+v ok=%v", match, ok)
	}
}

type fakeSemantic struct{ score float64 }

func (f fakeSemantic) Score(string, models.Skill) float64 { return f.score }

func TestRouterHybridSemanticBlend(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), nil, fakeSemantic{score: 1.0})
	skills := []models.Skill{activeSkill("s", models.TriggerSet{Priority: 1})}

	match, ok := r.Route("anything at all", skills)
	if !ok {
		t.Fatal("expected semantic score alone to clear MinScore")
	}
	if match.Score <= 0 {
		t.Fatalf("score = %v, want > 0", match.Score)
	}
}
