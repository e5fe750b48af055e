package websearch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nexuscore/agentcore/pkg/models"
)

type fakeBackend struct {
	results []Result
	err     error
}

func (f fakeBackend) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	return f.results, f.err
}

func TestHandlerRendersResults(t *testing.T) {
	backend := fakeBackend{results: []Result{{Title: "Go", URL: "https://go.dev", Snippet: "The Go language"}}}
	handler := Handler(backend)

	in, _ := json.Marshal(map[string]string{"query": "golang"})
	result, err := handler(context.Background(), models.ToolInvocation{Input: in})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.Content == "" {
		t.Error("expected rendered content")
	}
}

func TestHandlerNoResults(t *testing.T) {
	handler := Handler(fakeBackend{})
	in, _ := json.Marshal(map[string]string{"query": "nothing"})
	result, err := handler(context.Background(), models.ToolInvocation{Input: in})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.Content != "no results found" {
		t.Errorf("content = %q", result.Content)
	}
}

func TestDefinitionIsLowRiskAndSideEffectFree(t *testing.T) {
	def := Definition()
	if def.RiskLevel.Risky() {
		t.Error("web_search should not be risky")
	}
	if !def.SideEffectFree {
		t.Error("web_search should be side-effect-free (parallelizable)")
	}
}
