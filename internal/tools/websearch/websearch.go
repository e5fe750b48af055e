// Package websearch registers a Low-risk example tool that performs web
// searches through a pluggable Backend. Grounded on the teacher's pattern
// of keeping the tool's registry-facing shape in internal/tools while the
// concrete provider (an HTTP client against a real search API) is wired
// in by the caller — the provider itself is an external collaborator,
// same as the LLM provider clients SPEC_FULL.md §3 keeps out of scope.
package websearch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nexuscore/agentcore/pkg/models"
)

const Name = "web_search"

// Result is one search hit returned by a Backend.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Backend performs the actual search. Concrete implementations (backed by
// a real search API) live outside this module.
type Backend interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Definition describes the web_search tool.
func Definition() models.ToolDefinition {
	schema := []byte(`{
		"type": "object",
		"properties": {
			"query": {"type": "string"},
			"max_results": {"type": "integer", "minimum": 1, "maximum": 20}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
	return models.ToolDefinition{
		Name:           Name,
		Description:    "Searches the web and returns a short list of matching results.",
		InputSchema:    schema,
		RiskLevel:      models.RiskLow,
		SideEffectFree: true,
	}
}

type input struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// Handler returns a tools.Handler closing over a Backend.
func Handler(backend Backend) func(ctx context.Context, inv models.ToolInvocation) (models.ToolResult, error) {
	return func(ctx context.Context, inv models.ToolInvocation) (models.ToolResult, error) {
		var in input
		if err := json.Unmarshal(inv.Input, &in); err != nil {
			return models.ToolResult{CorrelationID: inv.CorrelationID, IsError: true, Content: "invalid input: " + err.Error()}, nil
		}
		max := in.MaxResults
		if max <= 0 {
			max = 5
		}
		results, err := backend.Search(ctx, in.Query, max)
		if err != nil {
			return models.ToolResult{CorrelationID: inv.CorrelationID, Diagnosis: err.Error()}, nil
		}
		return models.ToolResult{CorrelationID: inv.CorrelationID, Content: renderResults(results)}, nil
	}
}

func renderResults(results []Result) string {
	if len(results) == 0 {
		return "no results found"
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Title)
		b.WriteString(" — ")
		b.WriteString(r.URL)
		if r.Snippet != "" {
			b.WriteString("\n  ")
			b.WriteString(r.Snippet)
		}
	}
	return b.String()
}
