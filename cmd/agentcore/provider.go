package main

import (
	"context"
	"strings"

	"github.com/nexuscore/agentcore/pkg/models"
)

// echoProvider is a CLI-only fixture, never a production model client.
// spec.md §1 puts real language-model provider clients out of scope ("the
// language-model provider clients ... expose a streaming chat-completion
// operation"); this type exists solely so "agentcore process" has a
// runnable end-to-end path to drive the orchestrator against without
// fabricating an out-of-scope integration. It never issues a tool call, so
// every execution finalizes on its first turn.
type echoProvider struct{}

func (echoProvider) Complete(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error) {
	var last string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			last = req.Messages[i].Content
			break
		}
	}
	return models.CompletionResponse{
		Text:      "echo: " + strings.TrimSpace(last),
		TokensIn:  int64(len(last)),
		TokensOut: int64(len(last)),
	}, nil
}
