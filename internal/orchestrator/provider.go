package orchestrator

import (
	"context"

	"github.com/nexuscore/agentcore/pkg/models"
)

// LLMProvider is the external collaborator spec.md §1 puts out of scope:
// "the language-model provider clients ... expose a streaming
// chat-completion operation with tool schemas." The orchestrator only
// depends on this narrow interface, never a concrete client.
type LLMProvider interface {
	Complete(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error)
}
