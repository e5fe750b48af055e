package eventstore

import (
	"encoding/json"
	"sort"

	"github.com/nexuscore/agentcore/pkg/models"
)

// Transcript is the model-facing reconstruction of an execution's event
// stream: one CompletionMessage per turn, suitable for sending straight
// back to an LLMProvider. Grounded on the teacher's internal/agent/
// transcript_repair.go.
func BuildTranscript(events []models.Event) []models.CompletionMessage {
	var out []models.CompletionMessage
	pendingCalls := map[string]bool{}

	for _, evt := range events {
		switch evt.Kind {
		case models.EventUserInput:
			var p models.UserInputPayload
			_ = json.Unmarshal(evt.Payload, &p)
			out = append(out, models.CompletionMessage{Role: "user", Content: p.Text})
		case models.EventModelResponse:
			var p models.ModelResponsePayload
			_ = json.Unmarshal(evt.Payload, &p)
			msg := models.CompletionMessage{Role: "assistant", Content: p.Text, ToolCalls: p.ToolCalls}
			for _, tc := range p.ToolCalls {
				pendingCalls[tc.ID] = true
			}
			out = append(out, msg)
		case models.EventToolResult:
			var p models.ToolResultPayload
			_ = json.Unmarshal(evt.Payload, &p)
			delete(pendingCalls, p.CorrelationID)
			out = append(out, models.CompletionMessage{
				Role: "tool",
				ToolResults: []models.ToolResult{{
					CorrelationID: p.CorrelationID,
					Content:       p.Content,
					IsError:       p.IsError,
					Diagnosis:     p.Diagnosis,
				}},
			})
		case models.EventFinalResponse:
			var p models.FinalResponsePayload
			_ = json.Unmarshal(evt.Payload, &p)
			out = append(out, models.CompletionMessage{Role: "assistant", Content: p.Text})
		case models.EventReflection:
			var p models.ReflectionPayload
			_ = json.Unmarshal(evt.Payload, &p)
			out = append(out, models.CompletionMessage{Role: "system", Content: p.InjectedPrompt})
		}
	}

	// Repair: any tool call left pending (no matching ToolResult, e.g. a
	// crash between ToolCall and ToolResult) gets a synthetic error result
	// appended so the provider never sees an unanswered tool_use block.
	danglingIDs := make([]string, 0, len(pendingCalls))
	for id := range pendingCalls {
		danglingIDs = append(danglingIDs, id)
	}
	sort.Strings(danglingIDs)
	for _, id := range danglingIDs {
		out = append(out, models.CompletionMessage{
			Role: "tool",
			ToolResults: []models.ToolResult{{
				CorrelationID: id,
				Content:       "execution was interrupted before this tool call completed",
				IsError:       true,
			}},
		})
	}
	return out
}
