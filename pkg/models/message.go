package models

// NormalizedMessage is the inbound contract from channel adapters (§6).
// Adapters own per-platform access control; the orchestrator trusts the
// normalized form.
type NormalizedMessage struct {
	Session      SessionKey `json:"session"`
	Text         string     `json:"text"`
	Attachments  []string   `json:"attachments,omitempty"`
	ReplyContext string     `json:"reply_context,omitempty"`
}

// OutgoingMessage is the outbound contract to channel adapters (§6). The
// adapter owns per-platform formatting.
type OutgoingMessage struct {
	Text          string   `json:"text"`
	ParseMarkdown bool     `json:"parse_markdown"`
	ReplyTo       string   `json:"reply_to,omitempty"`
	Buttons       []string `json:"buttons,omitempty"`
	ExecutionID   string   `json:"execution_id"`
}

// ToolSchema is the {name, description, input_schema} tuple synthesized
// from the registry and exposed to the model (§6).
type ToolSchema struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema []byte `json:"input_schema"`
}

// CompletionMessage is one turn in the transcript sent to the model
// provider: role, content, and any tool calls/results attached to it.
type CompletionMessage struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// CompletionRequest is what the orchestrator sends to the (external)
// language-model provider client.
type CompletionRequest struct {
	Model     string               `json:"model"`
	System    string               `json:"system,omitempty"`
	Messages  []CompletionMessage  `json:"messages"`
	Tools     []ToolSchema         `json:"tools,omitempty"`
	MaxTokens int                  `json:"max_tokens"`
}

// CompletionResponse is the (non-streaming, for this core's purposes)
// result of a single model call.
type CompletionResponse struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	TokensIn  int64      `json:"tokens_in"`
	TokensOut int64      `json:"tokens_out"`
}
